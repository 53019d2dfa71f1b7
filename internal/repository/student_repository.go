package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/westgate-schools/sms-api/internal/models"
)

const studentColumns = `s.id, s.registration_number, s.surname, s.firstname, s.other_name, s.gender,
        s.date_of_birth, s.current_status, s.parent_mobile_number, s.address, s.current_class_id,
        s.passport_path, s.created_at, s.updated_at, c.name AS current_class_name`

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository instantiates a student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN student_classes c ON c.id = s.current_class_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.surname ILIKE $%d OR s.firstname ILIKE $%d OR s.registration_number ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.current_class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.current_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"surname":             "s.surname",
		"registration_number": "s.registration_number",
		"created_at":          "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.surname"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID loads a student with its class name.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s LEFT JOIN student_classes c ON c.id = s.current_class_id WHERE s.id = $1", studentColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs loads students by identifiers, preserving no particular order.
func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]models.StudentDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM students s LEFT JOIN student_classes c ON c.id = s.current_class_id WHERE s.id IN (?)", studentColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	query = r.db.Rebind(query)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	return students, nil
}

// ExistsByRegistrationNumber checks registration number uniqueness.
func (r *StudentRepository) ExistsByRegistrationNumber(ctx context.Context, regNumber, excludeID string) (bool, error) {
	base := "SELECT 1 FROM students WHERE registration_number = $1"
	args := []interface{}{regNumber}
	if excludeID != "" {
		base += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check registration number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CurrentStatus == "" {
		student.CurrentStatus = models.StudentStatusActive
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, registration_number, surname, firstname, other_name, gender,
        date_of_birth, current_status, parent_mobile_number, address, current_class_id, passport_path,
        created_at, updated_at)
        VALUES (:id, :registration_number, :surname, :firstname, :other_name, :gender,
        :date_of_birth, :current_status, :parent_mobile_number, :address, :current_class_id, :passport_path,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET registration_number = :registration_number, surname = :surname,
        firstname = :firstname, other_name = :other_name, gender = :gender, date_of_birth = :date_of_birth,
        current_status = :current_status, parent_mobile_number = :parent_mobile_number, address = :address,
        current_class_id = :current_class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetPassportPath records (or clears) the stored passport file for a student.
func (r *StudentRepository) SetPassportPath(ctx context.Context, id string, path *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE students SET passport_path = $2, updated_at = $3 WHERE id = $1`, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("set passport path: %w", err)
	}
	return nil
}

// Delete removes a student permanently.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
