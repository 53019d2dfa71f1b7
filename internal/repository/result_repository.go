package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/westgate-schools/sms-api/internal/models"
)

// ResultRepository handles persistence for results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository instantiates a result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Exists reports whether a result already exists for the
// (student, session, term, subject) tuple.
func (r *ResultRepository) Exists(ctx context.Context, studentID, sessionID, termID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM results WHERE student_id = $1 AND session_id = $2 AND term_id = $3 AND subject_id = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sessionID, termID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check result existence: %w", err)
	}
	return true, nil
}

// Create inserts a new result row.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = now
	}
	result.UpdatedAt = now

	const query = `INSERT INTO results (id, student_id, session_id, term_id, current_class_id, subject_id,
        test_score, exam_score, created_at, updated_at)
        VALUES (:id, :student_id, :session_id, :term_id, :current_class_id, :subject_id,
        :test_score, :exam_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// FindByID loads a result by identifier.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT id, student_id, session_id, term_id, current_class_id, subject_id,
        test_score, exam_score, created_at, updated_at FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByPeriod returns all results for a session/term joined with student and
// subject names, in insertion order.
func (r *ResultRepository) ListByPeriod(ctx context.Context, sessionID, termID string) ([]models.ResultRow, error) {
	const query = `SELECT r.id, r.student_id, r.session_id, r.term_id, r.current_class_id, r.subject_id,
        r.test_score, r.exam_score, r.created_at, r.updated_at,
        st.surname || ' ' || st.firstname AS student_name,
        st.registration_number, sub.name AS subject_name, c.name AS class_name
        FROM results r
        JOIN students st ON st.id = r.student_id
        JOIN subjects sub ON sub.id = r.subject_id
        JOIN student_classes c ON c.id = r.current_class_id
        WHERE r.session_id = $1 AND r.term_id = $2
        ORDER BY r.created_at`
	var rows []models.ResultRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID, termID); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return rows, nil
}

// UpdateScores sets test and exam scores on existing results in one transaction.
func (r *ResultRepository) UpdateScores(ctx context.Context, updates []models.Result) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update scores tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, update := range updates {
		if _, err = tx.ExecContext(ctx, `UPDATE results SET test_score = $2, exam_score = $3, updated_at = $4 WHERE id = $1`, update.ID, update.TestScore, update.ExamScore, now); err != nil {
			return fmt.Errorf("update result scores: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update scores tx: %w", err)
	}
	return nil
}

// Delete removes a result permanently.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}
