package service

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.StudentDetail, error)
	ExistsByRegistrationNumber(ctx context.Context, regNumber, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetPassportPath(ctx context.Context, id string, path *string) error
	Delete(ctx context.Context, id string) error
}

type fileStorage interface {
	SaveUpload(subdir string, file *multipart.FileHeader) (string, error)
	Delete(filename string) error
	Exists(filename string) bool
	Path(filename string) string
}

// StudentRequest is the payload for creating or updating a student.
type StudentRequest struct {
	RegistrationNumber string  `json:"registration_number" validate:"required"`
	Surname            string  `json:"surname" validate:"required"`
	Firstname          string  `json:"firstname" validate:"required"`
	OtherName          string  `json:"other_name"`
	Gender             string  `json:"gender" validate:"required,oneof=male female"`
	DateOfBirth        string  `json:"date_of_birth"`
	CurrentStatus      string  `json:"current_status" validate:"omitempty,oneof=active inactive"`
	ParentMobileNumber string  `json:"parent_mobile_number"`
	Address            string  `json:"address"`
	CurrentClassID     *string `json:"current_class_id"`
}

var allowedPassportExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// StudentService manages the student register and passport photographs.
type StudentService struct {
	students  studentRepository
	classes   classRepository
	storage   fileStorage
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service instance.
func NewStudentService(students studentRepository, classes classRepository, storage fileStorage, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, classes: classes, storage: storage, validator: validate, logger: logger}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads a single student with class detail.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.StudentDetail, error) {
	student, err := s.buildStudent(ctx, req, "")
	if err != nil {
		return nil, err
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// Update replaces a student's editable fields.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.StudentDetail, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student, err := s.buildStudent(ctx, req, id)
	if err != nil {
		return nil, err
	}
	student.ID = existing.ID
	student.PassportPath = existing.PassportPath

	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, id)
}

// UploadPassport stores a new passport photograph and removes the old one.
func (s *StudentService) UploadPassport(ctx context.Context, id string, file *multipart.FileHeader) (*models.StudentDetail, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedPassportExtensions[ext] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "passport must be a jpg, jpeg, png or gif image")
	}

	stored, err := s.storage.SaveUpload("passports", file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store passport image")
	}

	if err := s.students.SetPassportPath(ctx, id, &stored); err != nil {
		if rmErr := s.storage.Delete(stored); rmErr != nil {
			s.logger.Warn("failed to remove orphaned passport image", zap.String("path", stored), zap.Error(rmErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record passport image")
	}

	if student.PassportPath != nil && *student.PassportPath != stored {
		s.removePassportFile(*student.PassportPath)
	}
	return s.Get(ctx, id)
}

// Delete removes a student and its passport image. A passport file that is
// already gone from disk does not fail the deletion.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.students.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	if student.PassportPath != nil {
		s.removePassportFile(*student.PassportPath)
	}
	s.logger.Info("student deleted",
		zap.String("student_id", id),
		zap.String("registration_number", student.RegistrationNumber))
	return nil
}

func (s *StudentService) removePassportFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		s.logger.Warn("failed to remove passport image", zap.String("path", path), zap.Error(err))
	}
}

func (s *StudentService) buildStudent(ctx context.Context, req StudentRequest, excludeID string) (*models.Student, error) {
	req.Gender = strings.ToLower(strings.TrimSpace(req.Gender))
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.students.ExistsByRegistrationNumber(ctx, req.RegistrationNumber, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration number already in use")
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date_of_birth must be formatted YYYY-MM-DD")
		}
		dob = &parsed
	}

	if req.CurrentClassID != nil && *req.CurrentClassID != "" {
		if _, err := s.classes.FindByID(ctx, *req.CurrentClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "current_class_id does not reference a class")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	} else {
		req.CurrentClassID = nil
	}

	status := req.CurrentStatus
	if status == "" {
		status = models.StudentStatusActive
	}

	return &models.Student{
		RegistrationNumber: req.RegistrationNumber,
		Surname:            req.Surname,
		Firstname:          req.Firstname,
		OtherName:          req.OtherName,
		Gender:             req.Gender,
		DateOfBirth:        dob,
		CurrentStatus:      status,
		ParentMobileNumber: req.ParentMobileNumber,
		Address:            req.Address,
		CurrentClassID:     req.CurrentClassID,
	}, nil
}
