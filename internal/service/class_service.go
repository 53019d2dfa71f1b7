package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context) ([]models.StudentClass, error)
	FindByID(ctx context.Context, id string) (*models.StudentClass, error)
	FindByName(ctx context.Context, name string) (*models.StudentClass, error)
	Create(ctx context.Context, class *models.StudentClass) error
	Update(ctx context.Context, class *models.StudentClass) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, id string) (int, error)
}

// ClassRequest is the payload for creating or renaming a class.
type ClassRequest struct {
	Name string `json:"name" validate:"required"`
}

// ClassService manages student classes.
type ClassService struct {
	classes   classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService creates a new class service instance.
func NewClassService(classes classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, validator: validate, logger: logger}
}

// List returns every class.
func (s *ClassService) List(ctx context.Context) ([]models.StudentClass, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get loads a single class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.StudentClass, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create adds a new class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.StudentClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if existing, err := s.classes.FindByName(ctx, req.Name); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class uniqueness")
	}

	class := &models.StudentClass{Name: req.Name}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// FindOrCreateByName resolves a class by name, creating it on first sight.
// Bulk import relies on this to materialise classes named in the sheet.
func (s *ClassService) FindOrCreateByName(ctx context.Context, name string) (*models.StudentClass, error) {
	class, err := s.classes.FindByName(ctx, name)
	if err == nil {
		return class, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up class")
	}

	class = &models.StudentClass{Name: name}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("created class on demand", zap.String("class", name))
	return class, nil
}

// Rename updates a class name.
func (s *ClassService) Rename(ctx context.Context, id string, req ClassRequest) (*models.StudentClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing, err := s.classes.FindByName(ctx, req.Name); err == nil && existing != nil && existing.ID != id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class with this name already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class uniqueness")
	}

	class.Name = req.Name
	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class with no enrolled students.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.classes.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students in class")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "class still has enrolled students")
	}

	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}
