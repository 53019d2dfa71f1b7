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

const academicContextCacheKey = "academic:context"

type sessionRepository interface {
	List(ctx context.Context) ([]models.AcademicSession, error)
	FindByID(ctx context.Context, id string) (*models.AcademicSession, error)
	FindCurrent(ctx context.Context) (*models.AcademicSession, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, session *models.AcademicSession) error
	Update(ctx context.Context, session *models.AcademicSession) error
	SetCurrent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type termRepository interface {
	List(ctx context.Context) ([]models.AcademicTerm, error)
	FindByID(ctx context.Context, id string) (*models.AcademicTerm, error)
	FindCurrent(ctx context.Context) (*models.AcademicTerm, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, term *models.AcademicTerm) error
	Update(ctx context.Context, term *models.AcademicTerm) error
	SetCurrent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateSessionRequest describes payload for creating academic sessions.
type CreateSessionRequest struct {
	Name    string `json:"name" validate:"required"`
	Current bool   `json:"current"`
}

// CreateTermRequest describes payload for creating academic terms.
type CreateTermRequest struct {
	Name    string `json:"name" validate:"required"`
	Current bool   `json:"current"`
}

// RenameRequest updates the name of a session or term.
type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

// AcademicService manages sessions, terms and the current school context.
type AcademicService struct {
	sessions  sessionRepository
	terms     termRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicService creates a new academic service instance.
func NewAcademicService(sessions sessionRepository, terms termRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AcademicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicService{sessions: sessions, terms: terms, cache: cache, validator: validate, logger: logger}
}

// Current resolves the session and term flagged current. Both must exist for
// the school to operate; their absence is a server error, not a 404.
func (s *AcademicService) Current(ctx context.Context) (*models.SchoolContext, error) {
	var cached models.SchoolContext
	if hit, _ := s.cache.Get(ctx, academicContextCacheKey, &cached); hit {
		return &cached, nil
	}

	session, err := s.sessions.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoCurrentSession
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current session")
	}

	term, err := s.terms.FindCurrent(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoCurrentTerm
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current term")
	}

	sc := &models.SchoolContext{Session: *session, Term: *term}
	_ = s.cache.Set(ctx, academicContextCacheKey, sc, 0)
	return sc, nil
}

// ListSessions returns every academic session.
func (s *AcademicService) ListSessions(ctx context.Context) ([]models.AcademicSession, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// CreateSession adds a new session, optionally flagging it current.
func (s *AcademicService) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.AcademicSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	exists, err := s.sessions.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session with this name already exists")
	}

	session := &models.AcademicSession{Name: req.Name, Current: req.Current}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	if req.Current {
		if err := s.sessions.SetCurrent(ctx, session.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag current session")
		}
		s.invalidateContext(ctx)
	}

	return session, nil
}

// RenameSession updates a session's name.
func (s *AcademicService) RenameSession(ctx context.Context, id string, req RenameRequest) (*models.AcademicSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	exists, err := s.sessions.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session with this name already exists")
	}

	session.Name = req.Name
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.invalidateContext(ctx)
	return session, nil
}

// SetCurrentSession flags the given session current, unflagging the rest.
func (s *AcademicService) SetCurrentSession(ctx context.Context, id string) (*models.AcademicSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if err := s.sessions.SetCurrent(ctx, session.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag current session")
	}
	session.Current = true
	s.invalidateContext(ctx)
	return session, nil
}

// DeleteSession removes a session unless it is the current one.
func (s *AcademicService) DeleteSession(ctx context.Context, id string) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if session.Current {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the current session")
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// ListTerms returns every academic term.
func (s *AcademicService) ListTerms(ctx context.Context) ([]models.AcademicTerm, error) {
	terms, err := s.terms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// CreateTerm adds a new term, optionally flagging it current.
func (s *AcademicService) CreateTerm(ctx context.Context, req CreateTermRequest) (*models.AcademicTerm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}

	exists, err := s.terms.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term with this name already exists")
	}

	term := &models.AcademicTerm{Name: req.Name, Current: req.Current}
	if err := s.terms.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}

	if req.Current {
		if err := s.terms.SetCurrent(ctx, term.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag current term")
		}
		s.invalidateContext(ctx)
	}

	return term, nil
}

// RenameTerm updates a term's name.
func (s *AcademicService) RenameTerm(ctx context.Context, id string, req RenameRequest) (*models.AcademicTerm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}

	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	exists, err := s.terms.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term with this name already exists")
	}

	term.Name = req.Name
	if err := s.terms.Update(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}
	s.invalidateContext(ctx)
	return term, nil
}

// SetCurrentTerm flags the given term current, unflagging the rest.
func (s *AcademicService) SetCurrentTerm(ctx context.Context, id string) (*models.AcademicTerm, error) {
	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if err := s.terms.SetCurrent(ctx, term.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag current term")
	}
	term.Current = true
	s.invalidateContext(ctx)
	return term, nil
}

// DeleteTerm removes a term unless it is the current one.
func (s *AcademicService) DeleteTerm(ctx context.Context, id string) error {
	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if term.Current {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the current term")
	}

	if err := s.terms.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete term")
	}
	return nil
}

func (s *AcademicService) invalidateContext(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, academicContextCacheKey); err != nil {
		s.logger.Warn("failed to invalidate academic context cache", zap.Error(err))
	}
}
