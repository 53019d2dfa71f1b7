package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
	"github.com/westgate-schools/sms-api/pkg/export"
)

type resultRepository interface {
	Exists(ctx context.Context, studentID, sessionID, termID, subjectID string) (bool, error)
	Create(ctx context.Context, result *models.Result) error
	FindByID(ctx context.Context, id string) (*models.Result, error)
	ListByPeriod(ctx context.Context, sessionID, termID string) ([]models.ResultRow, error)
	UpdateScores(ctx context.Context, updates []models.Result) error
	Delete(ctx context.Context, id string) error
}

// BatchCreateResultsRequest opens empty score sheets for the cross product of
// students and subjects.
type BatchCreateResultsRequest struct {
	StudentIDs []string `json:"student_ids"`
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1"`
}

// BatchCreateSummary reports what a batch creation run did.
type BatchCreateSummary struct {
	Created         int `json:"created"`
	SkippedExisting int `json:"skipped_existing"`
	SkippedNoClass  int `json:"skipped_no_class"`
}

// ScoreUpdate carries new scores for one existing result row.
type ScoreUpdate struct {
	ResultID  string  `json:"result_id" validate:"required"`
	TestScore float64 `json:"test_score" validate:"gte=0,lte=40"`
	ExamScore float64 `json:"exam_score" validate:"gte=0,lte=60"`
}

// UpdateScoresRequest batches score edits.
type UpdateScoresRequest struct {
	Updates []ScoreUpdate `json:"updates" validate:"required,min=1,dive"`
}

// ResultService manages score sheets and term summaries.
type ResultService struct {
	results   resultRepository
	students  studentRepository
	subjects  subjectRepository
	cache     *CacheService
	csv       *export.CSVExporter
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService creates a new result service instance.
func NewResultService(results resultRepository, students studentRepository, subjects subjectRepository, cache *CacheService, csv *export.CSVExporter, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		results:   results,
		students:  students,
		subjects:  subjects,
		cache:     cache,
		csv:       csv,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// BatchCreate opens a zero-score result row for every (student, subject)
// pair that does not already have one this session and term. Students
// without a current class are skipped. Existing rows are never touched, so
// repeating a batch is safe.
func (s *ResultService) BatchCreate(ctx context.Context, sc *models.SchoolContext, req BatchCreateResultsRequest) (*BatchCreateSummary, error) {
	if len(req.StudentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select at least one student")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	students, err := s.students.FindByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	subjects, err := s.subjects.FindByIDs(ctx, req.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select at least one subject")
	}

	summary := &BatchCreateSummary{}
	for _, student := range students {
		if student.CurrentClassID == nil {
			summary.SkippedNoClass++
			continue
		}
		for _, subject := range subjects {
			exists, err := s.results.Exists(ctx, student.ID, sc.Session.ID, sc.Term.ID, subject.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing result")
			}
			if exists {
				summary.SkippedExisting++
				continue
			}

			result := &models.Result{
				StudentID:      student.ID,
				SessionID:      sc.Session.ID,
				TermID:         sc.Term.ID,
				CurrentClassID: *student.CurrentClassID,
				SubjectID:      subject.ID,
			}
			if err := s.results.Create(ctx, result); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create result")
			}
			summary.Created++
		}
	}

	s.invalidateSummary(ctx, sc)
	s.logger.Info("result sheets created",
		zap.String("session", sc.Session.Name),
		zap.String("term", sc.Term.Name),
		zap.Int("created", summary.Created),
		zap.Int("skipped_existing", summary.SkippedExisting),
		zap.Int("skipped_no_class", summary.SkippedNoClass))
	return summary, nil
}

// Summary groups the period's results by student, preserving the order rows
// were first inserted, with per-student test, exam and overall totals.
func (s *ResultService) Summary(ctx context.Context, sc *models.SchoolContext) ([]models.StudentResultSummary, error) {
	key := s.summaryCacheKey(sc)
	var cached []models.StudentResultSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.results.ListByPeriod(ctx, sc.Session.ID, sc.Term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	summaries := aggregateResults(rows)
	_ = s.cache.Set(ctx, key, summaries, s.cacheTTL)
	return summaries, nil
}

// UpdateScores applies a batch of score edits in one transaction.
func (s *ResultService) UpdateScores(ctx context.Context, sc *models.SchoolContext, req UpdateScoresRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	updates := make([]models.Result, 0, len(req.Updates))
	for _, u := range req.Updates {
		result, err := s.results.FindByID(ctx, u.ResultID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("result %s not found", u.ResultID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
		}
		result.TestScore = u.TestScore
		result.ExamScore = u.ExamScore
		updates = append(updates, *result)
	}

	if err := s.results.UpdateScores(ctx, updates); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update scores")
	}

	s.invalidateSummary(ctx, sc)
	return nil
}

// Delete removes one result row.
func (s *ResultService) Delete(ctx context.Context, sc *models.SchoolContext, id string) error {
	if _, err := s.results.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if err := s.results.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	s.invalidateSummary(ctx, sc)
	return nil
}

// ExportCSV renders the term summary as a flat CSV sheet, one row per
// student/subject score.
func (s *ResultService) ExportCSV(ctx context.Context, sc *models.SchoolContext) ([]byte, error) {
	summaries, err := s.Summary(ctx, sc)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"registration_number", "student", "class", "subject", "test_score", "exam_score", "total_score"},
	}
	for _, summary := range summaries {
		for _, score := range summary.Subjects {
			data.Rows = append(data.Rows, map[string]string{
				"registration_number": summary.RegistrationNumber,
				"student":             summary.StudentName,
				"class":               summary.ClassName,
				"subject":             score.SubjectName,
				"test_score":          formatScore(score.TestScore),
				"exam_score":          formatScore(score.ExamScore),
				"total_score":         formatScore(score.TotalScore),
			})
		}
	}

	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render results sheet")
	}
	return out, nil
}

// aggregateResults folds joined result rows into per-student summaries. The
// first appearance of a student fixes its position in the output.
func aggregateResults(rows []models.ResultRow) []models.StudentResultSummary {
	order := make([]string, 0)
	byStudent := make(map[string]*models.StudentResultSummary)

	for _, row := range rows {
		summary, ok := byStudent[row.StudentID]
		if !ok {
			summary = &models.StudentResultSummary{
				StudentID:          row.StudentID,
				StudentName:        row.StudentName,
				RegistrationNumber: row.RegistrationNumber,
				ClassName:          row.ClassName,
			}
			byStudent[row.StudentID] = summary
			order = append(order, row.StudentID)
		}

		summary.Subjects = append(summary.Subjects, models.SubjectScore{
			ResultID:    row.ID,
			SubjectID:   row.SubjectID,
			SubjectName: row.SubjectName,
			TestScore:   row.TestScore,
			ExamScore:   row.ExamScore,
			TotalScore:  row.TotalScore(),
		})
		summary.TestTotal += row.TestScore
		summary.ExamTotal += row.ExamScore
		summary.TotalTotal += row.TotalScore()
	}

	out := make([]models.StudentResultSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byStudent[id])
	}
	return out
}

func (s *ResultService) summaryCacheKey(sc *models.SchoolContext) string {
	return fmt.Sprintf("results:summary:%s:%s", sc.Session.ID, sc.Term.ID)
}

func (s *ResultService) invalidateSummary(ctx context.Context, sc *models.SchoolContext) {
	if err := s.cache.Invalidate(ctx, s.summaryCacheKey(sc)); err != nil {
		s.logger.Warn("failed to invalidate result summary cache", zap.Error(err))
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
