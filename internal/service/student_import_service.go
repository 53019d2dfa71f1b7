package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

// Import row outcomes reported in the summary and on the metrics counter.
const (
	importOutcomeCreated          = "created"
	importOutcomeSkippedDuplicate = "skipped_duplicate"
	importOutcomeSkippedInvalid   = "skipped_invalid"
)

// importColumns maps accepted sheet headers, including the aliases older
// sheets use, to student fields. Header matching is case-insensitive and
// tolerates surrounding whitespace.
var importColumns = map[string]string{
	"registration_number":  "registration_number",
	"surname":              "surname",
	"firstname":            "firstname",
	"other_name":           "other_name",
	"other_names":          "other_name",
	"gender":               "gender",
	"date_of_birth":        "date_of_birth",
	"current_class":        "current_class",
	"parent_mobile_number": "parent_mobile_number",
	"parent_number":        "parent_mobile_number",
	"address":              "address",
}

// ImportRowError describes one rejected sheet row.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportSummary reports the outcome of a bulk student upload.
type ImportSummary struct {
	TotalRows int              `json:"total_rows"`
	Created   int              `json:"created"`
	Skipped   int              `json:"skipped"`
	Errors    []ImportRowError `json:"errors,omitempty"`
}

// StudentImportService loads student records from an uploaded CSV sheet.
// Existing registration numbers are never overwritten and classes named in
// the sheet are created on first sight.
type StudentImportService struct {
	students studentRepository
	classes  *ClassService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewStudentImportService creates a new import service instance.
func NewStudentImportService(students studentRepository, classes *ClassService, metrics *MetricsService, logger *zap.Logger) *StudentImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentImportService{students: students, classes: classes, metrics: metrics, logger: logger}
}

// Import reads the CSV stream and creates one student per valid row.
// Processing is additive: rows with a missing or already-registered
// registration number are skipped and reported, never applied as updates.
func (s *StudentImportService) Import(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "uploaded sheet is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read sheet header")
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := importColumns[name]; ok {
			index[canonical] = i
		}
	}
	if _, ok := index["registration_number"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sheet is missing a registration_number column")
	}

	summary := &ImportSummary{}
	classIDs := make(map[string]string)

	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.TotalRows++
			s.skip(summary, row, fmt.Sprintf("malformed row: %v", err), importOutcomeSkippedInvalid)
			continue
		}
		summary.TotalRows++

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		regNumber := field("registration_number")
		if regNumber == "" {
			s.skip(summary, row, "missing registration number", importOutcomeSkippedInvalid)
			continue
		}

		exists, err := s.students.ExistsByRegistrationNumber(ctx, regNumber, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration number")
		}
		if exists {
			s.skip(summary, row, fmt.Sprintf("registration number %s already exists", regNumber), importOutcomeSkippedDuplicate)
			continue
		}

		student := models.Student{
			RegistrationNumber: regNumber,
			Surname:            field("surname"),
			Firstname:          field("firstname"),
			OtherName:          field("other_name"),
			Gender:             strings.ToLower(field("gender")),
			ParentMobileNumber: field("parent_mobile_number"),
			Address:            field("address"),
			CurrentStatus:      models.StudentStatusActive,
		}

		if dob := field("date_of_birth"); dob != "" {
			parsed, err := time.Parse("2006-01-02", dob)
			if err != nil {
				s.skip(summary, row, fmt.Sprintf("unparseable date_of_birth %q", dob), importOutcomeSkippedInvalid)
				continue
			}
			student.DateOfBirth = &parsed
		}

		if className := field("current_class"); className != "" {
			classID, ok := classIDs[className]
			if !ok {
				class, err := s.classes.FindOrCreateByName(ctx, className)
				if err != nil {
					return nil, err
				}
				classID = class.ID
				classIDs[className] = classID
			}
			student.CurrentClassID = &classID
		}

		if err := s.students.Create(ctx, &student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student from sheet")
		}
		summary.Created++
		if s.metrics != nil {
			s.metrics.RecordImportRow(importOutcomeCreated)
		}
	}

	s.logger.Info("student sheet imported",
		zap.Int("total_rows", summary.TotalRows),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func (s *StudentImportService) skip(summary *ImportSummary, row int, reason, outcome string) {
	summary.Skipped++
	summary.Errors = append(summary.Errors, ImportRowError{Row: row, Reason: reason})
	if s.metrics != nil {
		s.metrics.RecordImportRow(outcome)
	}
}
