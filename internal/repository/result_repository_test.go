package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryExists(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectQuery("SELECT 1 FROM results WHERE student_id").
		WithArgs("st-1", "s1", "t1", "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "st-1", "s1", "t1", "sub-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM results WHERE student_id").
		WithArgs("st-2", "s1", "t1", "sub-1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.Exists(context.Background(), "st-2", "s1", "t1", "sub-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateDefaultsZeroScores(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec("INSERT INTO results").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := &models.Result{StudentID: "st-1", SessionID: "s1", TermID: "t1", CurrentClassID: "c1", SubjectID: "sub-1"}
	require.NoError(t, repo.Create(context.Background(), result))
	assert.NotEmpty(t, result.ID)
	assert.Zero(t, result.TestScore)
	assert.Zero(t, result.ExamScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListByPeriodPreservesInsertionOrder(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	cols := []string{
		"id", "student_id", "session_id", "term_id", "current_class_id", "subject_id",
		"test_score", "exam_score", "created_at", "updated_at",
		"student_name", "registration_number", "subject_name", "class_name",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("r1", "st-1", "s1", "t1", "c1", "sub-1", 30.0, 50.0, now, now, "Okafor Chinedu", "WG/001", "Mathematics", "Grade 1").
		AddRow("r2", "st-1", "s1", "t1", "c1", "sub-2", 25.0, 40.0, now, now, "Okafor Chinedu", "WG/001", "English", "Grade 1")

	mock.ExpectQuery("SELECT r.id, r.student_id").
		WithArgs("s1", "t1").
		WillReturnRows(rows)

	list, err := repo.ListByPeriod(context.Background(), "s1", "t1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mathematics", list[0].SubjectName)
	assert.Equal(t, 80.0, list[0].TotalScore())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpdateScoresRunsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET test_score = $2, exam_score = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("r1", 35.0, 55.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET test_score = $2, exam_score = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("r2", 20.0, 45.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updates := []models.Result{
		{ID: "r1", TestScore: 35, ExamScore: 55},
		{ID: "r2", TestScore: 20, ExamScore: 45},
	}
	require.NoError(t, repo.UpdateScores(context.Background(), updates))
	assert.NoError(t, mock.ExpectationsWereMet())
}
