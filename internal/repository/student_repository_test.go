package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "registration_number", "surname", "firstname", "other_name", "gender",
		"date_of_birth", "current_status", "parent_mobile_number", "address", "current_class_id",
		"passport_path", "created_at", "updated_at", "current_class_name",
	}).AddRow("st-1", "WG/001", "Okafor", "Chinedu", "", "male",
		nil, "active", "08030000000", "Lagos", "c1", nil, now, now, "Grade 1")
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, s.registration_number").
		WithArgs("%Okafor%", "c1").
		WillReturnRows(studentRows(t))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("%Okafor%", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.StudentFilter{Search: "Okafor", ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Okafor Chinedu", list[0].FullName())
	require.NotNil(t, list[0].CurrentClassName)
	assert.Equal(t, "Grade 1", *list[0].CurrentClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByRegistrationNumber(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM students WHERE registration_number").
		WithArgs("WG/001").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByRegistrationNumber(context.Background(), "WG/001", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM students WHERE registration_number").
		WithArgs("WG/404").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByRegistrationNumber(context.Background(), "WG/404", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDefaultsActiveStatus(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))

	student := &models.Student{RegistrationNumber: "WG/002", Surname: "Bello", Firstname: "Amina", Gender: "female"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusActive, student.CurrentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetPassportPath(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	path := "passports/abc.jpg"
	mock.ExpectExec("UPDATE students SET passport_path").
		WithArgs("st-1", &path, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPassportPath(context.Background(), "st-1", &path))
	assert.NoError(t, mock.ExpectationsWereMet())
}
