package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/sms-api/internal/models"
	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type classRepoStub struct {
	classes []models.StudentClass
	counts  map[string]int
}

func (c *classRepoStub) List(ctx context.Context) ([]models.StudentClass, error) {
	return c.classes, nil
}

func (c *classRepoStub) FindByID(ctx context.Context, id string) (*models.StudentClass, error) {
	for i := range c.classes {
		if c.classes[i].ID == id {
			return &c.classes[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *classRepoStub) FindByName(ctx context.Context, name string) (*models.StudentClass, error) {
	for i := range c.classes {
		if c.classes[i].Name == name {
			return &c.classes[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (c *classRepoStub) Create(ctx context.Context, class *models.StudentClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	c.classes = append(c.classes, *class)
	return nil
}

func (c *classRepoStub) Update(ctx context.Context, class *models.StudentClass) error {
	for i := range c.classes {
		if c.classes[i].ID == class.ID {
			c.classes[i] = *class
			return nil
		}
	}
	return sql.ErrNoRows
}

func (c *classRepoStub) Delete(ctx context.Context, id string) error {
	for i := range c.classes {
		if c.classes[i].ID == id {
			c.classes = append(c.classes[:i], c.classes[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (c *classRepoStub) CountStudents(ctx context.Context, id string) (int, error) {
	return c.counts[id], nil
}

func newImportServiceForTest(students *studentRepoStub, classes *classRepoStub) *StudentImportService {
	classSvc := NewClassService(classes, nil, nil)
	return NewStudentImportService(students, classSvc, nil, nil)
}

func TestStudentImportCreatesRowsAndClassesOnDemand(t *testing.T) {
	students := newStudentRepoStub()
	classes := &classRepoStub{}
	svc := newImportServiceForTest(students, classes)

	sheet := strings.Join([]string{
		"registration_number,surname,firstname,gender,current_class,date_of_birth",
		"WG/001,Okafor,Chinedu,MALE,Grade 1,2015-03-14",
		"WG/002,Bello,Amina,Female,Grade 1,",
		"WG/003,Eze,Ifeoma,female,Grade 2,",
	}, "\n")

	summary, err := svc.Import(context.Background(), strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 3, summary.Created)
	assert.Zero(t, summary.Skipped)

	// Grade 1 is created once and reused, Grade 2 created on its first row.
	assert.Len(t, classes.classes, 2)

	var genders []string
	for _, st := range students.students {
		genders = append(genders, st.Gender)
		assert.Equal(t, models.StudentStatusActive, st.CurrentStatus)
		require.NotNil(t, st.CurrentClassID)
	}
	for _, g := range genders {
		assert.Contains(t, []string{"male", "female"}, g)
	}
}

func TestStudentImportSkipsDuplicatesAndBlankRegistrations(t *testing.T) {
	students := newStudentRepoStub()
	require.NoError(t, students.Create(context.Background(), &models.Student{
		RegistrationNumber: "WG/001", Surname: "Okafor", Firstname: "Chinedu", Gender: "male",
	}))
	classes := &classRepoStub{}
	svc := newImportServiceForTest(students, classes)

	sheet := strings.Join([]string{
		"registration_number,surname,firstname,gender",
		"WG/001,Okafor,Chinedu,male",
		",Bello,Amina,female",
		"WG/004,Eze,Ifeoma,female",
	}, "\n")

	summary, err := svc.Import(context.Background(), strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, 2, summary.Errors[0].Row)
	assert.Contains(t, summary.Errors[0].Reason, "WG/001")
	assert.Equal(t, 3, summary.Errors[1].Row)

	// The pre-existing record is untouched.
	assert.Len(t, students.students, 2)
}

func TestStudentImportNeverOverwritesExistingStudents(t *testing.T) {
	students := newStudentRepoStub()
	require.NoError(t, students.Create(context.Background(), &models.Student{
		RegistrationNumber: "WG/001", Surname: "Okafor", Firstname: "Chinedu", Gender: "male", Address: "Lagos",
	}))
	svc := newImportServiceForTest(students, &classRepoStub{})

	sheet := "registration_number,surname,firstname,gender,address\nWG/001,Changed,Name,female,Abuja\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Zero(t, summary.Created)

	for _, st := range students.students {
		assert.Equal(t, "Okafor", st.Surname)
		assert.Equal(t, "Lagos", st.Address)
	}
}

func TestStudentImportSkipsUnparseableDates(t *testing.T) {
	students := newStudentRepoStub()
	svc := newImportServiceForTest(students, &classRepoStub{})

	sheet := "registration_number,surname,firstname,gender,date_of_birth\nWG/001,Okafor,Chinedu,male,14/03/2015\n"
	summary, err := svc.Import(context.Background(), strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, summary.Errors[0].Reason, "date_of_birth")
}

func TestStudentImportRejectsSheetWithoutRegistrationColumn(t *testing.T) {
	svc := newImportServiceForTest(newStudentRepoStub(), &classRepoStub{})

	_, err := svc.Import(context.Background(), strings.NewReader("surname,firstname\nOkafor,Chinedu\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentImportRejectsEmptySheet(t *testing.T) {
	svc := newImportServiceForTest(newStudentRepoStub(), &classRepoStub{})

	_, err := svc.Import(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
