package service

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/westgate-schools/sms-api/pkg/errors"
)

type storageStub struct {
	files   map[string]bool
	deleted []string
	saveErr error
}

func newStorageStub() *storageStub {
	return &storageStub{files: map[string]bool{}}
}

func (s *storageStub) SaveUpload(subdir string, file *multipart.FileHeader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	name := subdir + "/" + file.Filename
	s.files[name] = true
	return name, nil
}

// Delete mirrors local storage: removing a missing file is not an error.
func (s *storageStub) Delete(filename string) error {
	s.deleted = append(s.deleted, filename)
	delete(s.files, filename)
	return nil
}

func (s *storageStub) Exists(filename string) bool {
	return s.files[filename]
}

func (s *storageStub) Path(filename string) string {
	return "/uploads/" + filename
}

func TestStudentServiceCreateNormalisesPayload(t *testing.T) {
	students := newStudentRepoStub()
	classes := &classRepoStub{}
	svc := NewStudentService(students, classes, newStorageStub(), nil, nil)

	created, err := svc.Create(context.Background(), StudentRequest{
		RegistrationNumber: "  WG/001 ",
		Surname:            "Okafor",
		Firstname:          "Chinedu",
		Gender:             "MALE",
		DateOfBirth:        "2015-03-14",
	})
	require.NoError(t, err)
	assert.Equal(t, "WG/001", created.RegistrationNumber)
	assert.Equal(t, "male", created.Gender)
	require.NotNil(t, created.DateOfBirth)
	assert.Equal(t, "active", created.CurrentStatus)
}

func TestStudentServiceCreateRejectsDuplicateRegistration(t *testing.T) {
	students := newStudentRepoStub()
	svc := NewStudentService(students, &classRepoStub{}, newStorageStub(), nil, nil)

	_, err := svc.Create(context.Background(), StudentRequest{
		RegistrationNumber: "WG/001", Surname: "Okafor", Firstname: "Chinedu", Gender: "male",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), StudentRequest{
		RegistrationNumber: "WG/001", Surname: "Bello", Firstname: "Amina", Gender: "female",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRejectsUnknownClass(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), &classRepoStub{}, newStorageStub(), nil, nil)

	ghost := "no-such-class"
	_, err := svc.Create(context.Background(), StudentRequest{
		RegistrationNumber: "WG/001", Surname: "Okafor", Firstname: "Chinedu", Gender: "male",
		CurrentClassID: &ghost,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeleteRemovesPassportFile(t *testing.T) {
	students := newStudentRepoStub()
	store := newStorageStub()
	svc := NewStudentService(students, &classRepoStub{}, store, nil, nil)

	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)
	passport := "passports/photo.jpg"
	store.files[passport] = true
	require.NoError(t, students.SetPassportPath(context.Background(), id, &passport))

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Contains(t, store.deleted, passport)
	assert.False(t, store.Exists(passport))
	assert.Contains(t, students.deleted, id)
}

func TestStudentServiceDeleteSurvivesMissingPassportFile(t *testing.T) {
	students := newStudentRepoStub()
	store := newStorageStub()
	svc := NewStudentService(students, &classRepoStub{}, store, nil, nil)

	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)
	gone := "passports/already-gone.jpg"
	require.NoError(t, students.SetPassportPath(context.Background(), id, &gone))

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Contains(t, students.deleted, id)
}

func TestStudentServiceDeleteWithoutPassport(t *testing.T) {
	students := newStudentRepoStub()
	store := newStorageStub()
	svc := NewStudentService(students, &classRepoStub{}, store, nil, nil)

	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)
	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Empty(t, store.deleted)
}

func TestStudentServiceUploadPassportRejectsNonImage(t *testing.T) {
	students := newStudentRepoStub()
	svc := NewStudentService(students, &classRepoStub{}, newStorageStub(), nil, nil)
	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)

	_, err := svc.UploadPassport(context.Background(), id, &multipart.FileHeader{Filename: "notes.pdf"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUploadPassportReplacesOldFile(t *testing.T) {
	students := newStudentRepoStub()
	store := newStorageStub()
	svc := NewStudentService(students, &classRepoStub{}, store, nil, nil)
	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)

	old := "passports/old.jpg"
	store.files[old] = true
	require.NoError(t, students.SetPassportPath(context.Background(), id, &old))

	updated, err := svc.UploadPassport(context.Background(), id, &multipart.FileHeader{Filename: "new.jpg"})
	require.NoError(t, err)
	require.NotNil(t, updated.PassportPath)
	assert.Equal(t, "passports/new.jpg", *updated.PassportPath)
	assert.Contains(t, store.deleted, old)
}

func TestStudentServiceUploadPassportStorageFailure(t *testing.T) {
	students := newStudentRepoStub()
	store := newStorageStub()
	store.saveErr = errors.New("disk full")
	svc := NewStudentService(students, &classRepoStub{}, store, nil, nil)
	id := seedStudent(t, students, "WG/001", "Okafor", "Chinedu", nil)

	_, err := svc.UploadPassport(context.Background(), id, &multipart.FileHeader{Filename: "photo.jpg"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
