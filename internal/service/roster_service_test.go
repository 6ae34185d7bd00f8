package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seating-api/internal/dto"
	"github.com/noah-isme/exam-seating-api/internal/models"
	appErrors "github.com/noah-isme/exam-seating-api/pkg/errors"
)

type fakeStudentRepo struct {
	students map[string]models.Student
	bulk     []models.Student
}

func newFakeStudentRepo(students ...models.Student) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: make(map[string]models.Student)}
	for _, s := range students {
		repo.students[s.RegNo] = s
	}
	return repo
}

func (f *fakeStudentRepo) List(_ context.Context, _ models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) ListAll(_ context.Context) ([]models.Student, error) {
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStudentRepo) FindByRegNo(_ context.Context, regNo string) (*models.Student, error) {
	s, ok := f.students[regNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	f.students[student.RegNo] = *student
	return nil
}

func (f *fakeStudentRepo) BulkCreate(_ context.Context, students []models.Student) error {
	for _, s := range students {
		f.students[s.RegNo] = s
	}
	f.bulk = students
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	if _, ok := f.students[student.RegNo]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.RegNo] = *student
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, regNo string) error {
	if _, ok := f.students[regNo]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, regNo)
	return nil
}

func TestRosterServiceCreateRejectsDuplicateRegNo(t *testing.T) {
	repo := newFakeStudentRepo(models.Student{RegNo: "s1", FullName: "Ana", Subject: "MATH"})
	svc := NewRosterService(repo, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		RegNo: "s1", FullName: "Impostor", Subject: "BIO",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRoster.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceCreateSuccess(t *testing.T) {
	repo := newFakeStudentRepo()
	svc := NewRosterService(repo, nil, nil)

	student, err := svc.Create(context.Background(), dto.CreateStudentRequest{
		RegNo: "s1", FullName: "Ana", Subject: "MATH",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", student.RegNo)
	assert.Contains(t, repo.students, "s1")
}

func TestRosterServiceCreateValidatesPayload(t *testing.T) {
	svc := NewRosterService(newFakeStudentRepo(), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateStudentRequest{RegNo: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceBulkCreateRejectsDuplicateInBatch(t *testing.T) {
	svc := NewRosterService(newFakeStudentRepo(), nil, nil)

	_, err := svc.BulkCreate(context.Background(), dto.BulkCreateStudentsRequest{
		Students: []dto.CreateStudentRequest{
			{RegNo: "s1", FullName: "Ana", Subject: "MATH"},
			{RegNo: "s1", FullName: "Twin", Subject: "BIO"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRoster.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceBulkCreateSuccess(t *testing.T) {
	repo := newFakeStudentRepo()
	svc := NewRosterService(repo, nil, nil)

	count, err := svc.BulkCreate(context.Background(), dto.BulkCreateStudentsRequest{
		Students: []dto.CreateStudentRequest{
			{RegNo: "s1", FullName: "Ana", Subject: "MATH"},
			{RegNo: "s2", FullName: "Ben", Subject: "BIO"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, repo.bulk, 2)
}

func TestRosterServiceGetMissingStudent(t *testing.T) {
	svc := NewRosterService(newFakeStudentRepo(), nil, nil)

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceUpdateMissingStudent(t *testing.T) {
	svc := NewRosterService(newFakeStudentRepo(), nil, nil)

	_, err := svc.Update(context.Background(), "ghost", dto.UpdateStudentRequest{
		FullName: "Nobody", Subject: "MATH",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceDeleteSuccess(t *testing.T) {
	repo := newFakeStudentRepo(models.Student{RegNo: "s1", FullName: "Ana", Subject: "MATH"})
	svc := NewRosterService(repo, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.NotContains(t, repo.students, "s1")
}
