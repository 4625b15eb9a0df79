package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/academic"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
	nextSeq  int
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return (&mockStudentLookup{students: m.students}).FindByID(ctx, id)
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]*models.Student)
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	m.nextSeq++
	student.SequenceNo = m.nextSeq
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	if s, ok := m.students[id]; ok {
		s.Active = false
	}
	return nil
}

type mockPhotoRepo struct {
	photos map[string][]models.Photo
}

func (m *mockPhotoRepo) Create(ctx context.Context, photo *models.Photo) error {
	if m.photos == nil {
		m.photos = make(map[string][]models.Photo)
	}
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	m.photos[photo.StudentID] = append(m.photos[photo.StudentID], *photo)
	return nil
}

func (m *mockPhotoRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Photo, error) {
	return m.photos[studentID], nil
}

func (m *mockPhotoRepo) Delete(ctx context.Context, id string) error {
	for studentID, photos := range m.photos {
		kept := photos[:0]
		for _, p := range photos {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		m.photos[studentID] = kept
	}
	return nil
}

type mockPhotoStore struct {
	saved []string
}

func (m *mockPhotoStore) SaveStream(filename string, r io.Reader) (string, error) {
	io.Copy(io.Discard, r)
	m.saved = append(m.saved, filename)
	return "photos/" + filename, nil
}

func testStudentService(repo *mockStudentRepo, photos *mockPhotoRepo, store *mockPhotoStore) *StudentService {
	calendar := academic.NewCalendar(time.September)
	return NewStudentService(repo, photos, store, calendar, time.UTC, "/media", 1, 3, validator.New(), zap.NewNop())
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := testStudentService(repo, &mockPhotoRepo{}, &mockPhotoStore{})

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:  "  Ana Silva  ",
		StudentNo: "2024-0001",
		Grade:     "10",
		Section:   "A",
		Shift:     "Manhã",
		Program:   "Ciências",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", student.FullName)
	assert.Equal(t, 1, student.SequenceNo)
	assert.True(t, student.Active)
	assert.NotEmpty(t, student.SchoolYear)
	assert.Contains(t, student.SchoolYear, "/")
}

func TestStudentServiceCreateValidates(t *testing.T) {
	svc := testStudentService(&mockStudentRepo{}, &mockPhotoRepo{}, &mockPhotoStore{})

	_, err := svc.Create(context.Background(), CreateStudentRequest{FullName: "X"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceUpdatePartial(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testStudentService(repo, &mockPhotoRepo{}, &mockPhotoStore{})

	grade := "11"
	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, "11", updated.Grade)
	assert.Equal(t, "Ana Silva", updated.FullName)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testStudentService(repo, &mockPhotoRepo{}, &mockPhotoStore{})

	require.NoError(t, svc.Deactivate(context.Background(), "s1"))
	assert.False(t, repo.students["s1"].Active)

	err := svc.Deactivate(context.Background(), "ghost")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceAddPhoto(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	photos := &mockPhotoRepo{}
	store := &mockPhotoStore{}
	svc := testStudentService(repo, photos, store)

	photo, err := svc.AddPhoto(context.Background(), "s1", "face.jpg", strings.NewReader("img"), nil)
	require.NoError(t, err)
	assert.Equal(t, "s1", photo.StudentID)
	assert.True(t, strings.HasPrefix(photo.URL, "/media/photos/"))
	require.Len(t, store.saved, 1)
}

func TestStudentServiceAddPhotoRejectsBadExtension(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testStudentService(repo, &mockPhotoRepo{}, &mockPhotoStore{})

	_, err := svc.AddPhoto(context.Background(), "s1", "script.exe", strings.NewReader("img"), nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceAddPhotoEnforcesMax(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	photos := &mockPhotoRepo{photos: map[string][]models.Photo{
		"s1": {{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
	}}
	svc := testStudentService(repo, photos, &mockPhotoStore{})

	_, err := svc.AddPhoto(context.Background(), "s1", "face.jpg", strings.NewReader("img"), nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceRemovePhotoKeepsMinimum(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	photos := &mockPhotoRepo{photos: map[string][]models.Photo{
		"s1": {{ID: "p1", StudentID: "s1"}},
	}}
	svc := testStudentService(repo, photos, &mockPhotoStore{})

	err := svc.RemovePhoto(context.Background(), "s1", "p1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceRemovePhoto(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	photos := &mockPhotoRepo{photos: map[string][]models.Photo{
		"s1": {{ID: "p1", StudentID: "s1"}, {ID: "p2", StudentID: "s1"}},
	}}
	svc := testStudentService(repo, photos, &mockPhotoStore{})

	require.NoError(t, svc.RemovePhoto(context.Background(), "s1", "p2"))
	remaining, err := svc.ListPhotos(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestStudentServiceListRejectsUnknownSortField(t *testing.T) {
	svc := testStudentService(&mockStudentRepo{}, &mockPhotoRepo{}, &mockPhotoStore{})

	_, _, err := svc.List(context.Background(), models.StudentFilter{SortBy: "password_hash; DROP TABLE students"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
}

func TestStudentServiceListRejectsUnknownSortOrder(t *testing.T) {
	svc := testStudentService(&mockStudentRepo{}, &mockPhotoRepo{}, &mockPhotoStore{})

	_, _, err := svc.List(context.Background(), models.StudentFilter{SortBy: "full_name", SortOrder: "sideways"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceListAllowsKnownSort(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]*models.Student{"st-1": activeStudent("st-1")}}
	svc := testStudentService(repo, &mockPhotoRepo{}, &mockPhotoStore{})

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{SortBy: "full_name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}
