package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/academic"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type mockPhotoLookup struct {
	photos map[string]*models.Photo
	err    error
}

func (m *mockPhotoLookup) FirstByStudent(ctx context.Context, studentID string) (*models.Photo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.photos[studentID], nil
}

func testRecognitionService(students *mockStudentLookup, photos *mockPhotoLookup, payments *mockPaymentRepo, cohort *mockCohortRepo) *RecognitionService {
	calendar := academic.NewCalendar(time.September)
	roster := NewRosterService(cohort, zap.NewNop())
	paymentSvc := NewPaymentService(payments, students, calendar, nil, nil, 10, time.UTC, validator.New(), zap.NewNop())
	return NewRecognitionService(students, photos, roster, paymentSvc, nil, zap.NewNop())
}

func TestRecognitionServiceLookup(t *testing.T) {
	student := activeStudent("s1")
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": student}}
	url := "/media/photos/s1.jpg"
	photos := &mockPhotoLookup{photos: map[string]*models.Photo{
		"s1": {ID: "p1", StudentID: "s1", URL: url},
	}}
	payments := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {{Month: "Setembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()}},
	}}
	cohort := &mockCohortRepo{members: []models.CohortMember{
		{ID: "s2", FullName: "Bruno Costa"},
		{ID: "s1", FullName: "Ana Silva"},
	}}
	svc := testRecognitionService(students, photos, payments, cohort)

	result, err := svc.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", result.FullName)
	assert.Equal(t, 1, result.Rank)
	require.NotNil(t, result.PhotoURL)
	assert.Equal(t, url, *result.PhotoURL)
	assert.Equal(t, "2024/2025", result.SchoolYear)
	require.Len(t, result.MonthlyStatus, 12)
	assert.Equal(t, "Setembro", result.MonthlyStatus[0].Month)
	assert.True(t, result.MonthlyStatus[0].Paid)
}

func TestRecognitionServiceLookupNoPhoto(t *testing.T) {
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testRecognitionService(students, &mockPhotoLookup{}, &mockPaymentRepo{}, &mockCohortRepo{})

	result, err := svc.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, result.PhotoURL)
	assert.False(t, result.TuitionPaid)
}

func TestRecognitionServiceLookupUnknownStudent(t *testing.T) {
	svc := testRecognitionService(&mockStudentLookup{}, &mockPhotoLookup{}, &mockPaymentRepo{}, &mockCohortRepo{})

	_, err := svc.Lookup(context.Background(), "ghost")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecognitionServiceLookupInactiveStudent(t *testing.T) {
	student := activeStudent("s1")
	student.Active = false
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": student}}
	svc := testRecognitionService(students, &mockPhotoLookup{}, &mockPaymentRepo{}, &mockCohortRepo{})

	_, err := svc.Lookup(context.Background(), "s1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecognitionServiceLookupPhotoFailureIsNonFatal(t *testing.T) {
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	photos := &mockPhotoLookup{err: assert.AnError}
	svc := testRecognitionService(students, photos, &mockPaymentRepo{}, &mockCohortRepo{})

	result, err := svc.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, result.PhotoURL)
}
