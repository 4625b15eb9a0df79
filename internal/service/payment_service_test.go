package service

import (
	"context"
	"database/sql"
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

type mockPaymentRepo struct {
	paid    map[string][]models.PaidPeriod
	payErr  error
	listErr error
}

func (m *mockPaymentRepo) PaidPeriods(ctx context.Context, studentID, schoolYear string) ([]models.PaidPeriod, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.PaidPeriod
	for _, p := range m.paid[studentID] {
		if schoolYear == "" || p.SchoolYear == schoolYear {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) Pay(ctx context.Context, studentID string, months []string, schoolYear string, amount float64) ([]string, []string, error) {
	if m.payErr != nil {
		return nil, nil, m.payErr
	}
	settled := make(map[string]bool)
	for _, p := range m.paid[studentID] {
		if p.SchoolYear == schoolYear {
			settled[p.Month] = true
		}
	}
	var paid, already []string
	for _, month := range months {
		if settled[month] {
			already = append(already, month)
			continue
		}
		if m.paid == nil {
			m.paid = make(map[string][]models.PaidPeriod)
		}
		m.paid[studentID] = append(m.paid[studentID], models.PaidPeriod{
			Month: month, SchoolYear: schoolYear, Amount: amount, PaidAt: time.Now(),
		})
		paid = append(paid, month)
	}
	return paid, already, nil
}

func (m *mockPaymentRepo) Cancel(ctx context.Context, studentID string, months []string, schoolYear string) ([]string, error) {
	requested := make(map[string]bool, len(months))
	for _, month := range months {
		requested[month] = true
	}
	var removed []string
	var kept []models.PaidPeriod
	for _, p := range m.paid[studentID] {
		if p.SchoolYear == schoolYear && requested[p.Month] {
			removed = append(removed, p.Month)
			continue
		}
		kept = append(kept, p)
	}
	if m.paid == nil {
		m.paid = make(map[string][]models.PaidPeriod)
	}
	m.paid[studentID] = kept
	return removed, nil
}

type mockStudentLookup struct {
	students map[string]*models.Student
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func testPaymentService(repo *mockPaymentRepo, students *mockStudentLookup) *PaymentService {
	calendar := academic.NewCalendar(time.September)
	return NewPaymentService(repo, students, calendar, nil, nil, 10, time.UTC, validator.New(), zap.NewNop())
}

func activeStudent(id string) *models.Student {
	return &models.Student{
		ID: id, FullName: "Ana Silva", StudentNo: "2024-0001", SequenceNo: 1,
		Grade: "10", Section: "A", Shift: "Manhã", Program: "Ciências",
		SchoolYear: "2024/2025", Active: true,
	}
}

func TestPaymentServicePay(t *testing.T) {
	repo := &mockPaymentRepo{}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	result, err := svc.Pay(context.Background(), "s1", PayRequest{
		Months:     []string{"Setembro", "Outubro", "Setembro"},
		SchoolYear: "2024/2025",
		Amount:     15000,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Setembro", "Outubro"}, result.Paid)
	assert.Empty(t, result.AlreadyPaid)
}

func TestPaymentServicePayAllAlreadySettled(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {{Month: "Setembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()}},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	_, err := svc.Pay(context.Background(), "s1", PayRequest{
		Months:     []string{"Setembro"},
		SchoolYear: "2024/2025",
		Amount:     15000,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentServicePayRejectsUnknownMonth(t *testing.T) {
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(&mockPaymentRepo{}, students)

	_, err := svc.Pay(context.Background(), "s1", PayRequest{
		Months:     []string{"September"},
		SchoolYear: "2024/2025",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentServicePayUnknownStudent(t *testing.T) {
	svc := testPaymentService(&mockPaymentRepo{}, &mockStudentLookup{})

	_, err := svc.Pay(context.Background(), "missing", PayRequest{
		Months:     []string{"Setembro"},
		SchoolYear: "2024/2025",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentServiceCancel(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {
			{Month: "Setembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
			{Month: "Outubro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
		},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	removed, err := svc.Cancel(context.Background(), "s1", CancelRequest{
		Months:     []string{"Outubro"},
		SchoolYear: "2024/2025",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Outubro"}, removed)
	assert.Len(t, repo.paid["s1"], 1)
}

func TestPaymentServiceCancelNothingPaid(t *testing.T) {
	repo := &mockPaymentRepo{}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	_, err := svc.Cancel(context.Background(), "s1", CancelRequest{
		Months:     []string{"Setembro"},
		SchoolYear: "2024/2025",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPaymentServiceStatement(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {
			{Month: "Setembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
			{Month: "Novembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
		},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	statement, err := svc.Statement(context.Background(), "s1", "2024/2025")
	require.NoError(t, err)
	require.Len(t, statement.Months, 12)
	// Fiscal order starts at Setembro.
	assert.Equal(t, "Setembro", statement.Months[0].Month)
	assert.True(t, statement.Months[0].Paid)
	assert.Equal(t, "Outubro", statement.Months[1].Month)
	assert.False(t, statement.Months[1].Paid)
	assert.Equal(t, "Novembro", statement.Months[2].Month)
	assert.True(t, statement.Months[2].Paid)
	assert.Len(t, statement.Records, 2)
}

func TestPaymentServiceStatementSkipsUnknownMonths(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {{Month: "Brumaire", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()}},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	statement, err := svc.Statement(context.Background(), "s1", "2024/2025")
	require.NoError(t, err)
	for _, m := range statement.Months {
		assert.False(t, m.Paid)
	}
}

func TestPaymentServiceCurrentStatusHonorsAsOf(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {{Month: "Outubro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()}},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	inGrace := time.Date(2024, time.November, 10, 9, 0, 0, 0, time.UTC)
	current, err := svc.CurrentStatus(context.Background(), "s1", inGrace)
	require.NoError(t, err)
	assert.True(t, current)

	graceExpired := time.Date(2024, time.November, 11, 9, 0, 0, 0, time.UTC)
	current, err = svc.CurrentStatus(context.Background(), "s1", graceExpired)
	require.NoError(t, err)
	assert.False(t, current)
}

func TestPaymentServiceCurrentStatusSkipsUnknownMonths(t *testing.T) {
	repo := &mockPaymentRepo{paid: map[string][]models.PaidPeriod{
		"s1": {
			{Month: "Thermidor", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
			{Month: "Novembro", SchoolYear: "2024/2025", Amount: 15000, PaidAt: time.Now()},
		},
	}}
	students := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1")}}
	svc := testPaymentService(repo, students)

	current, err := svc.CurrentStatus(context.Background(), "s1", time.Date(2024, time.November, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, current)
}
