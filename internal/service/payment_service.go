package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/academic"
	"github.com/ndalu/portaria-api/internal/dto"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/export"
)

type paymentRepository interface {
	PaidPeriods(ctx context.Context, studentID, schoolYear string) ([]models.PaidPeriod, error)
	Pay(ctx context.Context, studentID string, months []string, schoolYear string, amount float64) (paid []string, alreadyPaid []string, err error)
	Cancel(ctx context.Context, studentID string, months []string, schoolYear string) ([]string, error)
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// PayRequest settles one or more tuition months for a student.
type PayRequest struct {
	Months     []string `json:"months" validate:"required,min=1,dive,required"`
	SchoolYear string   `json:"school_year" validate:"required"`
	Amount     float64  `json:"amount" validate:"gte=0"`
}

// CancelRequest reverses previously settled months.
type CancelRequest struct {
	Months     []string `json:"months" validate:"required,min=1,dive,required"`
	SchoolYear string   `json:"school_year" validate:"required"`
}

// PayResult reports which requested months were settled and which were
// skipped because a record already existed.
type PayResult struct {
	Paid        []string `json:"paid"`
	AlreadyPaid []string `json:"already_paid"`
}

// PaymentService owns the tuition ledger use cases: settling months,
// reversing them, the twelve-month statement, and the currency decision
// the gate relies on.
type PaymentService struct {
	repo      paymentRepository
	students  paymentStudentRepository
	calendar  academic.Calendar
	cache     *CacheService
	exports   exportRenderer
	graceDays int
	location  *time.Location
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, calendar academic.Calendar, cache *CacheService, exports exportRenderer, graceDays int, location *time.Location, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if location == nil {
		location = time.UTC
	}
	if graceDays <= 0 {
		graceDays = academic.DefaultGraceDays
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		calendar:  calendar,
		cache:     cache,
		exports:   exports,
		graceDays: graceDays,
		location:  location,
		validator: validate,
		logger:    logger,
	}
}

// Pay settles the requested months for the student. Months already
// settled are reported back rather than duplicated; when every requested
// month was already settled the call fails with a conflict.
func (s *PaymentService) Pay(ctx context.Context, studentID string, req PayRequest) (*PayResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if err := s.validateMonths(req.Months); err != nil {
		return nil, err
	}
	if _, err := s.mustFindStudent(ctx, studentID); err != nil {
		return nil, err
	}

	paid, already, err := s.repo.Pay(ctx, studentID, dedupe(req.Months), req.SchoolYear, req.Amount)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle payment")
	}
	if len(paid) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "all requested months are already paid")
	}

	s.invalidateStudent(ctx, studentID)
	s.logger.Info("tuition settled",
		zap.String("student_id", studentID),
		zap.String("school_year", req.SchoolYear),
		zap.Strings("months", paid))
	return &PayResult{Paid: paid, AlreadyPaid: already}, nil
}

// Cancel reverses the requested months. Cancelling months that were
// never paid is a conflict.
func (s *PaymentService) Cancel(ctx context.Context, studentID string, req CancelRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	if err := s.validateMonths(req.Months); err != nil {
		return nil, err
	}
	if _, err := s.mustFindStudent(ctx, studentID); err != nil {
		return nil, err
	}

	removed, err := s.repo.Cancel(ctx, studentID, dedupe(req.Months), req.SchoolYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel payment")
	}
	if len(removed) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "none of the requested months were paid")
	}

	s.invalidateStudent(ctx, studentID)
	s.logger.Info("tuition cancelled",
		zap.String("student_id", studentID),
		zap.String("school_year", req.SchoolYear),
		zap.Strings("months", removed))
	return removed, nil
}

// Statement builds the twelve-month breakdown plus the raw paid records
// for the student's school year. An empty schoolYear defaults to the
// year covering now.
func (s *PaymentService) Statement(ctx context.Context, studentID, schoolYear string) (*dto.PaymentStatementResponse, error) {
	if _, err := s.mustFindStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if schoolYear == "" {
		schoolYear = s.calendar.Year(time.Now().In(s.location))
	}

	records, err := s.repo.PaidPeriods(ctx, studentID, schoolYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paid periods")
	}

	paidSet := make(map[string]bool, len(records))
	for _, r := range records {
		if !academic.ValidMonth(r.Month) {
			s.logger.Error("paid period with unknown month name",
				zap.String("student_id", studentID),
				zap.String("month", r.Month))
			continue
		}
		paidSet[r.Month] = true
	}

	months := make([]dto.MonthStatus, 0, len(academic.Months))
	for _, m := range s.calendar.FiscalMonths() {
		months = append(months, dto.MonthStatus{Month: m, Paid: paidSet[m]})
	}

	return &dto.PaymentStatementResponse{
		StudentID:  studentID,
		SchoolYear: schoolYear,
		Months:     months,
		Records:    records,
	}, nil
}

// CurrentStatus decides whether the student's tuition is up to date as
// of the given instant, applying the configured grace window. Callers
// pass time.Now() outside of tests.
func (s *PaymentService) CurrentStatus(ctx context.Context, studentID string, asOf time.Time) (bool, error) {
	now := asOf.In(s.location)
	records, err := s.repo.PaidPeriods(ctx, studentID, s.calendar.Year(now))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paid periods")
	}
	months := make([]string, 0, len(records))
	for _, r := range records {
		if !academic.ValidMonth(r.Month) {
			s.logger.Error("paid period with unknown month name",
				zap.String("student_id", studentID),
				zap.String("month", r.Month))
			continue
		}
		months = append(months, r.Month)
	}
	return s.calendar.Current(months, now, s.graceDays), nil
}

// ExportStatement renders the student's statement as a downloadable
// file. Supported formats are "csv" and "pdf".
func (s *PaymentService) ExportStatement(ctx context.Context, studentID, schoolYear, format string) (*dto.ExportResponse, error) {
	student, err := s.mustFindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	statement, err := s.Statement(ctx, studentID, schoolYear)
	if err != nil {
		return nil, err
	}

	paidAt := make(map[string]string, len(statement.Records))
	amounts := make(map[string]string, len(statement.Records))
	for _, r := range statement.Records {
		paidAt[r.Month] = r.PaidAt.In(s.location).Format("02/01/2006")
		amounts[r.Month] = fmt.Sprintf("%.2f", r.Amount)
	}

	data := exportDataset(statement, paidAt, amounts)
	name := fmt.Sprintf("propinas_%s_%s", student.StudentNo, sanitizeYear(statement.SchoolYear))
	switch format {
	case "csv":
		return s.exports.SaveCSV(name+".csv", data)
	case "pdf":
		title := fmt.Sprintf("Propinas %s %s", student.FullName, statement.SchoolYear)
		return s.exports.SavePDF(name+".pdf", title, data)
	default:
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *PaymentService) validateMonths(months []string) error {
	for _, m := range months {
		if !academic.ValidMonth(m) {
			return appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown month %q", m))
		}
	}
	return nil
}

func (s *PaymentService) mustFindStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *PaymentService) invalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "recognition:"+studentID+"*"); err != nil {
		s.logger.Warn("failed to invalidate recognition cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func exportDataset(statement *dto.PaymentStatementResponse, paidAt, amounts map[string]string) export.Dataset {
	data := export.Dataset{Headers: []string{"Mês", "Pago", "Valor", "Data"}}
	for _, m := range statement.Months {
		paid := "Não"
		if m.Paid {
			paid = "Sim"
		}
		data.Rows = append(data.Rows, map[string]string{
			"Mês":   m.Month,
			"Pago":  paid,
			"Valor": amounts[m.Month],
			"Data":  paidAt[m.Month],
		})
	}
	return data
}

func sanitizeYear(schoolYear string) string {
	return strings.ReplaceAll(schoolYear, "/", "-")
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
