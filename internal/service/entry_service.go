package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/dto"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/export"
	"github.com/ndalu/portaria-api/pkg/jobs"
)

// JobTypeBroadcast tags jobs that fan a gate event out to the realtime
// channel.
const JobTypeBroadcast = "broadcast"

// GateEvent is the payload published on the realtime channel after a
// decision is recorded.
type GateEvent struct {
	FullName  string `json:"nome_completo"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type entryRepository interface {
	Create(ctx context.Context, decision *models.EntryDecision) error
	ListSince(ctx context.Context, since time.Time, limit, offset int) ([]models.EntryFeedRow, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	DistinctStaffSince(ctx context.Context, since time.Time) (int, error)
	Summary(ctx context.Context) (*models.EntrySummary, error)
}

type entryStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type entryAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type exportRenderer interface {
	SaveCSV(name string, data export.Dataset) (*dto.ExportResponse, error)
	SavePDF(name, title string, data export.Dataset) (*dto.ExportResponse, error)
}

// RecordRequest captures an admit or deny event at the gate.
type RecordRequest struct {
	Status       models.EntryStatus `json:"status" validate:"required"`
	DenialReason *string            `json:"denial_reason,omitempty"`
	IP           string             `json:"-"`
	UserAgent    string             `json:"-"`
}

// EntryService owns the append-only gate decision log: recording
// decisions, the live daily feed, aggregate reporting and file exports.
// The realtime broadcast is a post-commit side effect pushed through the
// job queue so a slow or down broker never blocks the decision.
type EntryService struct {
	repo      entryRepository
	students  entryStudentRepository
	audits    entryAuditRepository
	queue     jobEnqueuer
	exports   exportRenderer
	location  *time.Location
	pageSize  int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEntryService constructs an EntryService.
func NewEntryService(repo entryRepository, students entryStudentRepository, audits entryAuditRepository, queue jobEnqueuer, exports exportRenderer, location *time.Location, pageSize int, validate *validator.Validate, logger *zap.Logger) *EntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if location == nil {
		location = time.UTC
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &EntryService{
		repo:      repo,
		students:  students,
		audits:    audits,
		queue:     queue,
		exports:   exports,
		location:  location,
		pageSize:  pageSize,
		validator: validate,
		logger:    logger,
	}
}

// Record appends a decision for the student and schedules the realtime
// broadcast. Denials require a reason.
func (s *EntryService) Record(ctx context.Context, studentID, decidedBy string, req RecordRequest) (*models.EntryDecision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown status %q", req.Status))
	}
	if req.Status == models.EntryDenied && (req.DenialReason == nil || *req.DenialReason == "") {
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "denial requires a reason")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	decision := &models.EntryDecision{
		StudentID:    student.ID,
		DecidedBy:    decidedBy,
		Status:       req.Status,
		DenialReason: req.DenialReason,
		CreatedAt:    time.Now().In(s.location),
	}
	if err := s.repo.Create(ctx, decision); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}

	s.broadcast(student, decision)
	s.audit(ctx, decidedBy, decision, req)

	return decision, nil
}

// TodayFeed pages through today's decisions, newest first. Today starts
// at local midnight in the school's timezone.
func (s *EntryService) TodayFeed(ctx context.Context, page int) (*dto.TodayFeedResponse, error) {
	if page < 1 {
		page = 1
	}
	since := s.startOfToday()

	total, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count decisions")
	}
	staff, err := s.repo.DistinctStaffSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count staff on duty")
	}

	offset := (page - 1) * s.pageSize
	rows, err := s.repo.ListSince(ctx, since, s.pageSize, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list decisions")
	}
	if rows == nil {
		rows = []models.EntryFeedRow{}
	}

	lastPage := (total + s.pageSize - 1) / s.pageSize
	if lastPage < 1 {
		lastPage = 1
	}

	return &dto.TodayFeedResponse{
		Decisions:   rows,
		IsLastPage:  page >= lastPage,
		TotalToday:  total,
		StaffOnDuty: staff,
	}, nil
}

// Summary aggregates the whole decision log.
func (s *EntryService) Summary(ctx context.Context) (*models.EntrySummary, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate decisions")
	}
	return summary, nil
}

// ExportToday renders today's feed as a downloadable file. Supported
// formats are "csv" and "pdf".
func (s *EntryService) ExportToday(ctx context.Context, format string) (*dto.ExportResponse, error) {
	since := s.startOfToday()
	total, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count decisions")
	}
	rows, err := s.repo.ListSince(ctx, since, total, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list decisions")
	}

	data := export.Dataset{
		Headers: []string{"Aluno", "Estado", "Motivo", "Vigilante", "Hora"},
	}
	for _, row := range rows {
		reason := ""
		if row.DenialReason != nil {
			reason = *row.DenialReason
		}
		data.Rows = append(data.Rows, map[string]string{
			"Aluno":     row.StudentName,
			"Estado":    string(row.Status),
			"Motivo":    reason,
			"Vigilante": row.StaffName,
			"Hora":      row.CreatedAt.In(s.location).Format("15:04:05"),
		})
	}

	name := fmt.Sprintf("entradas_%s", since.Format("2006-01-02"))
	switch format {
	case "csv":
		return s.exports.SaveCSV(name+".csv", data)
	case "pdf":
		return s.exports.SavePDF(name+".pdf", "Registo de Entradas "+since.Format("02/01/2006"), data)
	default:
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *EntryService) startOfToday() time.Time {
	now := time.Now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

func (s *EntryService) broadcast(student *models.Student, decision *models.EntryDecision) {
	if s.queue == nil {
		return
	}
	event := GateEvent{
		FullName:  student.FullName,
		Timestamp: decision.CreatedAt.Format(time.RFC3339),
		Status:    string(decision.Status),
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeBroadcast,
		Payload: event,
	}); err != nil {
		s.logger.Warn("failed to enqueue gate broadcast", zap.String("student_id", student.ID), zap.Error(err))
	}
}

func (s *EntryService) audit(ctx context.Context, decidedBy string, decision *models.EntryDecision, req RecordRequest) {
	if s.audits == nil {
		return
	}
	action := models.AuditActionEntryAdmit
	if decision.Status == models.EntryDenied {
		action = models.AuditActionEntryDeny
	}
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &decidedBy,
		Action:     action,
		Resource:   "entry_decisions",
		ResourceID: &decision.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, decision.Status)),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record decision audit log", zap.Error(err))
	}
}
