package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/jobs"
)

// JobTypeMail tags jobs that deliver onboarding mail.
const JobTypeMail = "mail"

// MailJob is the payload for onboarding mail delivery.
type MailJob struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Pin   string `json:"pin"`
}

type staffUserRepository interface {
	ExistsByContact(ctx context.Context, email, phone string) (bool, error)
	CreateStaff(ctx context.Context, user *models.User, profile *models.StaffProfile) error
	ListStaff(ctx context.Context) ([]models.StaffDetail, error)
	FindStaffByID(ctx context.Context, id string) (*models.StaffDetail, error)
	UpdateStaff(ctx context.Context, profile *models.StaffProfile) error
	DeactivateStaff(ctx context.Context, profileID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateStaffRequest onboards a new gate-staff member.
type CreateStaffRequest struct {
	FullName string  `json:"full_name" validate:"required,min=3"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"required"`
	Shift    string  `json:"shift" validate:"required"`
	Notes    *string `json:"notes,omitempty"`
}

// UpdateStaffRequest modifies a staff profile.
type UpdateStaffRequest struct {
	Shift *string `json:"shift,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// StaffService onboards and manages gate staff. Onboarding generates a
// 4-digit PIN, stores only its bcrypt hash and pushes delivery through
// the job queue so mail latency never blocks the admin request.
type StaffService struct {
	repo      staffUserRepository
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService constructs a StaffService.
func NewStaffService(repo staffUserRepository, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{repo: repo, queue: queue, validator: validate, logger: logger}
}

// Create onboards a staff member and schedules PIN delivery.
func (s *StaffService) Create(ctx context.Context, createdBy string, req CreateStaffRequest) (*models.StaffDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.repo.ExistsByContact(ctx, email, req.Phone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing accounts")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email or phone already in use")
	}

	pin, err := generatePIN()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate pin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}

	user := &models.User{
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         models.RoleVigilante,
		Active:       true,
	}
	profile := &models.StaffProfile{
		Shift: req.Shift,
		Notes: req.Notes,
	}
	if err := s.repo.CreateStaff(ctx, user, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create staff account")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeMail,
			Payload: MailJob{Email: user.Email, Name: user.FullName, Pin: pin},
		}); err != nil {
			s.logger.Warn("failed to enqueue onboarding mail", zap.String("email", user.Email), zap.Error(err))
		}
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &createdBy,
		Action:     models.AuditActionStaffCreate,
		Resource:   "staff_profiles",
		ResourceID: &profile.ID,
		NewValues:  []byte(fmt.Sprintf(`{"email":%q}`, user.Email)),
	}); err != nil {
		s.logger.Warn("failed to record staff creation audit log", zap.Error(err))
	}

	s.logger.Info("gate staff onboarded", zap.String("staff_id", profile.ID), zap.String("email", user.Email))
	return &models.StaffDetail{
		StaffProfile: *profile,
		Email:        user.Email,
		Phone:        user.Phone,
		FullName:     user.FullName,
		Active:       user.Active,
	}, nil
}

// List returns all staff profiles with their accounts.
func (s *StaffService) List(ctx context.Context) ([]models.StaffDetail, error) {
	staff, err := s.repo.ListStaff(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	if staff == nil {
		staff = []models.StaffDetail{}
	}
	return staff, nil
}

// Get fetches one staff member.
func (s *StaffService) Get(ctx context.Context, id string) (*models.StaffDetail, error) {
	detail, err := s.repo.FindStaffByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff member")
	}
	return detail, nil
}

// Update applies profile changes.
func (s *StaffService) Update(ctx context.Context, id string, req UpdateStaffRequest) (*models.StaffDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Shift != nil {
		detail.Shift = *req.Shift
	}
	if req.Notes != nil {
		detail.Notes = req.Notes
	}
	if err := s.repo.UpdateStaff(ctx, &detail.StaffProfile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staff member")
	}
	return detail, nil
}

// Deactivate disables the staff member's account. Their recorded
// decisions stay attributed to them.
func (s *StaffService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeactivateStaff(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate staff member")
	}
	return nil
}

func generatePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
