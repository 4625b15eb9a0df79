package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type mockStaffRepo struct {
	users    map[string]*models.User
	profiles map[string]*models.StaffProfile
	logs     []*models.AuditLog
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{
		users:    make(map[string]*models.User),
		profiles: make(map[string]*models.StaffProfile),
	}
}

func (m *mockStaffRepo) ExistsByContact(ctx context.Context, email, phone string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email || (phone != "" && u.Phone == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStaffRepo) CreateStaff(ctx context.Context, user *models.User, profile *models.StaffProfile) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.UserID = user.ID
	m.users[user.ID] = user
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockStaffRepo) ListStaff(ctx context.Context) ([]models.StaffDetail, error) {
	var out []models.StaffDetail
	for _, p := range m.profiles {
		u := m.users[p.UserID]
		out = append(out, models.StaffDetail{
			StaffProfile: *p, Email: u.Email, Phone: u.Phone, FullName: u.FullName, Active: u.Active,
		})
	}
	return out, nil
}

func (m *mockStaffRepo) FindStaffByID(ctx context.Context, id string) (*models.StaffDetail, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	u := m.users[p.UserID]
	return &models.StaffDetail{
		StaffProfile: *p, Email: u.Email, Phone: u.Phone, FullName: u.FullName, Active: u.Active,
	}, nil
}

func (m *mockStaffRepo) UpdateStaff(ctx context.Context, profile *models.StaffProfile) error {
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockStaffRepo) DeactivateStaff(ctx context.Context, profileID string) error {
	if p, ok := m.profiles[profileID]; ok {
		m.users[p.UserID].Active = false
	}
	return nil
}

func (m *mockStaffRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func TestStaffServiceCreate(t *testing.T) {
	repo := newMockStaffRepo()
	queue := &mockEnqueuer{}
	svc := NewStaffService(repo, queue, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), "admin-1", CreateStaffRequest{
		FullName: "Guarda Um",
		Email:    "Guarda@Escola.AO",
		Phone:    "+244900000001",
		Shift:    "Manhã",
	})
	require.NoError(t, err)
	assert.Equal(t, "guarda@escola.ao", detail.Email)
	assert.Equal(t, models.RoleVigilante, repo.users[detail.UserID].Role)
	assert.True(t, detail.Active)

	// The PIN leaves the service only through the mail job, as a 4-digit
	// code whose bcrypt hash is what got persisted.
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeMail, queue.jobs[0].Type)
	mail, ok := queue.jobs[0].Payload.(MailJob)
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}$`), mail.Pin)
	hash := repo.users[detail.UserID].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(mail.Pin)))

	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionStaffCreate, repo.logs[0].Action)
}

func TestStaffServiceCreateDuplicateContact(t *testing.T) {
	repo := newMockStaffRepo()
	svc := NewStaffService(repo, &mockEnqueuer{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", CreateStaffRequest{
		FullName: "Guarda Um", Email: "guarda@escola.ao", Phone: "+244900000001", Shift: "Manhã",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "admin-1", CreateStaffRequest{
		FullName: "Guarda Dois", Email: "guarda@escola.ao", Phone: "+244900000002", Shift: "Tarde",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestStaffServiceCreateValidates(t *testing.T) {
	svc := NewStaffService(newMockStaffRepo(), &mockEnqueuer{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", CreateStaffRequest{Email: "bad"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStaffServiceUpdateAndDeactivate(t *testing.T) {
	repo := newMockStaffRepo()
	svc := NewStaffService(repo, &mockEnqueuer{}, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), "admin-1", CreateStaffRequest{
		FullName: "Guarda Um", Email: "guarda@escola.ao", Phone: "+244900000001", Shift: "Manhã",
	})
	require.NoError(t, err)

	shift := "Tarde"
	updated, err := svc.Update(context.Background(), detail.ID, UpdateStaffRequest{Shift: &shift})
	require.NoError(t, err)
	assert.Equal(t, "Tarde", updated.Shift)

	require.NoError(t, svc.Deactivate(context.Background(), detail.ID))
	assert.False(t, repo.users[detail.UserID].Active)
}

func TestStaffServiceGetUnknown(t *testing.T) {
	svc := NewStaffService(newMockStaffRepo(), &mockEnqueuer{}, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
