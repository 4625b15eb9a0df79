package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ndalu/portaria-api/internal/models"
)

// UserRepository manages user accounts, gate-staff profiles and the
// audit trail.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail fetches a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, phone, password_hash, full_name, role, active, last_login, created_at, updated_at
        FROM users WHERE email = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, phone, password_hash, full_name, role, active, last_login, created_at, updated_at
        FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByContact reports whether a user already uses the email or phone.
func (r *UserRepository) ExistsByContact(ctx context.Context, email, phone string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR ($2 <> '' AND phone = $2))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, phone); err != nil {
		return false, fmt.Errorf("check contact: %w", err)
	}
	return exists, nil
}

// CreateStaff inserts the user account and its staff profile in one
// transaction.
func (r *UserRepository) CreateStaff(ctx context.Context, user *models.User, profile *models.StaffProfile) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.UserID = user.ID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create staff: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const userQuery = `INSERT INTO users (id, email, phone, password_hash, full_name, role, active, created_at, updated_at)
        VALUES (:id, :email, :phone, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return fmt.Errorf("create staff user: %w", err)
	}

	const profileQuery = `INSERT INTO staff_profiles (id, user_id, shift, notes, created_at, updated_at)
        VALUES (:id, :user_id, :shift, :notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
		return fmt.Errorf("create staff profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create staff: %w", err)
	}
	commit = true
	return nil
}

// ListStaff returns gate-staff profiles joined with their accounts.
func (r *UserRepository) ListStaff(ctx context.Context) ([]models.StaffDetail, error) {
	const query = `SELECT sp.id, sp.user_id, sp.shift, sp.notes, sp.created_at, sp.updated_at,
               u.email, u.phone, u.full_name, u.active
        FROM staff_profiles sp
        JOIN users u ON u.id = sp.user_id
        ORDER BY u.full_name ASC`
	var staff []models.StaffDetail
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// FindStaffByID fetches one staff profile with its account.
func (r *UserRepository) FindStaffByID(ctx context.Context, id string) (*models.StaffDetail, error) {
	const query = `SELECT sp.id, sp.user_id, sp.shift, sp.notes, sp.created_at, sp.updated_at,
               u.email, u.phone, u.full_name, u.active
        FROM staff_profiles sp
        JOIN users u ON u.id = sp.user_id
        WHERE sp.id = $1`
	var detail models.StaffDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateStaff modifies a staff profile.
func (r *UserRepository) UpdateStaff(ctx context.Context, profile *models.StaffProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff_profiles SET shift = :shift, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update staff profile: %w", err)
	}
	return nil
}

// DeactivateStaff disables the underlying account; the profile stays for
// historical decisions.
func (r *UserRepository) DeactivateStaff(ctx context.Context, profileID string) error {
	const query = `UPDATE users SET active = false, updated_at = $2
        WHERE id = (SELECT user_id FROM staff_profiles WHERE id = $1)`
	if _, err := r.db.ExecContext(ctx, query, profileID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate staff: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $2 WHERE id = $1", id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateAuditLog appends an audit record.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
