package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ndalu/portaria-api/internal/models"
)

// EntryRepository persists the append-only gate decision log.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository constructs an EntryRepository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create appends a decision. Rows are immutable afterwards.
func (r *EntryRepository) Create(ctx context.Context, decision *models.EntryDecision) error {
	if decision.ID == "" {
		decision.ID = uuid.NewString()
	}
	if decision.CreatedAt.IsZero() {
		decision.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO entry_decisions (id, student_id, decided_by, status, denial_reason, created_at)
        VALUES (:id, :student_id, :decided_by, :status, :denial_reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, decision); err != nil {
		return fmt.Errorf("create entry decision: %w", err)
	}
	return nil
}

// ListSince returns decisions created at or after since, newest first,
// joined with student identity and the student's primary photo. The
// inner join on students drops orphaned rows whose student was removed.
func (r *EntryRepository) ListSince(ctx context.Context, since time.Time, limit, offset int) ([]models.EntryFeedRow, error) {
	const query = `SELECT d.id, d.student_id, s.full_name AS student_name, p.url AS photo_url,
               d.status, d.denial_reason, d.decided_by, u.full_name AS staff_name, d.created_at
        FROM entry_decisions d
        JOIN students s ON s.id = d.student_id
        JOIN users u ON u.id = d.decided_by
        LEFT JOIN LATERAL (
            SELECT url FROM photos WHERE student_id = s.id ORDER BY created_at ASC LIMIT 1
        ) p ON true
        WHERE d.created_at >= $1
        ORDER BY d.created_at DESC
        LIMIT $2 OFFSET $3`
	var rows []models.EntryFeedRow
	if err := r.db.SelectContext(ctx, &rows, query, since, limit, offset); err != nil {
		return nil, fmt.Errorf("list entry decisions: %w", err)
	}
	return rows, nil
}

// CountSince counts decisions created at or after since.
func (r *EntryRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM entry_decisions WHERE created_at >= $1", since); err != nil {
		return 0, fmt.Errorf("count entry decisions: %w", err)
	}
	return total, nil
}

// DistinctStaffSince counts the staff members who recorded at least one
// decision at or after since.
func (r *EntryRepository) DistinctStaffSince(ctx context.Context, since time.Time) (int, error) {
	var staff int
	if err := r.db.GetContext(ctx, &staff, "SELECT COUNT(DISTINCT decided_by) FROM entry_decisions WHERE created_at >= $1", since); err != nil {
		return 0, fmt.Errorf("count staff on duty: %w", err)
	}
	return staff, nil
}

// Summary aggregates the whole decision log.
func (r *EntryRepository) Summary(ctx context.Context) (*models.EntrySummary, error) {
	const query = `SELECT COUNT(*) AS total_decisions,
               COUNT(*) FILTER (WHERE status = 'ADMITTED') AS admitted,
               COUNT(*) FILTER (WHERE status = 'DENIED') AS denied,
               COUNT(DISTINCT DATE(created_at)) AS active_days,
               COUNT(DISTINCT decided_by) AS distinct_staff
        FROM entry_decisions`
	var summary models.EntrySummary
	if err := r.db.GetContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("entry summary: %w", err)
	}
	return &summary, nil
}
