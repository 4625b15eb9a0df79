package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ndalu/portaria-api/internal/models"
)

// PhotoRepository manages student photo rows. The files themselves live
// in the photo store; only URLs are persisted here.
type PhotoRepository struct {
	db *sqlx.DB
}

// NewPhotoRepository constructs a PhotoRepository.
func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a photo record.
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO photos (id, student_id, url, caption, created_at)
        VALUES (:id, :student_id, :url, :caption, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, photo); err != nil {
		return fmt.Errorf("create photo: %w", err)
	}
	return nil
}

// ListByStudent returns a student's photos, oldest first.
func (r *PhotoRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Photo, error) {
	const query = `SELECT id, student_id, url, caption, created_at FROM photos
        WHERE student_id = $1 ORDER BY created_at ASC`
	var photos []models.Photo
	if err := r.db.SelectContext(ctx, &photos, query, studentID); err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// FirstByStudent returns the primary (earliest) photo, or nil when the
// student has none.
func (r *PhotoRepository) FirstByStudent(ctx context.Context, studentID string) (*models.Photo, error) {
	const query = `SELECT id, student_id, url, caption, created_at FROM photos
        WHERE student_id = $1 ORDER BY created_at ASC LIMIT 1`
	var photo models.Photo
	if err := r.db.GetContext(ctx, &photo, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("first photo: %w", err)
	}
	return &photo, nil
}

// Delete removes a photo row.
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM photos WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}
