package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndalu/portaria-api/internal/models"
)

func newEntryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEntryRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewEntryRepository(db)

	mock.ExpectExec("INSERT INTO entry_decisions").
		WithArgs(sqlmock.AnyArg(), "student-1", "staff-1", models.EntryAdmitted, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	decision := &models.EntryDecision{StudentID: "student-1", DecidedBy: "staff-1", Status: models.EntryAdmitted}
	err := repo.Create(context.Background(), decision)
	require.NoError(t, err)
	assert.NotEmpty(t, decision.ID)
	assert.False(t, decision.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryListSince(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewEntryRepository(db)

	since := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	photo := "/media/photos/p1.jpg"
	rows := sqlmock.NewRows([]string{"id", "student_id", "student_name", "photo_url", "status", "denial_reason", "decided_by", "staff_name", "created_at"}).
		AddRow("d2", "student-2", "Bruno Costa", nil, "DENIED", "propina em atraso", "staff-1", "Guarda Um", since.Add(2*time.Hour)).
		AddRow("d1", "student-1", "Ana Silva", photo, "ADMITTED", nil, "staff-1", "Guarda Um", since.Add(time.Hour))
	mock.ExpectQuery("SELECT d.id, d.student_id, s.full_name AS student_name").
		WithArgs(since, 20, 0).
		WillReturnRows(rows)

	feed, err := repo.ListSince(context.Background(), since, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, models.EntryDenied, feed[0].Status)
	assert.Nil(t, feed[0].PhotoURL)
	require.NotNil(t, feed[1].PhotoURL)
	assert.Equal(t, photo, *feed[1].PhotoURL)
	assert.Equal(t, "Guarda Um", feed[1].StaffName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryCountSince(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewEntryRepository(db)

	since := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM entry_decisions").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositoryDistinctStaffSince(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewEntryRepository(db)

	since := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT decided_by\\) FROM entry_decisions").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	staff, err := repo.DistinctStaffSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 2, staff)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepositorySummary(t *testing.T) {
	db, mock, cleanup := newEntryMock(t)
	defer cleanup()
	repo := NewEntryRepository(db)

	rows := sqlmock.NewRows([]string{"total_decisions", "admitted", "denied", "active_days", "distinct_staff"}).
		AddRow(120, 100, 20, 15, 3)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total_decisions").WillReturnRows(rows)

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, summary.TotalDecisions)
	assert.Equal(t, 100, summary.Admitted)
	assert.Equal(t, 20, summary.Denied)
	assert.Equal(t, 15, summary.ActiveDays)
	assert.Equal(t, 3, summary.DistinctStaff)
	assert.NoError(t, mock.ExpectationsWereMet())
}
