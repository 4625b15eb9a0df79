package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ndalu/portaria-api/internal/models"
)

// PaymentRepository owns the tuition ledger: payment periods, the
// per-student records joined to them, and the guarantees that make
// pay/cancel safe under concurrency. The duplicate-payment invariant is
// enforced by unique constraints inside a single transaction, so two
// concurrent read-then-write sequences for the same (student, month,
// year) cannot both insert.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// IsPeriodPaid reports whether the student has a record for the period.
func (r *PaymentRepository) IsPeriodPaid(ctx context.Context, studentID, month, schoolYear string) (bool, error) {
	const query = `SELECT 1 FROM payment_records pr
        JOIN payment_periods pp ON pp.id = pr.period_id
        WHERE pr.student_id = $1 AND pp.month = $2 AND pp.school_year = $3
        LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, studentID, month, schoolYear); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check period paid: %w", err)
	}
	return true, nil
}

// PaidPeriods returns every settled period for the student, with the
// per-record amount and timestamp. An empty schoolYear spans all years.
func (r *PaymentRepository) PaidPeriods(ctx context.Context, studentID, schoolYear string) ([]models.PaidPeriod, error) {
	const query = `SELECT pp.month, pp.school_year, pr.amount, pr.created_at AS paid_at
        FROM payment_records pr
        JOIN payment_periods pp ON pp.id = pr.period_id
        WHERE pr.student_id = $1 AND ($2 = '' OR pp.school_year = $2)
        ORDER BY pr.created_at ASC`
	var periods []models.PaidPeriod
	if err := r.db.SelectContext(ctx, &periods, query, studentID, schoolYear); err != nil {
		return nil, fmt.Errorf("paid periods: %w", err)
	}
	return periods, nil
}

// Pay settles the requested months in one transaction. Each month
// creates-or-reuses its period row, then inserts the student record with
// ON CONFLICT DO NOTHING; months whose record already existed come back
// in alreadyPaid instead of creating a second record.
func (r *PaymentRepository) Pay(ctx context.Context, studentID string, months []string, schoolYear string, amount float64) (paid []string, alreadyPaid []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin pay: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	// The no-op DO UPDATE makes RETURNING yield the id on conflict too.
	const periodQuery = `INSERT INTO payment_periods (id, month, school_year)
        VALUES ($1, $2, $3)
        ON CONFLICT (month, school_year) DO UPDATE SET month = EXCLUDED.month
        RETURNING id`
	const recordQuery = `INSERT INTO payment_records (id, student_id, period_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (student_id, period_id) DO NOTHING
        RETURNING id`

	now := time.Now().UTC()
	for _, month := range months {
		var periodID string
		if err := tx.QueryRowxContext(ctx, periodQuery, uuid.NewString(), month, schoolYear).Scan(&periodID); err != nil {
			return nil, nil, fmt.Errorf("upsert period %s %s: %w", month, schoolYear, err)
		}
		var recordID string
		if err := tx.QueryRowxContext(ctx, recordQuery, uuid.NewString(), studentID, periodID, amount, now).Scan(&recordID); err != nil {
			if err == sql.ErrNoRows {
				alreadyPaid = append(alreadyPaid, month)
				continue
			}
			return nil, nil, fmt.Errorf("insert payment record %s: %w", month, err)
		}
		paid = append(paid, month)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit pay: %w", err)
	}
	commit = true
	return paid, alreadyPaid, nil
}

// Cancel removes the student's records for the requested months and
// garbage-collects periods no remaining record references. Returns the
// months whose records were actually removed.
func (r *PaymentRepository) Cancel(ctx context.Context, studentID string, months []string, schoolYear string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM payment_records pr
        USING payment_periods pp
        WHERE pp.id = pr.period_id
          AND pr.student_id = $1
          AND pp.month = ANY($2)
          AND pp.school_year = $3
        RETURNING pp.month`
	var removed []string
	if err := tx.SelectContext(ctx, &removed, deleteQuery, studentID, pq.Array(months), schoolYear); err != nil {
		return nil, fmt.Errorf("delete payment records: %w", err)
	}

	const gcQuery = `DELETE FROM payment_periods pp
        WHERE pp.month = ANY($1) AND pp.school_year = $2
          AND NOT EXISTS (SELECT 1 FROM payment_records pr WHERE pr.period_id = pp.id)`
	if _, err := tx.ExecContext(ctx, gcQuery, pq.Array(removed), schoolYear); err != nil {
		return nil, fmt.Errorf("gc payment periods: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	commit = true
	return removed, nil
}
