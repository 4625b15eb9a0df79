package models

import "time"

// PaymentPeriod is the (month, school year) value object a tuition
// payment settles. Rows are deduplicated by a unique constraint on the
// natural key; per-student amount and timestamp live on PaymentRecord.
type PaymentPeriod struct {
	ID         string `db:"id" json:"id"`
	Month      string `db:"month" json:"month"`
	SchoolYear string `db:"school_year" json:"school_year"`
}

// PaymentRecord links a student to a settled period. The unique
// (student_id, period_id) pair is the duplicate-payment guard.
type PaymentRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	PeriodID  string    `db:"period_id" json:"period_id"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PaidPeriod is a payment record joined with its period's natural key.
type PaidPeriod struct {
	Month      string    `db:"month" json:"month"`
	SchoolYear string    `db:"school_year" json:"school_year"`
	Amount     float64   `db:"amount" json:"amount"`
	PaidAt     time.Time `db:"paid_at" json:"paid_at"`
}
