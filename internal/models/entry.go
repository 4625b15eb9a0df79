package models

import "time"

// EntryStatus is the outcome recorded for a gate event.
type EntryStatus string

const (
	EntryAdmitted EntryStatus = "ADMITTED"
	EntryDenied   EntryStatus = "DENIED"
	EntryPending  EntryStatus = "PENDING"
)

// Valid reports whether the status is one of the known outcomes.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryAdmitted, EntryDenied, EntryPending:
		return true
	}
	return false
}

// EntryDecision is an append-only record of an admit/deny event at the
// gate. Rows are never updated or deleted through normal flow.
type EntryDecision struct {
	ID           string      `db:"id" json:"id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	DecidedBy    string      `db:"decided_by" json:"decided_by"`
	Status       EntryStatus `db:"status" json:"status"`
	DenialReason *string     `db:"denial_reason" json:"denial_reason,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// EntryFeedRow is a decision joined with student identity and the
// student's primary photo for the live dashboard.
type EntryFeedRow struct {
	ID           string      `db:"id" json:"id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	StudentName  string      `db:"student_name" json:"student_name"`
	PhotoURL     *string     `db:"photo_url" json:"photo_url,omitempty"`
	Status       EntryStatus `db:"status" json:"status"`
	DenialReason *string     `db:"denial_reason" json:"denial_reason,omitempty"`
	DecidedBy    string      `db:"decided_by" json:"decided_by"`
	StaffName    string      `db:"staff_name" json:"staff_name"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// EntrySummary aggregates the decision log for reporting.
type EntrySummary struct {
	TotalDecisions int `db:"total_decisions" json:"total_decisions"`
	Admitted       int `db:"admitted" json:"admitted"`
	Denied         int `db:"denied" json:"denied"`
	ActiveDays     int `db:"active_days" json:"active_days"`
	DistinctStaff  int `db:"distinct_staff" json:"distinct_staff"`
}
