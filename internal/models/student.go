package models

import "time"

// Student represents a learner registered at the school. SequenceNo is
// the 1-based process number assigned in order of check-in within a
// school year; Grade/Section/Program/SchoolYear together define the
// cohort used for roster ranking.
type Student struct {
	ID         string    `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	StudentNo  string    `db:"student_no" json:"student_no"`
	SequenceNo int       `db:"sequence_no" json:"sequence_no"`
	Grade      string    `db:"grade" json:"grade"`
	Section    string    `db:"section" json:"section"`
	Shift      string    `db:"shift" json:"shift"`
	Program    string    `db:"program" json:"program"`
	SchoolYear string    `db:"school_year" json:"school_year"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Grade      string
	Section    string
	SchoolYear string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// StudentSortColumns maps the allowed list sort fields to their SQL
// columns. Anything outside this set is a validation error.
var StudentSortColumns = map[string]string{
	"full_name":   "s.full_name",
	"student_no":  "s.student_no",
	"sequence_no": "s.sequence_no",
	"created_at":  "s.created_at",
}

// CohortMember is the projection used by roster ranking.
type CohortMember struct {
	ID       string `db:"id"`
	FullName string `db:"full_name"`
}

// Photo is an image registered for a student; the earliest one serves as
// the primary recognition photo.
type Photo struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	URL       string    `db:"url" json:"url"`
	Caption   *string   `db:"caption" json:"caption,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
