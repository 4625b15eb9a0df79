package dto

import "github.com/ndalu/portaria-api/internal/models"

// TodayFeedResponse pages through today's gate decisions for the live
// dashboard.
type TodayFeedResponse struct {
	Decisions   []models.EntryFeedRow `json:"decisions"`
	IsLastPage  bool                  `json:"is_last_page"`
	TotalToday  int                   `json:"total_today"`
	StaffOnDuty int                   `json:"staff_on_duty"`
}

// PaymentStatementResponse is a student's tuition statement for one
// school year.
type PaymentStatementResponse struct {
	StudentID  string              `json:"student_id"`
	SchoolYear string              `json:"school_year"`
	Months     []MonthStatus       `json:"months"`
	Records    []models.PaidPeriod `json:"records"`
}

// ExportResponse points at a generated export file through a signed URL.
type ExportResponse struct {
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
