package dto

// MonthStatus is one row of a student's twelve-month tuition breakdown.
type MonthStatus struct {
	Month string `json:"month"`
	Paid  bool   `json:"paid"`
}

// RecognitionResult is the consolidated checkpoint payload returned when
// a student is looked up at the gate.
type RecognitionResult struct {
	StudentID     string        `json:"student_id"`
	FullName      string        `json:"full_name"`
	PhotoURL      *string       `json:"photo_url"`
	StudentNo     string        `json:"student_no"`
	SequenceNo    int           `json:"sequence_no"`
	Rank          int           `json:"rank"`
	Grade         string        `json:"grade"`
	Section       string        `json:"section"`
	Shift         string        `json:"shift"`
	Program       string        `json:"program"`
	SchoolYear    string        `json:"school_year"`
	TuitionPaid   bool          `json:"tuition_paid"`
	MonthlyStatus []MonthStatus `json:"monthly_status"`
}
