package models

// Data Transfer Objects

type SubmitAttemptRequest struct {
	AssignmentID      string         `json:"-"`
	StudentID         string         `json:"-"`
	AttemptID         string         `json:"attempt_id,omitempty"`
	Responses         []AnswerRecord `json:"responses,omitempty"`
	WorkLink          string         `json:"work_link,omitempty"`
	AutoSaveOnClosure bool           `json:"auto_save_on_closure,omitempty"`
}

type GradeAttemptRequest struct {
	Score float64 `json:"score"`
}
