package models

import "time"

// Result stores one student's scores for one subject in one session/term.
// Uniqueness per (student, session, term, subject) is enforced by pre-check
// during batch creation.
type Result struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	TermID         string    `db:"term_id" json:"term_id"`
	CurrentClassID string    `db:"current_class_id" json:"current_class_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	TestScore      float64   `db:"test_score" json:"test_score"`
	ExamScore      float64   `db:"exam_score" json:"exam_score"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TotalScore is the combined test and exam score.
func (r Result) TotalScore() float64 {
	return r.TestScore + r.ExamScore
}

// ResultRow joins a result with student and subject display fields for the
// term summary.
type ResultRow struct {
	Result
	StudentName        string `db:"student_name" json:"student_name"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	SubjectName        string `db:"subject_name" json:"subject_name"`
	ClassName          string `db:"class_name" json:"class_name"`
}

// SubjectScore is one line in a student's term summary.
type SubjectScore struct {
	ResultID    string  `json:"result_id"`
	SubjectID   string  `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	TestScore   float64 `json:"test_score"`
	ExamScore   float64 `json:"exam_score"`
	TotalScore  float64 `json:"total_score"`
}

// StudentResultSummary groups a student's results with score totals.
type StudentResultSummary struct {
	StudentID          string         `json:"student_id"`
	StudentName        string         `json:"student_name"`
	RegistrationNumber string         `json:"registration_number"`
	ClassName          string         `json:"class_name"`
	Subjects           []SubjectScore `json:"subjects"`
	TestTotal          float64        `json:"test_total"`
	ExamTotal          float64        `json:"exam_total"`
	TotalTotal         float64        `json:"total_total"`
}
