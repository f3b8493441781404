package models

import "time"

type Exam struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	TotalQuestions  int    `json:"total_questions"`
	PassingScore    int    `json:"passing_score"`
	DurationMinutes int    `json:"duration_minutes"`
	IsActive        bool   `json:"is_active"`
}

// ExamVersion is a dated revision of an exam's question pool.
type ExamVersion struct {
	ID              string     `json:"id"`
	ExamID          string     `json:"exam_id"`
	VersionCode     string     `json:"version_code"`
	VersionName     string     `json:"version_name"`
	Description     string     `json:"description"`
	IsCurrent       bool       `json:"is_current"`
	LaunchDate      time.Time  `json:"launch_date"`
	DiscontinueDate *time.Time `json:"discontinue_date,omitempty"`
}

type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Selection is the user's current exam, version and (optional) subject.
// It is passed explicitly to the quiz controller and the stats aggregator.
type Selection struct {
	ExamID        string `json:"exam_id,omitempty" validate:"omitempty,uuid"`
	ExamVersionID string `json:"exam_version_id" validate:"required,uuid"`
	SubjectID     string `json:"subject_id,omitempty" validate:"omitempty,uuid"`
}

func (s Selection) HasSubject() bool {
	return s.SubjectID != ""
}
