package models

import "time"

// Progress is the read model derived from a user's sessions and answers.
// It is recomputed on every request and never stored.
type Progress struct {
	Streak         int            `json:"streak"`
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	Accuracy       int            `json:"accuracy"`
	StudyTimeHours float64        `json:"study_time_hours"`
	WeeklyProgress []DayActivity  `json:"weekly_progress"`
	SubjectScores  []SubjectScore `json:"subject_scores"`
}

type DayActivity struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

type SubjectScore struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
	Score     int    `json:"score"`
}

// AnswerRecord is the slice of a user answer the aggregator needs,
// joined with the subject of its question.
type AnswerRecord struct {
	IsCorrect  bool
	AnsweredAt time.Time
	SubjectID  string
}

// SessionRecord is the slice of a quiz session the aggregator needs.
type SessionRecord struct {
	CompletedAt      time.Time
	TimeTakenSeconds int
}
