package models

import "time"

type QuizType string

const (
	QuizDaily   QuizType = "daily"
	QuizQuick10 QuizType = "quick_10"
	QuizTimed   QuizType = "timed"
	QuizLevelUp QuizType = "level_up"
	QuizMissed  QuizType = "missed"
	QuizWeakest QuizType = "weakest"
	QuizCustom  QuizType = "custom"
)

// QuizSession is the persisted record of one completed attempt.
type QuizSession struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ExamVersionID    string    `json:"exam_version_id"`
	QuizType         QuizType  `json:"quiz_type"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"total_questions"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
}

type UserAnswer struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	QuestionID       string    `json:"question_id"`
	SelectedOptionID *string   `json:"selected_option_id,omitempty"`
	IsCorrect        bool      `json:"is_correct"`
	QuizSessionID    *string   `json:"quiz_session_id,omitempty"`
	AnsweredAt       time.Time `json:"answered_at"`
}

// ── Live Session State ───────────────────────────────────

type SessionState string

const (
	StateLoading   SessionState = "loading"
	StateEmpty     SessionState = "empty"
	StateAnswering SessionState = "answering"
	StateShowing   SessionState = "showing_result"
	StateCompleted SessionState = "completed"
)

// ── Request Types ────────────────────────────────────────

type StartQuizRequest struct {
	ExamVersionID string      `json:"exam_version_id" validate:"omitempty,uuid"`
	SubjectID     string      `json:"subject_id" validate:"omitempty,uuid"`
	Mode          QuizType    `json:"mode" validate:"required,oneof=daily quick_10 timed level_up missed weakest custom"`
	Custom        *CustomQuiz `json:"custom,omitempty"`
}

// CustomQuiz holds the caller-chosen parameters of a custom quiz.
type CustomQuiz struct {
	Count            int        `json:"count" validate:"omitempty,min=1,max=50"`
	Difficulty       Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	TimeLimitMinutes int        `json:"time_limit_minutes" validate:"omitempty,min=1,max=240"`
}

type SelectAnswerRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

// ── Response Types ───────────────────────────────────────

type Reveal struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id"`
	CorrectOptionID  string `json:"correct_option_id,omitempty"`
	Correct          bool   `json:"correct"`
	Explanation      string `json:"explanation"`
}

type QuizResult struct {
	SessionID        string   `json:"session_id"`
	Score            int      `json:"score"`
	TotalQuestions   int      `json:"total_questions"`
	TimeTakenSeconds int      `json:"time_taken_seconds"`
	TimedOut         bool     `json:"timed_out"`
	Saved            bool     `json:"saved"`
	SaveError        string   `json:"save_error,omitempty"`
	Answers          []Reveal `json:"answers"`
}

// SessionView is the client-facing snapshot of a live quiz session.
type SessionView struct {
	ID               string        `json:"id"`
	Mode             QuizType      `json:"mode"`
	Title            string        `json:"title"`
	ExamVersionID    string        `json:"exam_version_id"`
	State            SessionState  `json:"state"`
	QuestionIndex    int           `json:"question_index"`
	TotalQuestions   int           `json:"total_questions"`
	Question         *QuestionView `json:"question,omitempty"`
	SelectedOptionID string        `json:"selected_option_id,omitempty"`
	Reveal           *Reveal       `json:"reveal,omitempty"`
	TimeLeftSeconds  *int          `json:"time_left_seconds,omitempty"`
	Result           *QuizResult   `json:"result,omitempty"`
}
