package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

type Question struct {
	ID            string     `json:"id"`
	ExamVersionID string     `json:"exam_version_id"`
	SubjectID     *string    `json:"subject_id,omitempty"`
	QuestionText  string     `json:"question_text"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
	Domain        string     `json:"domain"`
	Options       []Option   `json:"options"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Option struct {
	ID           string `json:"id"`
	QuestionID   string `json:"question_id"`
	OptionText   string `json:"option_text"`
	OptionLetter string `json:"option_letter"`
	IsCorrect    bool   `json:"is_correct"`
}

// CorrectOption returns the option flagged correct, or nil when the
// question has none.
func (q Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

func (q Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// ── Client Views ─────────────────────────────────────────

// OptionView hides the correctness flag until the answer is revealed.
type OptionView struct {
	ID           string `json:"id"`
	OptionText   string `json:"option_text"`
	OptionLetter string `json:"option_letter"`
}

type QuestionView struct {
	ID           string       `json:"id"`
	QuestionText string       `json:"question_text"`
	Difficulty   Difficulty   `json:"difficulty"`
	Domain       string       `json:"domain"`
	Options      []OptionView `json:"options"`
}

func (q Question) View() QuestionView {
	opts := make([]OptionView, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, OptionView{ID: o.ID, OptionText: o.OptionText, OptionLetter: o.OptionLetter})
	}
	return QuestionView{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Difficulty:   q.Difficulty,
		Domain:       q.Domain,
		Options:      opts,
	}
}

type DailyQuestion struct {
	ExamVersionID string        `json:"exam_version_id"`
	QuestionDate  string        `json:"question_date"`
	QuestionID    string        `json:"question_id"`
	Question      *QuestionView `json:"question,omitempty"`
}

// ── Generation Requests ──────────────────────────────────

type GenerateQuestionsRequest struct {
	ExamVersionID string     `json:"exam_version_id" validate:"required,uuid"`
	SubjectID     string     `json:"subject_id" validate:"required,uuid"`
	Difficulty    Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Count         int        `json:"count" validate:"omitempty,min=1,max=20"`
}

type GenerateQuestionsResponse struct {
	ExamVersionID string   `json:"exam_version_id"`
	SubjectID     string   `json:"subject_id"`
	QuestionIDs   []string `json:"question_ids"`
	Rejected      int      `json:"rejected"`
	PromptTokens  int      `json:"prompt_tokens"`
	OutputTokens  int      `json:"output_tokens"`
}
