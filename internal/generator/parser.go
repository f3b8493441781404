package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/certprep/backend/internal/models"
)

type GeneratedBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type GeneratedQuestion struct {
	QuestionText  string            `json:"question_text"`
	Domain        string            `json:"domain"`
	Options       []GeneratedOption `json:"options"`
	CorrectLetter string            `json:"correct_letter"`
	Explanation   string            `json:"explanation"`
}

type GeneratedOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseResponse decodes the model reply. The batch is rejected only when it
// is unreadable or empty; individual bad questions are filtered later by
// Split.
func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if len(batch.Questions) == 0 {
		return nil, &ValidationError{Errors: []string{"no questions in batch"}}
	}

	checkTopicDiversity(batch.Questions)
	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

var expectedLetters = []string{"A", "B", "C", "D"}

// Validate checks that a question has options A-D in order, non-empty text
// and exactly one correct option.
func Validate(q GeneratedQuestion) error {
	var errs []string

	if strings.TrimSpace(q.QuestionText) == "" {
		errs = append(errs, "empty question_text")
	}
	if strings.TrimSpace(q.Explanation) == "" {
		errs = append(errs, "empty explanation")
	}

	if len(q.Options) != len(expectedLetters) {
		errs = append(errs, fmt.Sprintf("expected %d options, got %d", len(expectedLetters), len(q.Options)))
	} else {
		for i, o := range q.Options {
			if o.Letter != expectedLetters[i] {
				errs = append(errs, fmt.Sprintf("option %d has letter %q, expected %q", i+1, o.Letter, expectedLetters[i]))
			}
			if strings.TrimSpace(o.Text) == "" {
				errs = append(errs, fmt.Sprintf("option %s has empty text", o.Letter))
			}
		}
	}

	matches := 0
	for _, o := range q.Options {
		if o.Letter == q.CorrectLetter {
			matches++
		}
	}
	if matches != 1 {
		errs = append(errs, fmt.Sprintf("correct_letter %q must match exactly one option", q.CorrectLetter))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Split converts valid questions to models for the given version and
// subject, and counts the ones rejected.
func Split(batch *GeneratedBatch, examVersionID, subjectID string, difficulty models.Difficulty) ([]models.Question, int) {
	var accepted []models.Question
	rejected := 0

	for i, gq := range batch.Questions {
		if err := Validate(gq); err != nil {
			log.Printf("[generator] rejecting question %d: %v", i+1, err)
			rejected++
			continue
		}

		sid := subjectID
		q := models.Question{
			ExamVersionID: examVersionID,
			SubjectID:     &sid,
			QuestionText:  strings.TrimSpace(gq.QuestionText),
			Explanation:   strings.TrimSpace(gq.Explanation),
			Difficulty:    difficulty,
			Domain:        strings.TrimSpace(gq.Domain),
		}
		for _, o := range gq.Options {
			q.Options = append(q.Options, models.Option{
				OptionLetter: o.Letter,
				OptionText:   strings.TrimSpace(o.Text),
				IsCorrect:    o.Letter == gq.CorrectLetter,
			})
		}
		accepted = append(accepted, q)
	}
	return accepted, rejected
}

// checkTopicDiversity warns if any two questions share >60% keyword overlap.
func checkTopicDiversity(questions []GeneratedQuestion) {
	if len(questions) < 2 {
		return
	}

	tokenSets := make([]map[string]bool, len(questions))
	for i, q := range questions {
		tokenSets[i] = tokenize(q.QuestionText)
	}

	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				log.Printf("[generator] questions %d and %d have %.0f%% keyword overlap", i+1, j+1, overlap*100)
			}
		}
	}
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
