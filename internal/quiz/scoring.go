package quiz

import "github.com/certprep/backend/internal/models"

// Score grades every question against the submitted choices, keyed by
// question index. Unanswered questions and questions without a correct
// option count as incorrect.
func Score(questions []models.Question, answers map[int]string) (int, []models.Reveal) {
	score := 0
	reveals := make([]models.Reveal, 0, len(questions))
	for i, q := range questions {
		r := reveal(q, answers[i])
		if r.Correct {
			score++
		}
		reveals = append(reveals, r)
	}
	return score, reveals
}

func reveal(q models.Question, selected string) models.Reveal {
	r := models.Reveal{
		QuestionID:       q.ID,
		SelectedOptionID: selected,
		Explanation:      q.Explanation,
	}
	if correct := q.CorrectOption(); correct != nil {
		r.CorrectOptionID = correct.ID
		r.Correct = selected != "" && selected == correct.ID
	}
	return r
}
