package generator

import (
	"fmt"

	"github.com/certprep/backend/internal/models"
)

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyEasy:   "Recall of a single concept or definition. One plausible distractor; the others are clearly off.",
	models.DifficultyMedium: "Applying a concept to a short scenario. Two plausible distractors that reflect common misconceptions.",
	models.DifficultyHard:   "A multi-step scenario that requires choosing the BEST of several partially correct actions. Three strong distractors.",
}

func SystemPrompt() string {
	return `You are an experienced certification exam item writer. You write multiple-choice questions that read like items from the real exam blueprint they target.

QUESTION TEXT:
- One to four sentences; a short scenario is encouraged for medium and hard items
- Self-contained: no references to figures, exhibits or other questions
- Never mention the exam vendor, study guides or test-taking

OPTIONS:
- Exactly 4 options labeled A through D, in that order
- Exactly ONE option is correct
- Wrong options must be plausible and wrong for a specific, identifiable reason
- Options should be similar in length and grammatical form
- Avoid "all of the above" and "none of the above"

EXPLANATION:
- 2-4 sentences saying why the correct option is right and naming why the strongest distractor is wrong

DOMAIN:
- A short label for the blueprint domain the question exercises, e.g. "Identity and Access Management"

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`
}

func BuildUserPrompt(b Brief) string {
	guidance := difficultyGuidance[b.Difficulty]
	if guidance == "" {
		guidance = difficultyGuidance[models.DifficultyMedium]
	}

	return fmt.Sprintf(`Generate exactly %d questions.

Exam: %s
Exam version: %s
Subject: %s
Difficulty: %s (%s)

Respond with this exact JSON structure:
{
  "questions": [
    {
      "question_text": "...",
      "domain": "...",
      "options": [
        {"letter": "A", "text": "..."},
        {"letter": "B", "text": "..."},
        {"letter": "C", "text": "..."},
        {"letter": "D", "text": "..."}
      ],
      "correct_letter": "C",
      "explanation": "..."
    }
  ]
}

Requirements:
- Every question must test a DIFFERENT objective within the subject
- Vary the position of the correct option across A-D`,
		b.Count, b.ExamTitle, b.VersionName, b.SubjectName, string(b.Difficulty), guidance)
}
