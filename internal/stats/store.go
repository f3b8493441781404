package stats

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/certprep/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SessionsForVersion returns the user's completed sessions for an exam
// version, newest first.
func (s *Store) SessionsForVersion(ctx context.Context, userID, examVersionID string) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_at, time_taken_seconds
		 FROM quiz_sessions
		 WHERE user_id = $1 AND exam_version_id = $2
		 ORDER BY completed_at DESC`,
		userID, examVersionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select quiz sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		if err := rows.Scan(&r.CompletedAt, &r.TimeTakenSeconds); err != nil {
			return nil, fmt.Errorf("scan quiz session: %w", err)
		}
		sessions = append(sessions, r)
	}
	return sessions, rows.Err()
}

// Answers returns the user's answers with the subject of each question,
// newest first. A non-empty subjectID keeps only that subject's answers.
func (s *Store) Answers(ctx context.Context, userID, subjectID string) ([]models.AnswerRecord, error) {
	query := `SELECT ua.is_correct, ua.answered_at, COALESCE(q.subject_id::text, '')
		FROM user_answers ua
		JOIN questions q ON q.id = ua.question_id
		WHERE ua.user_id = $1`
	args := []any{userID}
	if subjectID != "" {
		query += ` AND q.subject_id = $2`
		args = append(args, subjectID)
	}
	query += ` ORDER BY ua.answered_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select user answers: %w", err)
	}
	defer rows.Close()

	var answers []models.AnswerRecord
	for rows.Next() {
		var a models.AnswerRecord
		if err := rows.Scan(&a.IsCorrect, &a.AnsweredAt, &a.SubjectID); err != nil {
			return nil, fmt.Errorf("scan user answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
