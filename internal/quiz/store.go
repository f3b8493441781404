package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/certprep/backend/internal/models"
)

// Query describes which questions a session needs.
type Query struct {
	Mode          models.QuizType
	UserID        string
	ExamVersionID string
	SubjectID     string
	Difficulty    models.Difficulty
	Limit         int
	Date          string // YYYY-MM-DD, daily mode only
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// queryArgs numbers positional parameters as they are appended.
type queryArgs []any

func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// ── Question Fetching ───────────────────────────────────

const (
	questionCols = `q.id, q.exam_version_id, q.subject_id, q.question_text, q.explanation,
		q.difficulty, q.domain, q.created_at`
	optionCols = `o.id, o.option_text, o.option_letter, o.is_correct`
)

// FetchQuestions returns up to q.Limit questions with their options sorted
// by letter, chosen according to the mode.
func (s *Store) FetchQuestions(ctx context.Context, q Query) ([]models.Question, error) {
	if q.Mode == models.QuizWeakest {
		subjectID, err := s.weakestSubject(ctx, q.UserID, q.ExamVersionID)
		if err != nil {
			return nil, err
		}
		if subjectID == "" {
			return nil, nil
		}
		q.SubjectID = subjectID
	}

	var args queryArgs
	pick := pickQuery(q, &args)

	query := fmt.Sprintf(`WITH picked AS (%s)
		SELECT %s, %s
		FROM picked p
		JOIN questions q ON q.id = p.id
		LEFT JOIN question_options o ON o.question_id = q.id
		ORDER BY p.ord, o.option_letter`, pick, questionCols, optionCols)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s questions: %w", q.Mode, err)
	}
	defer rows.Close()

	return scanQuestionsWithOptions(rows)
}

// pickQuery builds the CTE that selects question ids and their order.
func pickQuery(q Query, args *queryArgs) string {
	if q.Mode == models.QuizDaily {
		return fmt.Sprintf(`SELECT dq.question_id AS id, 1 AS ord
			FROM daily_questions dq
			WHERE dq.exam_version_id = %s AND dq.question_date = %s`,
			args.add(q.ExamVersionID), args.add(q.Date))
	}

	where := "q.exam_version_id = " + args.add(q.ExamVersionID)
	if q.SubjectID != "" {
		where += " AND q.subject_id = " + args.add(q.SubjectID)
	}
	if q.Difficulty != "" {
		where += " AND q.difficulty = " + args.add(string(q.Difficulty))
	}

	switch q.Mode {
	case models.QuizLevelUp:
		return fmt.Sprintf(`SELECT q.id, ROW_NUMBER() OVER (
				ORDER BY CASE q.difficulty WHEN 'easy' THEN 0 WHEN 'medium' THEN 1 WHEN 'hard' THEN 2 ELSE 3 END, random()
			) AS ord
			FROM questions q WHERE %s
			ORDER BY ord LIMIT %s`, where, args.add(q.Limit))
	case models.QuizMissed:
		return fmt.Sprintf(`SELECT q.id, ROW_NUMBER() OVER (ORDER BY la.answered_at DESC) AS ord
			FROM questions q
			JOIN (
				SELECT DISTINCT ON (question_id) question_id, is_correct, answered_at
				FROM user_answers WHERE user_id = %s
				ORDER BY question_id, answered_at DESC
			) la ON la.question_id = q.id
			WHERE la.is_correct = FALSE AND %s
			ORDER BY ord LIMIT %s`, args.add(q.UserID), where, args.add(q.Limit))
	default:
		return fmt.Sprintf(`SELECT q.id, ROW_NUMBER() OVER (ORDER BY random()) AS ord
			FROM questions q WHERE %s
			ORDER BY ord LIMIT %s`, where, args.add(q.Limit))
	}
}

// weakestSubject returns the subject of the version where the user's answer
// accuracy is lowest, or "" when the user has not answered anything there.
func (s *Store) weakestSubject(ctx context.Context, userID, examVersionID string) (string, error) {
	var subjectID string
	err := s.db.QueryRowContext(ctx,
		`SELECT q.subject_id
		 FROM user_answers ua
		 JOIN questions q ON q.id = ua.question_id
		 WHERE ua.user_id = $1 AND q.exam_version_id = $2 AND q.subject_id IS NOT NULL
		 GROUP BY q.subject_id
		 ORDER BY AVG(CASE WHEN ua.is_correct THEN 1.0 ELSE 0.0 END) ASC, COUNT(*) DESC
		 LIMIT 1`,
		userID, examVersionID,
	).Scan(&subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find weakest subject: %w", err)
	}
	return subjectID, nil
}

func scanQuestionsWithOptions(rows *sql.Rows) ([]models.Question, error) {
	questionMap := make(map[string]*models.Question)
	var questionOrder []string

	for rows.Next() {
		var q models.Question
		var optID, optText, optLetter sql.NullString
		var optCorrect sql.NullBool

		if err := rows.Scan(
			&q.ID, &q.ExamVersionID, &q.SubjectID, &q.QuestionText, &q.Explanation,
			&q.Difficulty, &q.Domain, &q.CreatedAt,
			&optID, &optText, &optLetter, &optCorrect,
		); err != nil {
			return nil, fmt.Errorf("scan question row: %w", err)
		}

		existing, ok := questionMap[q.ID]
		if !ok {
			q.Options = []models.Option{}
			questionMap[q.ID] = &q
			questionOrder = append(questionOrder, q.ID)
			existing = &q
		}
		if optID.Valid {
			existing.Options = append(existing.Options, models.Option{
				ID:           optID.String,
				QuestionID:   q.ID,
				OptionText:   optText.String,
				OptionLetter: optLetter.String,
				IsCorrect:    optCorrect.Bool,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(questionOrder))
	for _, id := range questionOrder {
		questions = append(questions, *questionMap[id])
	}
	return questions, nil
}

// ── Result Persistence ──────────────────────────────────

// SaveResult writes the attempt and one answer per question in a single
// transaction, so a failed save leaves nothing behind.
func (s *Store) SaveResult(ctx context.Context, session models.QuizSession, answers []models.UserAnswer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quiz_sessions
		 (id, user_id, exam_version_id, quiz_type, score, total_questions, time_taken_seconds, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.ExamVersionID, session.QuizType,
		session.Score, session.TotalQuestions, session.TimeTakenSeconds, session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz session: %w", err)
	}

	for _, a := range answers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_answers
			 (id, user_id, question_id, selected_option_id, is_correct, quiz_session_id, answered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.UserID, a.QuestionID, a.SelectedOptionID, a.IsCorrect, a.QuizSessionID, a.AnsweredAt,
		)
		if err != nil {
			return fmt.Errorf("insert user answer: %w", err)
		}
	}

	return tx.Commit()
}
