package daily

import (
	"context"
	"database/sql"
	"fmt"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Assign picks the version's least recently featured question for date.
// It reports false when the date already has a question or the version has
// no questions.
func (s *Store) Assign(ctx context.Context, examVersionID, date string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_questions (exam_version_id, question_date, question_id)
		 SELECT $1::uuid, $2::date, q.id
		 FROM questions q
		 LEFT JOIN (
			SELECT question_id, MAX(question_date) AS last_used
			FROM daily_questions
			WHERE exam_version_id = $1
			GROUP BY question_id
		 ) d ON d.question_id = q.id
		 WHERE q.exam_version_id = $1
		 ORDER BY d.last_used NULLS FIRST, random()
		 LIMIT 1
		 ON CONFLICT (exam_version_id, question_date) DO NOTHING`,
		examVersionID, date,
	)
	if err != nil {
		return false, fmt.Errorf("assign daily question: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CurrentVersionIDs lists versions of active exams that are still offered.
func (s *Store) CurrentVersionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id FROM exam_versions v
		 JOIN exams e ON e.id = v.exam_id
		 WHERE e.is_active = TRUE
		   AND (v.discontinue_date IS NULL OR v.discontinue_date >= CURRENT_DATE)
		 ORDER BY v.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list current versions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
