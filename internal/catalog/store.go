package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/certprep/backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Exams & Versions ────────────────────────────────────

func (s *Store) ListActiveExams(ctx context.Context) ([]models.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, short_name, description, category,
		        total_questions, passing_score, duration_minutes, is_active
		 FROM exams WHERE is_active = TRUE
		 ORDER BY title`,
	)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var exams []models.Exam
	for rows.Next() {
		var e models.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.ShortName, &e.Description, &e.Category,
			&e.TotalQuestions, &e.PassingScore, &e.DurationMinutes, &e.IsActive); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (s *Store) GetExam(ctx context.Context, examID string) (*models.Exam, error) {
	var e models.Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, short_name, description, category,
		        total_questions, passing_score, duration_minutes, is_active
		 FROM exams WHERE id = $1`,
		examID,
	).Scan(&e.ID, &e.Title, &e.ShortName, &e.Description, &e.Category,
		&e.TotalQuestions, &e.PassingScore, &e.DurationMinutes, &e.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &e, nil
}

const versionCols = `id, exam_id, version_code, version_name, description, is_current, launch_date, discontinue_date`

func scanVersion(row interface{ Scan(...any) error }) (models.ExamVersion, error) {
	var v models.ExamVersion
	err := row.Scan(&v.ID, &v.ExamID, &v.VersionCode, &v.VersionName, &v.Description,
		&v.IsCurrent, &v.LaunchDate, &v.DiscontinueDate)
	return v, err
}

func (s *Store) ListVersions(ctx context.Context, examID string) ([]models.ExamVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionCols+` FROM exam_versions WHERE exam_id = $1 ORDER BY launch_date DESC`,
		examID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ExamVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx,
		`SELECT `+versionCols+` FROM exam_versions WHERE id = $1`, versionID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &v, nil
}

// ── Subjects ────────────────────────────────────────────

// LinkedSubjectIDs returns the subject IDs linked to an exam version,
// trimmed and lowercased.
func (s *Store) LinkedSubjectIDs(ctx context.Context, versionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id::text FROM subject_exam_versions WHERE exam_version_id = $1`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("linked subjects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}
		if id = NormalizeID(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

func (s *Store) SubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id::text, name, description FROM subjects WHERE id::text = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("subjects by ids: %w", err)
	}
	defer rows.Close()

	var subjects []models.Subject
	for rows.Next() {
		var sub models.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		sub.ID = NormalizeID(sub.ID)
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// ── Question Seeding ────────────────────────────────────

// InsertQuestions stores questions with their options in one transaction
// and returns the generated question IDs in input order.
func (s *Store) InsertQuestions(ctx context.Context, questions []models.Question) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		qid := uuid.NewString()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, exam_version_id, subject_id, question_text, explanation, difficulty, domain)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			qid, q.ExamVersionID, q.SubjectID, q.QuestionText, q.Explanation, q.Difficulty, q.Domain,
		)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		for _, o := range q.Options {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO question_options (id, question_id, option_text, option_letter, is_correct)
				 VALUES ($1, $2, $3, $4, $5)`,
				uuid.NewString(), qid, o.OptionText, o.OptionLetter, o.IsCorrect,
			)
			if err != nil {
				return nil, fmt.Errorf("insert option: %w", err)
			}
		}
		ids = append(ids, qid)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}
	return ids, nil
}

// NormalizeID trims and lowercases an identifier so link-table IDs and
// subject IDs compare equal regardless of how they were entered.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
