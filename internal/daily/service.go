package daily

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/certprep/backend/internal/models"
	"github.com/certprep/backend/internal/quiz"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must be formatted YYYY-MM-DD")

type Assigner interface {
	Assign(ctx context.Context, examVersionID, date string) (bool, error)
	CurrentVersionIDs(ctx context.Context) ([]string, error)
}

// QuestionFetcher loads full questions; the quiz store satisfies it.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, q quiz.Query) ([]models.Question, error)
}

type Service struct {
	store     Assigner
	questions QuestionFetcher
	loc       *time.Location
	now       func() time.Time
}

func NewService(store Assigner, questions QuestionFetcher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, questions: questions, loc: loc, now: time.Now}
}

// Today returns the date string of the current day in the service location.
func (s *Service) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// EnsureAssigned makes sure date has a question for the version.
func (s *Service) EnsureAssigned(ctx context.Context, examVersionID, date string) error {
	_, err := s.store.Assign(ctx, examVersionID, date)
	return err
}

// Question returns today's question for a version, assigning one first if
// the scheduled job has not run yet.
func (s *Service) Question(ctx context.Context, examVersionID string) (*models.DailyQuestion, error) {
	date := s.Today()
	if err := s.EnsureAssigned(ctx, examVersionID, date); err != nil {
		return nil, models.FetchFailure("assign daily question", err)
	}

	questions, err := s.questions.FetchQuestions(ctx, quiz.Query{
		Mode:          models.QuizDaily,
		ExamVersionID: examVersionID,
		Date:          date,
		Limit:         1,
	})
	if err != nil {
		return nil, models.FetchFailure("load daily question", err)
	}
	if len(questions) == 0 {
		return nil, models.EmptyResult("load daily question")
	}

	view := questions[0].View()
	return &models.DailyQuestion{
		ExamVersionID: examVersionID,
		QuestionDate:  date,
		QuestionID:    view.ID,
		Question:      &view,
	}, nil
}

// AssignAll assigns date's question for every current version and returns
// how many new assignments were made.
func (s *Service) AssignAll(ctx context.Context, date string) (int, error) {
	if date == "" {
		date = s.Today()
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	versions, err := s.store.CurrentVersionIDs(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, v := range versions {
		ok, err := s.store.Assign(ctx, v, date)
		if err != nil {
			log.Printf("[daily] assign %s for version %s failed: %v", date, v, err)
			continue
		}
		if ok {
			assigned++
		}
	}
	log.Printf("[daily] %s: assigned %d of %d versions", date, assigned, len(versions))
	return assigned, nil
}
