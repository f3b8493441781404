package stats

import (
	"context"
	"log"
	"time"

	"github.com/certprep/backend/internal/models"
)

type Reader interface {
	SessionsForVersion(ctx context.Context, userID, examVersionID string) ([]models.SessionRecord, error)
	Answers(ctx context.Context, userID, subjectID string) ([]models.AnswerRecord, error)
}

// SubjectLister resolves the subjects linked to an exam version.
type SubjectLister interface {
	SubjectsForVersion(ctx context.Context, versionID string) ([]models.Subject, error)
}

type Service struct {
	store    Reader
	subjects SubjectLister
	loc      *time.Location
	now      func() time.Time
}

func NewService(store Reader, subjects SubjectLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, subjects: subjects, loc: loc, now: time.Now}
}

// Progress recomputes the user's statistics for the selection. Any failed
// read discards the whole aggregate.
func (s *Service) Progress(ctx context.Context, userID string, sel models.Selection) (*models.Progress, error) {
	sessions, err := s.store.SessionsForVersion(ctx, userID, sel.ExamVersionID)
	if err != nil {
		return nil, s.fail(userID, err)
	}
	answers, err := s.store.Answers(ctx, userID, sel.SubjectID)
	if err != nil {
		return nil, s.fail(userID, err)
	}
	subjects, err := s.subjects.SubjectsForVersion(ctx, sel.ExamVersionID)
	if err != nil {
		return nil, s.fail(userID, err)
	}

	return Compute(sessions, answers, subjects, s.now(), s.loc), nil
}

func (s *Service) fail(userID string, err error) error {
	log.Printf("[stats] aggregate for user %s failed: %v", userID, err)
	return models.FetchFailure("load statistics", err)
}
