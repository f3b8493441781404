package catalog

import (
	"context"
	"fmt"
	"log"

	"github.com/certprep/backend/internal/models"
)

// Reader is the read side of the catalog store.
type Reader interface {
	ListActiveExams(ctx context.Context) ([]models.Exam, error)
	GetExam(ctx context.Context, examID string) (*models.Exam, error)
	ListVersions(ctx context.Context, examID string) ([]models.ExamVersion, error)
	GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error)
	LinkedSubjectIDs(ctx context.Context, versionID string) ([]string, error)
	SubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type Service struct {
	store Reader
}

func NewService(store Reader) *Service {
	return &Service{store: store}
}

func (s *Service) ListExams(ctx context.Context) ([]models.Exam, error) {
	return s.store.ListActiveExams(ctx)
}

func (s *Service) GetExam(ctx context.Context, examID string) (*models.Exam, error) {
	return s.store.GetExam(ctx, examID)
}

func (s *Service) ListVersions(ctx context.Context, examID string) ([]models.ExamVersion, error) {
	return s.store.ListVersions(ctx, examID)
}

func (s *Service) GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error) {
	return s.store.GetVersion(ctx, versionID)
}

// SubjectsForVersion returns one entry per subject linked to the version,
// in link order. A link whose subject row is missing is kept and named
// "Unknown (ID: <id>)" so data mismatches stay visible.
func (s *Service) SubjectsForVersion(ctx context.Context, versionID string) ([]models.Subject, error) {
	ids, err := s.store.LinkedSubjectIDs(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Subject{}, nil
	}

	rows, err := s.store.SubjectsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Subject, len(rows))
	for _, sub := range rows {
		byID[NormalizeID(sub.ID)] = sub
	}

	subjects := make([]models.Subject, 0, len(ids))
	for _, id := range ids {
		sub, ok := byID[id]
		if !ok {
			log.Printf("[catalog] subject %s linked to version %s has no subject row", id, versionID)
			sub = models.Subject{ID: id, Name: fmt.Sprintf("Unknown (ID: %s)", id)}
		}
		sub.ID = id
		subjects = append(subjects, sub)
	}
	return subjects, nil
}
