package generator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/certprep/backend/internal/catalog"
	"github.com/certprep/backend/internal/models"
)

const defaultCount = 5

var (
	ErrUnknownVersion   = errors.New("exam version not found")
	ErrSubjectNotLinked = errors.New("subject is not linked to this exam version")
	ErrNothingAccepted  = errors.New("no generated question passed validation")
)

// Catalog is the slice of the catalog service generation needs.
type Catalog interface {
	GetExam(ctx context.Context, examID string) (*models.Exam, error)
	GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error)
	SubjectsForVersion(ctx context.Context, versionID string) ([]models.Subject, error)
}

type QuestionWriter interface {
	InsertQuestions(ctx context.Context, questions []models.Question) ([]string, error)
}

type Service struct {
	gen     *Generator
	catalog Catalog
	writer  QuestionWriter
}

func NewService(gen *Generator, catalog Catalog, writer QuestionWriter) *Service {
	return &Service{gen: gen, catalog: catalog, writer: writer}
}

// ── Question Generation ─────────────────────────────────

// Generate drafts questions for one subject of an exam version, drops the
// ones that fail validation and stores the rest.
func (s *Service) Generate(ctx context.Context, req models.GenerateQuestionsRequest) (*models.GenerateQuestionsResponse, error) {
	if req.Count <= 0 {
		req.Count = defaultCount
	}
	versionID := catalog.NormalizeID(req.ExamVersionID)
	subjectID := catalog.NormalizeID(req.SubjectID)

	version, err := s.catalog.GetVersion(ctx, versionID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrUnknownVersion
	}
	if err != nil {
		return nil, models.FetchFailure("load exam version", err)
	}

	brief := Brief{
		VersionName: version.VersionName,
		Difficulty:  req.Difficulty,
		Count:       req.Count,
	}
	if exam, err := s.catalog.GetExam(ctx, version.ExamID); err == nil {
		brief.ExamTitle = exam.Title
	} else {
		log.Printf("[generator] exam %s for version %s: %v", version.ExamID, versionID, err)
		brief.ExamTitle = version.VersionName
	}

	subjects, err := s.catalog.SubjectsForVersion(ctx, versionID)
	if err != nil {
		return nil, models.FetchFailure("load subjects", err)
	}
	for _, sub := range subjects {
		if sub.ID == subjectID {
			brief.SubjectName = sub.Name
			break
		}
	}
	if brief.SubjectName == "" {
		return nil, ErrSubjectNotLinked
	}

	log.Printf("[generator] drafting %d %s questions for %s / %s", brief.Count, brief.Difficulty, brief.ExamTitle, brief.SubjectName)
	batch, resp, err := s.gen.Draft(ctx, brief)
	if err != nil {
		return nil, models.FetchFailure("draft questions", err)
	}

	accepted, rejected := Split(batch, versionID, subjectID, req.Difficulty)
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w (%d rejected)", ErrNothingAccepted, rejected)
	}

	ids, err := s.writer.InsertQuestions(ctx, accepted)
	if err != nil {
		return nil, models.PersistFailure("insert questions", err)
	}
	log.Printf("[generator] stored %d questions (%d rejected, %d/%d tokens)", len(ids), rejected, resp.PromptTokens, resp.OutputTokens)

	return &models.GenerateQuestionsResponse{
		ExamVersionID: versionID,
		SubjectID:     subjectID,
		QuestionIDs:   ids,
		Rejected:      rejected,
		PromptTokens:  resp.PromptTokens,
		OutputTokens:  resp.OutputTokens,
	}, nil
}
