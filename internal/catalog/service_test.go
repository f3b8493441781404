package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/certprep/backend/internal/models"
	"github.com/gorilla/mux"
)

type fakeReader struct {
	links    map[string][]string
	subjects []models.Subject
	versions map[string]*models.ExamVersion
	err      error
}

func (f *fakeReader) ListActiveExams(ctx context.Context) ([]models.Exam, error) {
	return nil, f.err
}

func (f *fakeReader) GetExam(ctx context.Context, examID string) (*models.Exam, error) {
	return nil, ErrNotFound
}

func (f *fakeReader) ListVersions(ctx context.Context, examID string) ([]models.ExamVersion, error) {
	return nil, f.err
}

func (f *fakeReader) GetVersion(ctx context.Context, versionID string) (*models.ExamVersion, error) {
	if v, ok := f.versions[versionID]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (f *fakeReader) LinkedSubjectIDs(ctx context.Context, versionID string) ([]string, error) {
	return f.links[versionID], f.err
}

func (f *fakeReader) SubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	return f.subjects, f.err
}

func TestSubjectsForVersion(t *testing.T) {
	reader := &fakeReader{
		links: map[string][]string{"v1": {"s-net", "s-risk", "s-ghost"}},
		subjects: []models.Subject{
			{ID: " S-NET ", Name: "Network Security"},
			{ID: "s-risk", Name: "Risk Management"},
		},
	}
	svc := NewService(reader)

	subjects, err := svc.SubjectsForVersion(context.Background(), "v1")
	if err != nil {
		t.Fatalf("SubjectsForVersion: %v", err)
	}
	if len(subjects) != 3 {
		t.Fatalf("expected 3 subjects, got %d", len(subjects))
	}

	want := []struct{ id, name string }{
		{"s-net", "Network Security"},
		{"s-risk", "Risk Management"},
		{"s-ghost", "Unknown (ID: s-ghost)"},
	}
	for i, w := range want {
		if subjects[i].ID != w.id || subjects[i].Name != w.name {
			t.Errorf("subject %d = %+v, want id=%s name=%s", i, subjects[i], w.id, w.name)
		}
	}
}

func TestSubjectsForVersionNoLinks(t *testing.T) {
	svc := NewService(&fakeReader{links: map[string][]string{}})
	subjects, err := svc.SubjectsForVersion(context.Background(), "v1")
	if err != nil {
		t.Fatalf("SubjectsForVersion: %v", err)
	}
	if subjects == nil || len(subjects) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", subjects)
	}
}

func TestSubjectsForVersionError(t *testing.T) {
	svc := NewService(&fakeReader{err: errors.New("boom")})
	if _, err := svc.SubjectsForVersion(context.Background(), "v1"); err == nil {
		t.Error("expected fetch error to propagate")
	}
}

func TestListSubjectsHandler(t *testing.T) {
	reader := &fakeReader{
		links:    map[string][]string{"v1": {"s-net"}},
		subjects: []models.Subject{{ID: "s-net", Name: "Network Security"}},
		versions: map[string]*models.ExamVersion{"v1": {ID: "v1"}},
	}
	r := mux.NewRouter()
	NewHandler(NewService(reader)).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/versions/v1/subjects", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []models.Subject
	json.NewDecoder(rec.Body).Decode(&got)
	if len(got) != 1 || got[0].Name != "Network Security" {
		t.Errorf("unexpected subjects: %+v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/versions/missing/subjects", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing version status = %d, want 404", rec.Code)
	}
}
