package daily

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/certprep/backend/internal/models"
	"github.com/certprep/backend/internal/quiz"
)

type fakeAssigner struct {
	assigned map[string]string // version@date -> question id
	pool     map[string][]string
	versions []string
	err      error
}

func newFakeAssigner() *fakeAssigner {
	return &fakeAssigner{assigned: map[string]string{}, pool: map[string][]string{}}
}

func (f *fakeAssigner) Assign(ctx context.Context, versionID, date string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := versionID + "@" + date
	if _, ok := f.assigned[key]; ok || len(f.pool[versionID]) == 0 {
		return false, nil
	}
	f.assigned[key] = f.pool[versionID][0]
	return true, nil
}

func (f *fakeAssigner) CurrentVersionIDs(ctx context.Context) ([]string, error) {
	return f.versions, f.err
}

type fakeFetcher struct {
	store *fakeAssigner
	last  quiz.Query
}

func (f *fakeFetcher) FetchQuestions(ctx context.Context, q quiz.Query) ([]models.Question, error) {
	f.last = q
	id := f.store.assigned[q.ExamVersionID+"@"+q.Date]
	if id == "" {
		return nil, nil
	}
	return []models.Question{{
		ID:           id,
		QuestionText: "Which port does HTTPS use?",
		Options: []models.Option{
			{ID: id + "-a", OptionLetter: "A", OptionText: "443", IsCorrect: true},
			{ID: id + "-b", OptionLetter: "B", OptionText: "80"},
		},
	}}, nil
}

const versionID = "9d2f5a1e-3b7c-4e8a-a1d2-6c5b4f3e2d10"

func newTestService(store *fakeAssigner) *Service {
	svc := NewService(store, &fakeFetcher{store: store}, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestQuestionAssignsOnDemand(t *testing.T) {
	store := newFakeAssigner()
	store.pool[versionID] = []string{"q-7"}
	svc := newTestService(store)

	dq, err := svc.Question(context.Background(), versionID)
	if err != nil {
		t.Fatal(err)
	}
	if dq.QuestionDate != "2024-02-29" || dq.QuestionID != "q-7" || dq.Question == nil {
		t.Fatalf("daily question = %+v", dq)
	}
	if len(dq.Question.Options) != 2 {
		t.Errorf("options = %+v", dq.Question.Options)
	}
}

func TestQuestionEmptyAndFailure(t *testing.T) {
	svc := newTestService(newFakeAssigner())
	if _, err := svc.Question(context.Background(), versionID); !errors.Is(err, models.ErrEmptyResult) {
		t.Errorf("no questions = %v, want EmptyResult", err)
	}

	store := newFakeAssigner()
	store.err = errors.New("db down")
	svc = newTestService(store)
	if _, err := svc.Question(context.Background(), versionID); !errors.Is(err, models.ErrFetchFailure) {
		t.Errorf("store failure = %v, want FetchFailure", err)
	}
}

func TestAssignAll(t *testing.T) {
	store := newFakeAssigner()
	store.versions = []string{"v1", "v2", "v3"}
	store.pool["v1"] = []string{"q1"}
	store.pool["v2"] = []string{"q2"}
	svc := newTestService(store)
	ctx := context.Background()

	n, err := svc.AssignAll(ctx, "")
	if err != nil || n != 2 {
		t.Fatalf("AssignAll = %d, %v; want 2", n, err)
	}
	if store.assigned["v1@2024-02-29"] != "q1" {
		t.Errorf("assignments = %v", store.assigned)
	}

	n, _ = svc.AssignAll(ctx, "2024-02-29")
	if n != 0 {
		t.Errorf("second AssignAll assigned %d, want 0", n)
	}

	if _, err := svc.AssignAll(ctx, "29/02/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date = %v, want ErrInvalidDate", err)
	}
}

func TestHandlers(t *testing.T) {
	store := newFakeAssigner()
	store.versions = []string{versionID}
	store.pool[versionID] = []string{"q-1"}
	h := NewHandler(newTestService(store))

	rec := httptest.NewRecorder()
	h.GetDailyQuestion(rec, httptest.NewRequest("GET", "/daily", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing version status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.AssignDailyQuestions(rec, httptest.NewRequest("POST", "/admin/daily/assign", strings.NewReader(`{"date":"2024-03-01"}`)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"assigned":1`) {
		t.Errorf("assign status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.GetDailyQuestion(rec, httptest.NewRequest("GET", "/daily?exam_version_id="+versionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "is_correct") {
		t.Error("daily question response leaks the correct option")
	}
}
