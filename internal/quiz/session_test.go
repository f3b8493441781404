package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/certprep/backend/internal/models"
)

// ── Fakes ───────────────────────────────────────────────

type fakeStore struct {
	mu        sync.Mutex
	questions []models.Question
	fetchErr  error
	saveErr   error
	queries   []Query
	saved     []models.QuizSession
	answers   [][]models.UserAnswer

	fetching chan struct{}
	release  chan struct{}
}

func (f *fakeStore) FetchQuestions(ctx context.Context, q Query) ([]models.Question, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fetching, release := f.fetching, f.release
	f.mu.Unlock()

	if fetching != nil {
		fetching <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if len(f.questions) > q.Limit {
		return f.questions[:q.Limit], nil
	}
	return f.questions, nil
}

func (f *fakeStore) SaveResult(ctx context.Context, session models.QuizSession, answers []models.UserAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, session)
	f.answers = append(f.answers, answers)
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakeStore) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// question builds a question with options A-D where correct is the letter
// of the correct option, or "" for none.
func question(id, correct string) models.Question {
	q := models.Question{ID: id, QuestionText: "Question " + id, Explanation: "Because " + id}
	for _, letter := range []string{"A", "B", "C", "D"} {
		q.Options = append(q.Options, models.Option{
			ID:           id + "-" + letter,
			QuestionID:   id,
			OptionLetter: letter,
			OptionText:   "Option " + letter,
			IsCorrect:    letter == correct,
		})
	}
	return q
}

func loadedSession(t *testing.T, store *fakeStore, cfg ModeConfig, clock *fakeClock, tick time.Duration) *Session {
	t.Helper()
	sel := models.Selection{ExamVersionID: "v1"}
	s := newSession("u1", sel, cfg, Query{Mode: cfg.Mode, Limit: cfg.QuestionCount}, store, nil, clock.Now, tick)
	seq, err := s.beginFetch()
	if err != nil {
		t.Fatalf("beginFetch: %v", err)
	}
	if err := s.finishFetch(seq, store.questions, nil); err != nil {
		t.Fatalf("finishFetch: %v", err)
	}
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ── Tests ───────────────────────────────────────────────

func TestConfigFor(t *testing.T) {
	tests := []struct {
		name      string
		mode      models.QuizType
		custom    *models.CustomQuiz
		wantCount int
		wantLimit time.Duration
		premium   bool
	}{
		{"daily", models.QuizDaily, nil, 1, 0, false},
		{"quick", models.QuizQuick10, nil, 10, 0, false},
		{"timed", models.QuizTimed, nil, 20, 30 * time.Minute, false},
		{"level up", models.QuizLevelUp, nil, 10, 0, true},
		{"custom defaults", models.QuizCustom, nil, 10, 0, true},
		{"custom params", models.QuizCustom, &models.CustomQuiz{Count: 25, TimeLimitMinutes: 15}, 25, 15 * time.Minute, true},
		{"custom clamps count", models.QuizCustom, &models.CustomQuiz{Count: 500}, 50, 0, true},
		{"custom ignored elsewhere", models.QuizQuick10, &models.CustomQuiz{Count: 3}, 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, ok := ConfigFor(tt.mode, tt.custom)
			if !ok {
				t.Fatalf("ConfigFor(%s) not found", tt.mode)
			}
			if cfg.QuestionCount != tt.wantCount || cfg.TimeLimit != tt.wantLimit || cfg.Premium != tt.premium {
				t.Errorf("ConfigFor(%s) = %+v", tt.mode, cfg)
			}
		})
	}
	if _, ok := ConfigFor("marathon", nil); ok {
		t.Error("unknown mode should not resolve")
	}
}

func TestScore(t *testing.T) {
	questions := []models.Question{
		question("q1", "A"),
		question("q2", "B"),
		question("q3", ""), // no correct option
		question("q4", "D"),
	}
	answers := map[int]string{0: "q1-A", 1: "q2-C", 2: "q3-A"}

	score, reveals := Score(questions, answers)
	if score != 1 {
		t.Errorf("score = %d, want 1", score)
	}
	if len(reveals) != 4 {
		t.Fatalf("got %d reveals, want 4", len(reveals))
	}
	if reveals[1].CorrectOptionID != "q2-B" || reveals[1].Correct {
		t.Errorf("wrong answer reveal = %+v", reveals[1])
	}
	if reveals[2].Correct || reveals[2].CorrectOptionID != "" {
		t.Errorf("question without a correct option should be incorrect, got %+v", reveals[2])
	}
	if reveals[3].Correct || reveals[3].SelectedOptionID != "" {
		t.Errorf("unanswered question should be incorrect, got %+v", reveals[3])
	}
}

func TestSessionAnswerFlow(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A"), question("q2", "B")}}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	cfg, _ := ConfigFor(models.QuizQuick10, nil)
	s := loadedSession(t, store, cfg, clock, time.Second)
	ctx := context.Background()

	if _, err := s.Submit(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("Submit without selection = %v, want ErrNoSelection", err)
	}
	if err := s.Select("q2-A"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("Select foreign option = %v, want ErrUnknownOption", err)
	}
	if err := s.Advance(ctx); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Advance while answering = %v, want ErrInvalidState", err)
	}

	if err := s.Select("q1-C"); err != nil {
		t.Fatal(err)
	}
	if err := s.Select("q1-A"); err != nil {
		t.Fatal(err)
	}
	first, err := s.Submit()
	if err != nil {
		t.Fatal(err)
	}
	if !first.Correct || first.CorrectOptionID != "q1-A" || first.Explanation != "Because q1" {
		t.Errorf("reveal = %+v", first)
	}

	again, err := s.Submit()
	if err != nil || again != first {
		t.Errorf("second Submit = %+v, %v; want the same reveal", again, err)
	}
	if err := s.Select("q1-B"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Select while showing result = %v, want ErrInvalidState", err)
	}

	if err := s.Advance(ctx); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if v.State != models.StateAnswering || v.QuestionIndex != 1 || v.SelectedOptionID != "" || v.Reveal != nil {
		t.Errorf("view after advance = %+v", v)
	}

	clock.Advance(95*time.Second + 400*time.Millisecond)
	s.Select("q2-C")
	s.Submit()
	if err := s.Advance(ctx); err != nil {
		t.Fatal(err)
	}

	res := s.Result()
	if res == nil || res.Score != 1 || res.TotalQuestions != 2 || res.TimeTakenSeconds != 95 || !res.Saved {
		t.Fatalf("result = %+v", res)
	}
	if store.saveCount() != 1 {
		t.Fatalf("saves = %d, want 1", store.saveCount())
	}

	saved, answers := store.saved[0], store.answers[0]
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
		if a.QuizSessionID == nil || *a.QuizSessionID != saved.ID {
			t.Errorf("answer %s not linked to session", a.QuestionID)
		}
	}
	if saved.Score != correct || len(answers) != saved.TotalQuestions {
		t.Errorf("persisted score %d with %d correct of %d answers", saved.Score, correct, len(answers))
	}

	if _, err := s.Complete(ctx); err != nil {
		t.Errorf("Complete after completion = %v", err)
	}
	if store.saveCount() != 1 {
		t.Errorf("repeated Complete saved again: %d saves", store.saveCount())
	}
}

func TestCompleteEarlyCountsUnansweredAsIncorrect(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A"), question("q2", "B"), question("q3", "C")}}
	clock := &fakeClock{t: time.Now()}
	cfg, _ := ConfigFor(models.QuizQuick10, nil)
	s := loadedSession(t, store, cfg, clock, time.Second)

	s.Select("q1-A")
	s.Submit()

	res, err := s.Complete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 1 || res.TotalQuestions != 3 {
		t.Errorf("result = %+v", res)
	}
	answers := store.answers[0]
	if len(answers) != 3 {
		t.Fatalf("persisted %d answers, want 3", len(answers))
	}
	if answers[2].SelectedOptionID != nil || answers[2].IsCorrect {
		t.Errorf("unanswered record = %+v", answers[2])
	}
}

func TestPersistFailureKeepsResult(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A")}, saveErr: errors.New("connection reset")}
	clock := &fakeClock{t: time.Now()}
	cfg, _ := ConfigFor(models.QuizDaily, nil)
	s := loadedSession(t, store, cfg, clock, time.Second)
	ctx := context.Background()

	s.Select("q1-A")
	s.Submit()
	err := s.Advance(ctx)
	if !errors.Is(err, models.ErrPersistFailure) {
		t.Fatalf("Advance past last question = %v, want PersistFailure", err)
	}
	res := s.Result()
	if res.Saved || res.SaveError == "" || res.Score != 1 {
		t.Errorf("result after failed save = %+v", res)
	}
	if s.View().State != models.StateCompleted {
		t.Errorf("state = %s, want completed", s.View().State)
	}

	store.setSaveErr(nil)
	res, err = s.SaveResult(ctx)
	if err != nil || !res.Saved {
		t.Fatalf("SaveResult = %+v, %v", res, err)
	}
	if _, err := s.SaveResult(ctx); !errors.Is(err, ErrNothingToSave) {
		t.Errorf("SaveResult after success = %v, want ErrNothingToSave", err)
	}
	if store.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", store.saveCount())
	}
}

func TestCompletionRacingTimerSavesOnce(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A"), question("q2", "B")}}
	clock := &fakeClock{t: time.Now()}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 3 * time.Second}
	s := loadedSession(t, store, cfg, clock, time.Millisecond)

	if left := s.View().TimeLeftSeconds; left == nil || *left > 3 {
		t.Fatalf("time left = %v", left)
	}

	s.Select("q1-A")
	s.Submit()
	clock.Advance(3 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Complete(context.Background())
		}()
	}
	wg.Wait()

	waitFor(t, "timed quiz to complete", func() bool {
		res := s.Result()
		return res != nil && res.Saved
	})
	time.Sleep(20 * time.Millisecond)

	if n := store.saveCount(); n != 1 {
		t.Fatalf("saves = %d, want exactly 1", n)
	}
	if res := s.Result(); res.Score != 1 || res.TotalQuestions != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestTimerExpiry(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A"), question("q2", "B")}}
	clock := &fakeClock{t: time.Now()}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 3 * time.Second}
	s := loadedSession(t, store, cfg, clock, time.Millisecond)
	clock.Advance(3 * time.Second)

	waitFor(t, "timer expiry", func() bool {
		res := s.Result()
		return res != nil && res.Saved
	})

	res := s.Result()
	if !res.TimedOut || res.Score != 0 {
		t.Errorf("result = %+v", res)
	}
	if left := s.View().TimeLeftSeconds; left == nil || *left != 0 {
		t.Errorf("time left after expiry = %v, want 0", left)
	}
	if store.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", store.saveCount())
	}
}

func TestCloseStopsTimer(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A")}}
	clock := &fakeClock{t: time.Now()}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 5 * time.Second}
	s := loadedSession(t, store, cfg, clock, time.Millisecond)

	s.Close()
	clock.Advance(10 * time.Second)
	time.Sleep(30 * time.Millisecond)

	if s.View().State != models.StateAnswering {
		t.Errorf("state = %s, want answering", s.View().State)
	}
	if store.saveCount() != 0 {
		t.Errorf("closed session was saved")
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	types  []string
	closed []string
}

func (n *recordingNotifier) Broadcast(sessionID string, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, msg.Type)
}

func (n *recordingNotifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.types...)
}

func TestTimerPushesEvents(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A")}}
	clock := &fakeClock{t: time.Now()}
	notify := &recordingNotifier{}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 2 * time.Second}

	s := newSession("u1", models.Selection{ExamVersionID: "v1"}, cfg, Query{Mode: cfg.Mode, Limit: 20}, store, notify, clock.Now, time.Millisecond)
	seq, _ := s.beginFetch()
	if err := s.finishFetch(seq, store.questions, nil); err != nil {
		t.Fatalf("finishFetch: %v", err)
	}

	// Ticks with an unchanged second push nothing.
	time.Sleep(20 * time.Millisecond)
	if got := notify.snapshot(); len(got) != 0 {
		t.Fatalf("events before the clock moved = %v", got)
	}

	clock.Advance(time.Second)
	waitFor(t, "first tick", func() bool { return len(notify.snapshot()) == 1 })
	clock.Advance(time.Second)
	waitFor(t, "saved event", func() bool {
		types := notify.snapshot()
		return len(types) > 0 && types[len(types)-1] == MsgSaved
	})

	want := []string{MsgTick, MsgTick, MsgCompleted, MsgSaved}
	got := notify.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTimeLeftFollowsClock(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A")}}
	clock := &fakeClock{t: time.Now()}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 30 * time.Second}
	s := loadedSession(t, store, cfg, clock, time.Hour)
	defer s.Close()

	if left := s.View().TimeLeftSeconds; left == nil || *left != 30 {
		t.Fatalf("time left at start = %v, want 30", left)
	}
	clock.Advance(10*time.Second + 500*time.Millisecond)
	if left := s.View().TimeLeftSeconds; left == nil || *left != 20 {
		t.Errorf("time left after 10.5s = %v, want 20", left)
	}
}

// blockingNotifier stalls every broadcast, like a slow websocket client.
type blockingNotifier struct {
	delay time.Duration
}

func (n blockingNotifier) Broadcast(sessionID string, msg Message) { time.Sleep(n.delay) }

func (n blockingNotifier) CloseSession(sessionID string) {}

func TestSlowNotifierDoesNotStretchCountdown(t *testing.T) {
	store := &fakeStore{questions: []models.Question{question("q1", "A")}}
	cfg := ModeConfig{Mode: models.QuizTimed, QuestionCount: 20, TimeLimit: 2 * time.Second}
	notify := blockingNotifier{delay: 400 * time.Millisecond}

	start := time.Now()
	s := newSession("u1", models.Selection{ExamVersionID: "v1"}, cfg, Query{Mode: cfg.Mode, Limit: 20}, store, notify, time.Now, 10*time.Millisecond)
	seq, _ := s.beginFetch()
	if err := s.finishFetch(seq, store.questions, nil); err != nil {
		t.Fatalf("finishFetch: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Result() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	elapsed := time.Since(start)

	res := s.Result()
	if res == nil || !res.TimedOut {
		t.Fatalf("result = %+v, want a timed-out result", res)
	}
	if elapsed < cfg.TimeLimit {
		t.Errorf("timed quiz completed after %s, before its %s limit", elapsed, cfg.TimeLimit)
	}
	// Completion may trail the deadline by at most one stalled broadcast.
	if elapsed > cfg.TimeLimit+notify.delay+200*time.Millisecond {
		t.Errorf("timed quiz completed after %s, limit %s", elapsed, cfg.TimeLimit)
	}
	if left := s.View().TimeLeftSeconds; left == nil || *left != 0 {
		t.Errorf("time left after expiry = %v, want 0", left)
	}
}
