package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/certprep/backend/internal/models"
	"github.com/google/uuid"
)

var (
	ErrInvalidState   = errors.New("operation not allowed in the current quiz state")
	ErrNoSelection    = errors.New("no answer selected")
	ErrUnknownOption  = errors.New("option does not belong to the current question")
	ErrSessionClosed  = errors.New("quiz session has been closed")
	ErrNothingToSave  = errors.New("quiz result has no pending save")
	ErrNotFound       = errors.New("quiz session not found")
	ErrPremium        = errors.New("this quiz mode requires a premium subscription")
	ErrNoExamSelected = errors.New("no exam version selected")
	ErrUnknownMode    = errors.New("unknown quiz mode")
)

const saveTimeout = 10 * time.Second

// Persister stores a completed attempt.
type Persister interface {
	SaveResult(ctx context.Context, session models.QuizSession, answers []models.UserAnswer) error
}

// Notifier receives live session events.
type Notifier interface {
	Broadcast(sessionID string, msg Message)
	CloseSession(sessionID string)
}

// Message is a live event pushed to subscribers of a session.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	MsgSnapshot  = "snapshot"
	MsgTick      = "tick"
	MsgCompleted = "completed"
	MsgSaved     = "saved"
	MsgSaveError = "save_failed"
)

// Session is one live quiz attempt. All fields are guarded by mu; persistence
// and notifications happen outside the lock.
type Session struct {
	mu sync.Mutex

	id        string
	userID    string
	selection models.Selection
	cfg       ModeConfig
	query     Query

	persist Persister
	notify  Notifier
	now     func() time.Time
	tick    time.Duration

	state      models.SessionState
	fetchSeq   int
	closed     bool
	lastActive time.Time

	questions  []models.Question
	index      int
	selected   string
	reveal     *models.Reveal
	answers    map[int]string
	answeredAt map[int]time.Time
	startedAt  time.Time

	deadline  time.Time
	timeLeft  int
	stopTimer chan struct{}
	timedOut  bool

	record        models.QuizSession
	recordAnswers []models.UserAnswer
	result        *models.QuizResult
	saving        bool
}

func newSession(userID string, sel models.Selection, cfg ModeConfig, q Query, persist Persister, notify Notifier, now func() time.Time, tick time.Duration) *Session {
	return &Session{
		id:         uuid.NewString(),
		userID:     userID,
		selection:  sel,
		cfg:        cfg,
		query:      q,
		persist:    persist,
		notify:     notify,
		now:        now,
		tick:       tick,
		state:      models.StateLoading,
		lastActive: now(),
		answers:    make(map[int]string),
		answeredAt: make(map[int]time.Time),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.userID }

// ── Loading ─────────────────────────────────────────────

// beginFetch moves the session into Loading and returns a token that
// identifies this fetch. Only a fresh or empty session may fetch.
func (s *Session) beginFetch() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}
	if s.state != models.StateLoading && s.state != models.StateEmpty {
		return 0, ErrInvalidState
	}
	if s.state == models.StateLoading && s.fetchSeq > 0 {
		return 0, ErrInvalidState
	}
	s.fetchSeq++
	s.state = models.StateLoading
	s.lastActive = s.now()
	return s.fetchSeq, nil
}

// finishFetch applies the outcome of fetch seq. Results of a superseded
// fetch, or of a fetch that completes after teardown, are discarded.
func (s *Session) finishFetch(seq int, questions []models.Question, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.fetchSeq {
		return ErrSessionClosed
	}
	if err != nil {
		s.state = models.StateEmpty
		return models.FetchFailure("load quiz questions", err)
	}
	if len(questions) == 0 {
		s.state = models.StateEmpty
		return models.EmptyResult("load quiz questions")
	}

	s.questions = questions
	s.index = 0
	s.selected = ""
	s.reveal = nil
	s.state = models.StateAnswering
	s.startedAt = s.now()
	if s.cfg.Timed() {
		s.startTimerLocked()
	}
	return nil
}

// ── Answering ───────────────────────────────────────────

// Select records a tentative choice for the current question, replacing
// any earlier one.
func (s *Session) Select(optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateAnswering {
		return ErrInvalidState
	}
	if !s.questions[s.index].HasOption(optionID) {
		return ErrUnknownOption
	}
	s.selected = optionID
	s.lastActive = s.now()
	return nil
}

// Submit locks in the tentative choice and reveals the answer. Submitting
// again while the reveal is showing returns the same reveal.
func (s *Session) Submit() (models.Reveal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case models.StateShowing:
		return *s.reveal, nil
	case models.StateAnswering:
	default:
		return models.Reveal{}, ErrInvalidState
	}
	if s.selected == "" {
		return models.Reveal{}, ErrNoSelection
	}

	s.answers[s.index] = s.selected
	s.answeredAt[s.index] = s.now()
	r := reveal(s.questions[s.index], s.selected)
	s.reveal = &r
	s.state = models.StateShowing
	s.lastActive = s.now()
	return r, nil
}

// Advance moves to the next question, or completes the quiz after the last.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.state != models.StateShowing {
		s.mu.Unlock()
		return ErrInvalidState
	}
	s.lastActive = s.now()
	if s.index+1 < len(s.questions) {
		s.index++
		s.selected = ""
		s.reveal = nil
		s.state = models.StateAnswering
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err := s.Complete(ctx)
	return err
}

// ── Completion ──────────────────────────────────────────

// Complete ends the attempt, scores it and persists it. Calling it again
// returns the existing result without another save.
func (s *Session) Complete(ctx context.Context) (*models.QuizResult, error) {
	s.mu.Lock()
	switch s.state {
	case models.StateCompleted:
		res := s.resultLocked()
		s.mu.Unlock()
		return res, nil
	case models.StateAnswering, models.StateShowing:
	default:
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	s.completeLocked()
	s.mu.Unlock()

	s.emit(MsgCompleted, s.Result())
	err := s.save(ctx)
	return s.Result(), err
}

// SaveResult retries persistence of a completed attempt whose save failed.
func (s *Session) SaveResult(ctx context.Context) (*models.QuizResult, error) {
	s.mu.Lock()
	if s.state != models.StateCompleted || s.result.Saved || s.saving {
		s.mu.Unlock()
		return nil, ErrNothingToSave
	}
	s.saving = true
	s.lastActive = s.now()
	s.mu.Unlock()

	err := s.save(ctx)
	return s.Result(), err
}

// completeLocked scores the attempt and freezes the records to persist.
// The caller must hold mu and have checked the state.
func (s *Session) completeLocked() {
	s.stopTimerLocked()
	end := s.now()
	if s.cfg.Timed() {
		s.timeLeft = s.timeLeftLocked()
	}

	score, reveals := Score(s.questions, s.answers)
	elapsed := int(end.Sub(s.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	s.record = models.QuizSession{
		ID:               s.id,
		UserID:           s.userID,
		ExamVersionID:    s.selection.ExamVersionID,
		QuizType:         s.cfg.Mode,
		Score:            score,
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: elapsed,
		CompletedAt:      end,
	}

	sessionID := s.id
	s.recordAnswers = make([]models.UserAnswer, 0, len(s.questions))
	for i, r := range reveals {
		a := models.UserAnswer{
			ID:            uuid.NewString(),
			UserID:        s.userID,
			QuestionID:    r.QuestionID,
			IsCorrect:     r.Correct,
			QuizSessionID: &sessionID,
			AnsweredAt:    end,
		}
		if r.SelectedOptionID != "" {
			selected := r.SelectedOptionID
			a.SelectedOptionID = &selected
		}
		if at, ok := s.answeredAt[i]; ok {
			a.AnsweredAt = at
		}
		s.recordAnswers = append(s.recordAnswers, a)
	}

	s.result = &models.QuizResult{
		SessionID:        s.id,
		Score:            score,
		TotalQuestions:   len(s.questions),
		TimeTakenSeconds: elapsed,
		TimedOut:         s.timedOut,
		Answers:          reveals,
	}
	s.state = models.StateCompleted
	s.selected = ""
	s.reveal = nil
	s.saving = true
}

func (s *Session) save(ctx context.Context) error {
	s.mu.Lock()
	record, answers := s.record, s.recordAnswers
	s.mu.Unlock()

	err := s.persist.SaveResult(ctx, record, answers)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.result.Saved = false
		s.result.SaveError = "Your result could not be saved. Try saving again."
	} else {
		s.result.Saved = true
		s.result.SaveError = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("[quiz] save session %s failed: %v", s.id, err)
		s.emit(MsgSaveError, s.Result())
		return models.PersistFailure("save quiz result", err)
	}
	s.emit(MsgSaved, s.Result())
	return nil
}

// ── Timer ───────────────────────────────────────────────

func (s *Session) startTimerLocked() {
	s.deadline = s.startedAt.Add(s.cfg.TimeLimit)
	s.timeLeft = s.timeLeftLocked()
	stop := make(chan struct{})
	s.stopTimer = stop
	go s.runTimer(stop)
}

// timeLeftLocked is the countdown in whole seconds, rounded up, measured
// against the clock rather than the number of ticks seen.
func (s *Session) timeLeftLocked() int {
	left := s.deadline.Sub(s.now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (s *Session) stopTimerLocked() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
}

// runTimer recomputes the countdown on every tick, pushes it when the
// displayed second changes, and forces completion once the deadline has
// passed. A tick that loses the race against completion or teardown finds
// its stop channel replaced and exits.
func (s *Session) runTimer(stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.stopTimer != stop || s.state == models.StateCompleted {
			s.mu.Unlock()
			return
		}
		left := s.timeLeftLocked()
		changed := left != s.timeLeft
		s.timeLeft = left
		if left > 0 {
			s.mu.Unlock()
			if changed {
				s.emit(MsgTick, map[string]int{"time_left_seconds": left})
			}
			continue
		}

		s.timedOut = true
		s.completeLocked()
		s.mu.Unlock()

		s.emit(MsgTick, map[string]int{"time_left_seconds": 0})
		s.emit(MsgCompleted, s.Result())

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		s.save(ctx)
		cancel()
		return
	}
}

// ── Lifecycle ───────────────────────────────────────────

// Close stops the timer and marks the session so late fetches are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

// IdleSince reports when the session last saw user activity.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// ── Views ───────────────────────────────────────────────

func (s *Session) Result() *models.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked()
}

func (s *Session) resultLocked() *models.QuizResult {
	if s.result == nil {
		return nil
	}
	res := *s.result
	res.Answers = append([]models.Reveal(nil), s.result.Answers...)
	return &res
}

func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := models.SessionView{
		ID:               s.id,
		Mode:             s.cfg.Mode,
		Title:            Title(s.cfg.Mode),
		ExamVersionID:    s.selection.ExamVersionID,
		State:            s.state,
		QuestionIndex:    s.index,
		TotalQuestions:   len(s.questions),
		SelectedOptionID: s.selected,
	}
	if s.state == models.StateAnswering || s.state == models.StateShowing {
		qv := s.questions[s.index].View()
		v.Question = &qv
	}
	if s.reveal != nil {
		r := *s.reveal
		v.Reveal = &r
	}
	switch {
	case !s.cfg.Timed():
	case s.state == models.StateAnswering || s.state == models.StateShowing:
		left := s.timeLeftLocked()
		v.TimeLeftSeconds = &left
	case s.state == models.StateCompleted:
		left := s.timeLeft
		v.TimeLeftSeconds = &left
	}
	v.Result = s.resultLocked()
	return v
}

func (s *Session) emit(msgType string, data any) {
	if s.notify == nil {
		return
	}
	s.notify.Broadcast(s.id, Message{Type: msgType, Data: data})
}
