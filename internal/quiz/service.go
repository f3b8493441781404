package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/certprep/backend/internal/models"
)

// QuestionStore is the question source and result sink of quiz sessions.
type QuestionStore interface {
	FetchQuestions(ctx context.Context, q Query) ([]models.Question, error)
	Persister
}

type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// SelectionReader returns the user's saved exam selection, or nil.
type SelectionReader interface {
	Get(ctx context.Context, userID string) (*models.Selection, error)
}

// DailyAssigner makes sure a question of the day exists for a version.
type DailyAssigner interface {
	EnsureAssigned(ctx context.Context, examVersionID, date string) error
}

// Service owns the registry of live quiz sessions.
type Service struct {
	store      QuestionStore
	users      UserLookup
	selections SelectionReader
	daily      DailyAssigner
	notify     Notifier
	loc        *time.Location
	now        func() time.Time
	tick       time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService wires the controller. selections, daily and notify may be nil.
func NewService(store QuestionStore, users UserLookup, selections SelectionReader, daily DailyAssigner, notify Notifier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:      store,
		users:      users,
		selections: selections,
		daily:      daily,
		notify:     notify,
		loc:        loc,
		now:        time.Now,
		tick:       time.Second,
		sessions:   make(map[string]*Session),
	}
}

// ── Session Lifecycle ───────────────────────────────────

// Start creates a session and loads its questions. On FetchFailure or
// EmptyResult the session stays registered in the empty state so it can
// be retried, and its view is returned alongside the error.
func (s *Service) Start(ctx context.Context, userID string, req models.StartQuizRequest) (*models.SessionView, error) {
	sel, err := s.resolveSelection(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	cfg, ok := ConfigFor(req.Mode, req.Custom)
	if !ok {
		return nil, ErrUnknownMode
	}
	if cfg.Premium {
		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return nil, models.FetchFailure("load user", err)
		}
		if !user.IsPremium() {
			return nil, ErrPremium
		}
	}

	q := Query{
		Mode:          cfg.Mode,
		UserID:        userID,
		ExamVersionID: sel.ExamVersionID,
		Difficulty:    cfg.Difficulty,
		Limit:         cfg.QuestionCount,
	}
	if cfg.Mode != models.QuizDaily && cfg.Mode != models.QuizWeakest {
		q.SubjectID = sel.SubjectID
	}

	sess := newSession(userID, sel, cfg, q, s.store, s.notify, s.now, s.tick)
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	log.Printf("[quiz] session %s started: user=%s mode=%s version=%s", sess.ID(), userID, cfg.Mode, sel.ExamVersionID)
	err = s.load(ctx, sess)
	view := sess.View()
	return &view, err
}

// Retry re-runs the question fetch of a session left empty.
func (s *Service) Retry(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	err = s.load(ctx, sess)
	if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrSessionClosed) {
		return nil, err
	}
	view := sess.View()
	return &view, err
}

func (s *Service) load(ctx context.Context, sess *Session) error {
	seq, err := sess.beginFetch()
	if err != nil {
		return err
	}

	q := sess.query
	var questions []models.Question
	if q.Mode == models.QuizDaily {
		q.Date = s.now().In(s.loc).Format("2006-01-02")
		sess.mu.Lock()
		sess.query.Date = q.Date
		sess.mu.Unlock()
		if s.daily != nil {
			err = s.daily.EnsureAssigned(ctx, q.ExamVersionID, q.Date)
		}
	}
	if err == nil {
		questions, err = s.store.FetchQuestions(ctx, q)
	}

	if err := sess.finishFetch(seq, questions, err); err != nil {
		log.Printf("[quiz] session %s load: %v", sess.ID(), err)
		return err
	}
	return nil
}

// Teardown stops a session's timer and drops it from the registry.
func (s *Service) Teardown(userID, sessionID string) error {
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return err
	}
	s.remove(sess)
	return nil
}

func (s *Service) remove(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()

	sess.Close()
	if s.notify != nil {
		s.notify.CloseSession(sess.ID())
	}
}

// Sweep tears down sessions idle for longer than ttl and returns how many
// were removed.
func (s *Service) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.RLock()
	var stale []*Session
	for _, sess := range s.sessions {
		if sess.IdleSince().Before(cutoff) {
			stale = append(stale, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range stale {
		s.remove(sess)
	}
	if len(stale) > 0 {
		log.Printf("[quiz] swept %d idle sessions", len(stale))
	}
	return len(stale)
}

// ── Session Operations ──────────────────────────────────

func (s *Service) Get(userID, sessionID string) (*models.SessionView, error) {
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	view := sess.View()
	return &view, nil
}

func (s *Service) Select(userID, sessionID, optionID string) (*models.SessionView, error) {
	return s.apply(userID, sessionID, func(sess *Session) error {
		return sess.Select(optionID)
	})
}

func (s *Service) Submit(userID, sessionID string) (*models.SessionView, error) {
	return s.apply(userID, sessionID, func(sess *Session) error {
		_, err := sess.Submit()
		return err
	})
}

func (s *Service) Advance(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	return s.apply(userID, sessionID, func(sess *Session) error {
		return sess.Advance(ctx)
	})
}

func (s *Service) Complete(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	return s.apply(userID, sessionID, func(sess *Session) error {
		_, err := sess.Complete(ctx)
		return err
	})
}

func (s *Service) SaveResult(ctx context.Context, userID, sessionID string) (*models.SessionView, error) {
	return s.apply(userID, sessionID, func(sess *Session) error {
		_, err := sess.SaveResult(ctx)
		return err
	})
}

// apply runs op on the session. A PersistFailure still returns the view,
// since the in-memory result stays valid.
func (s *Service) apply(userID, sessionID string, op func(*Session) error) (*models.SessionView, error) {
	sess, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	err = op(sess)
	if err != nil && !errors.Is(err, models.ErrPersistFailure) {
		return nil, err
	}
	view := sess.View()
	return &view, err
}

// ── Helpers ─────────────────────────────────────────────

func (s *Service) lookup(userID, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || sess.UserID() != userID {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Service) resolveSelection(ctx context.Context, userID string, req models.StartQuizRequest) (models.Selection, error) {
	if req.ExamVersionID != "" {
		return models.Selection{ExamVersionID: req.ExamVersionID, SubjectID: req.SubjectID}, nil
	}
	if s.selections == nil {
		return models.Selection{}, ErrNoExamSelected
	}
	saved, err := s.selections.Get(ctx, userID)
	if err != nil {
		return models.Selection{}, models.FetchFailure("load selection", err)
	}
	if saved == nil || saved.ExamVersionID == "" {
		return models.Selection{}, ErrNoExamSelected
	}
	sel := *saved
	if req.SubjectID != "" {
		sel.SubjectID = req.SubjectID
	}
	return sel, nil
}
