package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPollInterval is how often the session list is refreshed
const DefaultPollInterval = 2 * time.Second

// Selection is the user's current focus; empty ids mean no selection
type Selection struct {
	SessionID  string `json:"selectedSessionId,omitempty" yaml:"selected_session_id,omitempty"`
	ExchangeID string `json:"selectedExchangeId,omitempty" yaml:"selected_exchange_id,omitempty"`
}

// SyncState is everything SessionSync owns. Current is never mutated once set;
// a new detail fetch replaces it.
type SyncState struct {
	Sessions  []SessionSummary
	Selection Selection
	Current   *NormalizedSession
	LastError error
}

// Session returns the summary with the given id
func (s SyncState) Session(id string) (SessionSummary, bool) {
	for _, summary := range s.Sessions {
		if summary.ID == id {
			return summary, true
		}
	}
	return SessionSummary{}, false
}

// CurrentIsSelected reports whether Current belongs to the selected session
func (s SyncState) CurrentIsSelected() bool {
	return s.Current != nil && s.Current.ID == s.Selection.SessionID
}

// SyncEvent is an input to ReduceSync
type SyncEvent interface {
	isSyncEvent()
}

// ListLoaded carries a freshly fetched session list
type ListLoaded struct{ Sessions []SessionSummary }

// ListFailed reports a failed list refresh
type ListFailed struct{ Err error }

// SessionSelected records a user selection
type SessionSelected struct{ ID string }

// ExchangeSelected records a user exchange selection within the current session
type ExchangeSelected struct{ ID string }

// DetailLoaded carries a normalized detail for the session id that was requested
type DetailLoaded struct {
	RequestedID string
	Session     *NormalizedSession
}

// DetailFailed reports a failed detail fetch
type DetailFailed struct {
	RequestedID string
	Err         error
}

// SessionDeleted reports a delete confirmed by the backend
type SessionDeleted struct{ ID string }

func (ListLoaded) isSyncEvent()       {}
func (ListFailed) isSyncEvent()       {}
func (SessionSelected) isSyncEvent()  {}
func (ExchangeSelected) isSyncEvent() {}
func (DetailLoaded) isSyncEvent()     {}
func (DetailFailed) isSyncEvent()     {}
func (SessionDeleted) isSyncEvent()   {}

// Reconcile keeps sel when its session is still listed; otherwise it falls back
// to the first (newest) session, or to no selection for an empty list.
func Reconcile(sel Selection, sessions []SessionSummary) Selection {
	if sel.SessionID != "" {
		for _, s := range sessions {
			if s.ID == sel.SessionID {
				return sel
			}
		}
	}
	if len(sessions) == 0 {
		return Selection{}
	}
	return Selection{SessionID: sessions[0].ID}
}

// ReduceSync applies ev to s
func ReduceSync(s SyncState, ev SyncEvent) SyncState {
	switch e := ev.(type) {
	case ListLoaded:
		s.Sessions = append([]SessionSummary(nil), e.Sessions...)
		s.LastError = nil
		return reconcileState(s)

	case ListFailed:
		s.LastError = e.Err
		return s

	case SessionSelected:
		if e.ID != s.Selection.SessionID {
			s.Selection = Selection{SessionID: e.ID}
		}
		return s

	case ExchangeSelected:
		if s.CurrentIsSelected() {
			if _, ok := s.Current.Exchange(e.ID); ok {
				s.Selection.ExchangeID = e.ID
			}
		}
		return s

	case DetailLoaded:
		if e.Session == nil || e.RequestedID != s.Selection.SessionID {
			return s
		}
		sameSession := s.Current != nil && s.Current.ID == e.Session.ID
		s.Current = e.Session
		s.LastError = nil
		if _, ok := e.Session.Exchange(s.Selection.ExchangeID); !sameSession || !ok {
			s.Selection.ExchangeID = e.Session.LastExchangeID()
		}
		return s

	case DetailFailed:
		s.LastError = e.Err
		return s

	case SessionDeleted:
		sessions := make([]SessionSummary, 0, len(s.Sessions))
		for _, summary := range s.Sessions {
			if summary.ID != e.ID {
				sessions = append(sessions, summary)
			}
		}
		s.Sessions = sessions
		if s.Current != nil && s.Current.ID == e.ID {
			s.Current = nil
		}
		if s.Selection.SessionID == e.ID {
			s.Selection = Selection{}
		}
		return reconcileState(s)
	}
	return s
}

func reconcileState(s SyncState) SyncState {
	next := Reconcile(s.Selection, s.Sessions)
	if next.SessionID != s.Selection.SessionID {
		if s.Current != nil && s.Current.ID != next.SessionID {
			s.Current = nil
		}
	}
	s.Selection = next
	return s
}

// SyncOption configures a SessionSync
type SyncOption func(*SessionSync)

// WithPollInterval sets the list refresh interval
func WithPollInterval(d time.Duration) SyncOption {
	return func(s *SessionSync) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMetrics records outcomes on m
func WithMetrics(m *SyncMetrics) SyncOption {
	return func(s *SessionSync) {
		s.metrics = m
	}
}

// WithObserver registers fn to receive a snapshot after every applied event
func WithObserver(fn func(SyncState)) SyncOption {
	return func(s *SessionSync) {
		s.observers = append(s.observers, fn)
	}
}

// WithoutDetailLoading keeps list refreshes and deletes from fetching the
// selected session's detail. SelectSession still loads it.
func WithoutDetailLoading() SyncOption {
	return func(s *SessionSync) {
		s.listOnly = true
	}
}

// SessionSync polls the session list, reconciles it with the selection and loads
// details of the selected session. Transport failures are logged and leave the
// last good state in place.
type SessionSync struct {
	backend    Backend
	normalizer *Normalizer
	interval   time.Duration
	metrics    *SyncMetrics
	observers  []func(SyncState)
	listOnly   bool

	mu    sync.Mutex
	state SyncState
}

// NewSessionSync creates a SessionSync over backend
func NewSessionSync(backend Backend, opts ...SyncOption) *SessionSync {
	s := &SessionSync{
		backend:    backend,
		normalizer: NewNormalizer(),
		interval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewSyncMetrics(nil)
	}
	return s
}

// Snapshot returns a copy of the current state
func (s *SessionSync) Snapshot() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionSync) snapshotLocked() SyncState {
	snap := s.state
	snap.Sessions = append([]SessionSummary(nil), s.state.Sessions...)
	return snap
}

func (s *SessionSync) apply(ev SyncEvent) (before, after SyncState) {
	s.mu.Lock()
	before = s.snapshotLocked()
	s.state = ReduceSync(s.state, ev)
	after = s.snapshotLocked()
	s.mu.Unlock()

	for _, fn := range s.observers {
		fn(after)
	}
	return before, after
}

// Run refreshes the list immediately and then every poll interval until ctx is done
func (s *SessionSync) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RefreshList(ctx)
	for {
		select {
		case <-ctx.Done():
			LogDebug("session sync stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			s.RefreshList(ctx)
		}
	}
}

// RefreshList fetches the session list and reconciles the selection. It returns
// the list held afterwards, which is the previous list when the fetch failed.
func (s *SessionSync) RefreshList(ctx context.Context) []SessionSummary {
	sessions, err := s.backend.ListSessions(ctx)
	s.metrics.Polls.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		LogWarn("Failed to refresh session list: %v", err)
		_, after := s.apply(ListFailed{Err: err})
		return after.Sessions
	}
	s.metrics.Sessions.Set(float64(len(sessions)))

	before, after := s.apply(ListLoaded{Sessions: sessions})
	if id := after.Selection.SessionID; id != "" && !s.listOnly && s.needsDetail(before, after) {
		s.loadDetail(ctx, id)
	}
	return after.Sessions
}

// needsDetail decides whether a list refresh should (re)load the selected session:
// the selection moved, no detail is held for it, or its activity time changed.
func (s *SessionSync) needsDetail(before, after SyncState) bool {
	id := after.Selection.SessionID
	if before.Selection.SessionID != id || !after.CurrentIsSelected() {
		return true
	}
	prev, ok := before.Session(id)
	if !ok {
		return true
	}
	next, _ := after.Session(id)
	return prev.LastActivityAt != next.LastActivityAt
}

// SelectSession selects id and loads its detail. It returns the loaded session,
// or nil when the fetch failed or the selection moved on before it completed.
func (s *SessionSync) SelectSession(ctx context.Context, id string) *NormalizedSession {
	s.apply(SessionSelected{ID: id})
	return s.loadDetail(ctx, id)
}

// SelectExchange focuses an exchange of the current session
func (s *SessionSync) SelectExchange(id string) bool {
	_, after := s.apply(ExchangeSelected{ID: id})
	return after.Selection.ExchangeID == id
}

// DeleteSession deletes id on the backend and, only once confirmed, removes it locally
func (s *SessionSync) DeleteSession(ctx context.Context, id string) bool {
	err := s.backend.DeleteSession(ctx, id)
	s.metrics.Deletes.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		LogWarn("Failed to delete session %s: %v", id, err)
		return false
	}

	before, after := s.apply(SessionDeleted{ID: id})
	if next := after.Selection.SessionID; next != "" && !s.listOnly && next != before.Selection.SessionID {
		s.loadDetail(ctx, next)
	}
	return true
}

// loadDetail fetches and normalizes id. The result is applied only if id is still
// selected when the fetch completes.
func (s *SessionSync) loadDetail(ctx context.Context, id string) *NormalizedSession {
	token := uuid.New().String()
	LogDebug("Fetching session %s (fetch %s)", id, token)

	data, err := s.backend.FetchSession(ctx, id)
	s.metrics.DetailFetches.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		LogWarn("Failed to fetch session %s: %v", id, err)
		s.apply(DetailFailed{RequestedID: id, Err: err})
		return nil
	}

	session := s.normalizer.NormalizeJSON(data)
	if session.ID != id {
		if session.ID != unknownValue {
			LogWarn("Session %s detail reports id %s; using requested id", id, session.ID)
		}
		session.ID = id
	}

	_, after := s.apply(DetailLoaded{RequestedID: id, Session: session})
	if after.Current != session {
		s.metrics.StaleDiscards.Inc()
		LogDebug("Discarded stale detail for %s (fetch %s)", id, token)
		return nil
	}
	return session
}
