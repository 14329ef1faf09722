// Package session keeps per-visitor browsing state: a location selection and one
// listing controller per kind, expired after a period of inactivity.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studenthub/internal/browse"
	"studenthub/internal/location"
	"studenthub/internal/model"
)

// CookieName carries the session id.
const CookieName = "sh_session"

type Session struct {
	ID       string
	Location *location.Context

	fetcher browse.Fetcher
	logger  *zap.Logger

	mu          sync.Mutex
	controllers map[model.Kind]*browse.Controller
	lastSeen    time.Time
	closed      bool
}

// Controller returns the session's controller for kind, creating it on first use.
func (s *Session) Controller(kind model.Kind) *browse.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[kind]
	if !ok {
		c = browse.New(kind, s.fetcher, s.Location, s.logger)
		s.controllers[kind] = c
		if s.closed {
			c.Close()
		}
	}
	return c
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	controllers := make([]*browse.Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		controllers = append(controllers, c)
	}
	s.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}

// Store is the in-memory session registry.
type Store struct {
	fetcher         browse.Fetcher
	defaultLocation string
	ttl             time.Duration
	logger          *zap.Logger
	now             func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(fetcher browse.Fetcher, defaultLocation string, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		fetcher:         fetcher,
		defaultLocation: defaultLocation,
		ttl:             ttl,
		logger:          logger.Named("session"),
		now:             time.Now,
		sessions:        make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for id, or a new one when id is unknown,
// malformed or expired. created reports whether a new id was issued.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	now := st.now()

	st.mu.Lock()
	var expired *Session
	if s, ok := st.sessions[id]; ok {
		if st.ttl <= 0 || now.Sub(s.idleSince()) < st.ttl {
			s.touch(now)
			st.mu.Unlock()
			return s, false
		}
		delete(st.sessions, id)
		expired = s
	}

	s = &Session{
		ID:          uuid.NewString(),
		Location:    location.NewContext(st.defaultLocation),
		fetcher:     st.fetcher,
		logger:      st.logger,
		controllers: make(map[model.Kind]*browse.Controller),
		lastSeen:    now,
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()

	if expired != nil {
		expired.close()
	}
	return s, true
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many it removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) >= st.ttl {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		st.logger.Debug("expired sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
// A non-positive interval disables sweeping.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		st.logger.Warn("session sweeping disabled", zap.Duration("interval", interval))
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Sweep()
		}
	}
}

// Close shuts down every session's controllers.
func (st *Store) Close() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}
