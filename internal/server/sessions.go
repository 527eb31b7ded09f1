package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/render"
)

const (
	// DefaultMaxSessions caps how many charts may be mounted at once.
	DefaultMaxSessions = 256
	// DefaultSessionTTL is how long a chart may sit unused before a new
	// mount is allowed to reclaim it.
	DefaultSessionTTL = 30 * time.Minute
)

var (
	errNoSession       = errors.New("session not found")
	errTooManySessions = errors.New("too many open sessions")
)

type sessionEntry struct {
	o        *dashboard.Orchestrator
	lastUsed time.Time
}

// sessions maps session ids to the orchestrator driving each mounted chart.
// Charts idle for longer than ttl are disposed when the registry is full.
type sessions struct {
	mu     sync.Mutex
	byID   map[string]*sessionEntry
	limit  int
	ttl    time.Duration
	now    func() time.Time
	build  func(*render.Session) *dashboard.Orchestrator
	logger *slog.Logger
}

func newSessions(limit int, ttl time.Duration, build func(*render.Session) *dashboard.Orchestrator, logger *slog.Logger) *sessions {
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &sessions{
		byID:   make(map[string]*sessionEntry),
		limit:  limit,
		ttl:    ttl,
		now:    time.Now,
		build:  build,
		logger: logger,
	}
}

// create mounts a chart at size and returns its id. When the registry is
// full, idle charts are evicted first; errTooManySessions means every
// mounted chart was used within the ttl.
func (s *sessions) create(size render.Size) (string, *dashboard.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.byID) >= s.limit {
		s.evictIdleLocked()
	}
	if len(s.byID) >= s.limit {
		return "", nil, errTooManySessions
	}
	chart, err := render.NewSession(size)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	o := s.build(chart)
	s.byID[id] = &sessionEntry{o: o, lastUsed: s.now()}
	return id, o, nil
}

func (s *sessions) evictIdleLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.byID {
		if e.lastUsed.Before(cutoff) {
			e.o.Session().Dispose()
			delete(s.byID, id)
			s.logger.Info("evicted idle session", "session", id, "idle", s.now().Sub(e.lastUsed).Round(time.Second))
		}
	}
}

// get returns the chart for id and marks it as used.
func (s *sessions) get(id string) (*dashboard.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, errNoSession
	}
	e.lastUsed = s.now()
	return e.o, nil
}

// remove unmounts a chart and disposes it.
func (s *sessions) remove(id string) error {
	s.mu.Lock()
	e, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()

	if !ok {
		return errNoSession
	}
	e.o.Session().Dispose()
	return nil
}

// closeAll disposes every chart.
func (s *sessions) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.byID {
		e.o.Session().Dispose()
		delete(s.byID, id)
	}
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
