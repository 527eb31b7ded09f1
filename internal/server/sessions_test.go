package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/render"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSessions(limit int, ttl time.Duration) (*sessions, *fakeClock) {
	clock := &fakeClock{t: time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := newSessions(limit, ttl, func(chart *render.Session) *dashboard.Orchestrator {
		return dashboard.New(chart, stubTranslator{}, nil, dashboard.Config{User: "alice"}, nil)
	}, nil)
	s.now = clock.now
	return s, clock
}

var chartSize = render.Size{Width: 320, Height: 200}

func TestSessions_EvictsIdleWhenFull(t *testing.T) {
	s, clock := newTestSessions(2, time.Minute)

	oldID, old, err := s.create(chartSize)
	require.NoError(t, err)
	_, _, err = s.create(chartSize)
	require.NoError(t, err)

	_, _, err = s.create(chartSize)
	require.ErrorIs(t, err, errTooManySessions)

	clock.advance(2 * time.Minute)
	newID, _, err := s.create(chartSize)
	require.NoError(t, err)
	assert.NotEqual(t, oldID, newID)

	_, err = s.get(oldID)
	assert.ErrorIs(t, err, errNoSession)
	_, err = old.Session().SVG()
	assert.True(t, errors.Is(err, render.ErrDisposed), "evicted chart not disposed: %v", err)
	assert.Equal(t, 1, s.count())
}

func TestSessions_GetKeepsSessionAlive(t *testing.T) {
	s, clock := newTestSessions(1, time.Minute)

	id, _, err := s.create(chartSize)
	require.NoError(t, err)

	clock.advance(50 * time.Second)
	_, err = s.get(id)
	require.NoError(t, err)

	clock.advance(50 * time.Second)
	_, _, err = s.create(chartSize)
	require.ErrorIs(t, err, errTooManySessions)

	_, err = s.get(id)
	assert.NoError(t, err)
}

func TestSessions_Defaults(t *testing.T) {
	s := newSessions(0, 0, nil, nil)
	assert.Equal(t, DefaultMaxSessions, s.limit)
	assert.Equal(t, DefaultSessionTTL, s.ttl)
}

func TestSessionMount_AfterIdleTTL(t *testing.T) {
	s := newServer(t, stubTranslator{}, Options{MaxSessions: 1, SessionTTL: time.Minute})
	clock := &fakeClock{t: time.Now()}
	s.sessions.now = clock.now

	first := createSession(t, s)
	w := do(t, s, http.MethodPost, "/api/sessions", `{"width": 300, "height": 200}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	clock.advance(time.Minute + time.Second)
	second := createSession(t, s)
	assert.NotEqual(t, first, second)

	w = do(t, s, http.MethodGet, "/api/sessions/"+first+"/state", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodGet, "/api/sessions/"+second+"/state", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
