package render

import (
	"bytes"
	"errors"
	"slices"
	"sync"

	"github.com/projectcapital/capital/pkg/api"
)

// ErrDisposed is returned by every Session method after Dispose.
var ErrDisposed = errors.New("chart session disposed")

// Session owns one mounted chart: its container size, the last dataset and
// the markup drawn from them. Update and Resize redraw from scratch and
// replace the markup; a failed redraw keeps the previous chart.
// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	size     Size
	kind     api.ChartKind
	points   []api.ChartPoint
	svg      []byte
	disposed bool
}

// NewSession mounts a chart at the given container size and draws the
// placeholder.
func NewSession(size Size) (*Session, error) {
	s := &Session{size: size.Clamp(), kind: api.ChartNone}
	if err := s.redraw(s.size, api.ChartNone, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the dataset and redraws. The points are copied.
func (s *Session) Update(kind api.ChartKind, points []api.ChartPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	return s.redraw(s.size, kind, slices.Clone(points))
}

// Resize redraws the current dataset at a new container size.
func (s *Session) Resize(size Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	size = size.Clamp()
	if size == s.size && s.svg != nil {
		return nil
	}
	return s.redraw(size, s.kind, s.points)
}

// redraw renders into a fresh buffer and swaps it in only on success.
// Callers hold s.mu.
func (s *Session) redraw(size Size, kind api.ChartKind, points []api.ChartPoint) error {
	var buf bytes.Buffer
	if err := Render(&buf, size, kind, points); err != nil {
		return err
	}
	s.size = size
	s.kind = kind
	s.points = points
	s.svg = buf.Bytes()
	return nil
}

// SVG returns the current chart markup.
func (s *Session) SVG() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return "", ErrDisposed
	}
	return string(s.svg), nil
}

// Kind returns the chart kind currently drawn.
func (s *Session) Kind() (api.ChartKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return api.ChartNone, ErrDisposed
	}
	return s.kind, nil
}

// Size returns the current container size.
func (s *Session) Size() (Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return Size{}, ErrDisposed
	}
	return s.size, nil
}

// Dispose unmounts the chart and drops its data. It is safe to call twice.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	s.points = nil
	s.svg = nil
}
