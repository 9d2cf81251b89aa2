// Package scheduler converts a high-frequency stream of parameter-change
// notifications into a low-frequency stream of preview renders: bursts
// coalesce into a single delayed trigger, and a trigger that fires while
// a render is in flight re-arms instead of dropping the edit, so the
// latest snapshot is always rendered eventually.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scadd/internal/events"
	"scadd/internal/pipeline"
	"scadd/pkg/types"
)

// DefaultDebounce is the single tunable quiet period between the last
// parameter edit and the preview render it triggers.
const DefaultDebounce = 800 * time.Millisecond

// PreviewRenderer is the slice of the pipeline the scheduler needs.
type PreviewRenderer interface {
	Render(ctx context.Context, spec pipeline.Spec) (*types.RenderResult, error)
	Preview() pipeline.Quality
}

// Config encapsulates tunables for Scheduler construction.
type Config struct {
	Debounce  time.Duration
	Logger    zerolog.Logger
	Publisher events.Publisher
	// OnResult, when set, receives every successful preview result.
	OnResult func(*types.RenderResult)
}

// Scheduler owns exactly one pending trigger and at most one in-flight
// preview render. Preview failures are swallowed: the preview just goes
// stale, and only explicit full-quality requests surface errors.
type Scheduler struct {
	r        PreviewRenderer
	debounce time.Duration
	log      zerolog.Logger
	pub      events.Publisher
	onResult func(*types.RenderResult)

	mu          sync.Mutex
	source      string
	params      types.Params
	seq         uint64 // bumped per snapshot change
	renderedSeq uint64 // seq of the last successful preview
	timer       *time.Timer
	pending     bool
	inflight    bool
	lastResult  *types.RenderResult
	lastPreview time.Time
	closed      bool
}

// New constructs a Scheduler.
func New(r PreviewRenderer, cfg Config) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Scheduler{
		r:        r,
		debounce: cfg.Debounce,
		log:      cfg.Logger,
		pub:      pub,
		onResult: cfg.OnResult,
	}
}

// SetSource replaces the active program text. Counts as a change
// notification.
func (s *Scheduler) SetSource(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.source = source
	s.seq++
	s.scheduleLocked()
}

// Notify stores the latest full parameter snapshot and restarts the
// debounce window, replacing any pending trigger.
func (s *Scheduler) Notify(params types.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.params = params.Clone()
	s.seq++
	s.scheduleLocked()
}

// scheduleLocked arms (or re-arms) the single debounce timer.
func (s *Scheduler) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = true
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

// fire runs on the timer goroutine. While a preview is in flight it
// re-arms for one more interval rather than dropping the edit.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inflight {
		s.timer = time.AfterFunc(s.debounce, s.fire)
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.inflight = true
	source := s.source
	params := s.params.Clone()
	seq := s.seq
	s.mu.Unlock()

	s.pub.Publish(events.Event{Name: "preview_fire", Fields: map[string]any{"seq": seq}})
	res, err := s.r.Render(context.Background(), pipeline.Spec{
		Source:     source,
		Parameters: params,
		Quality:    s.r.Preview(),
	})

	s.mu.Lock()
	s.inflight = false
	if err != nil {
		// Leave the preview stale; the consumer interprets staleness.
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("preview render failed")
		return
	}
	s.lastResult = res
	s.lastPreview = res.ProducedAt
	if seq > s.renderedSeq {
		s.renderedSeq = seq
	}
	cb := s.onResult
	s.mu.Unlock()
	if cb != nil {
		cb(res)
	}
}

// Latest returns the most recent successful preview result, if any.
func (s *Scheduler) Latest() (*types.RenderResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastResult != nil
}

// Status reports scheduler state for /status.
func (s *Scheduler) Status() types.PreviewStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := types.PreviewStatus{
		Pending:  s.pending,
		InFlight: s.inflight,
		Stale:    s.seq > s.renderedSeq,
	}
	if !s.lastPreview.IsZero() {
		st.LastPreviewUnix = s.lastPreview.Unix()
	}
	return st
}

// Close cancels any pending trigger. An in-flight render finishes on
// its own; its result is still recorded.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	return nil
}
