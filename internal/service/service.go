// Package service assembles the render-orchestration core behind the
// HTTP API: design registry, engine session, render cache, quality
// pipeline, and auto-preview scheduler. Explicit user actions are the
// only source of full-quality renders; the scheduler is the only
// source of preview renders.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"scadd/internal/engine"
	"scadd/internal/pipeline"
	"scadd/internal/registry"
	"scadd/internal/rendercache"
	"scadd/internal/scheduler"
	"scadd/pkg/types"
)

// Session is the slice of the engine session the service needs.
type Session interface {
	Status() engine.Status
	SanityCheck() engine.SanityReport
	Cancel()
}

// Service coordinates one engine session, one cache, one pipeline, and
// one scheduler. All are process-wide singletons owned here, not
// module-level globals, so tests can construct isolated instances.
type Service struct {
	designs   []types.Design
	session   Session
	cache     *rendercache.Cache
	pipe      *pipeline.Pipeline
	sched     *scheduler.Scheduler
	log       zerolog.Logger
	startTime time.Time
}

// Deps are the collaborators assembled by main.
type Deps struct {
	Designs   []types.Design
	Session   Session
	Cache     *rendercache.Cache
	Pipeline  *pipeline.Pipeline
	Scheduler *scheduler.Scheduler
	Logger    zerolog.Logger
}

// New constructs a Service.
func New(d Deps) *Service {
	return &Service{
		designs:   d.Designs,
		session:   d.Session,
		cache:     d.Cache,
		pipe:      d.Pipeline,
		sched:     d.Scheduler,
		log:       d.Logger,
		startTime: time.Now(),
	}
}

// Designs returns a copy of the registry to avoid external mutation.
func (s *Service) Designs() []types.Design {
	out := make([]types.Design, len(s.designs))
	copy(out, s.designs)
	return out
}

// resolveSource picks the program text for a request: inline source
// wins, otherwise the design id is read from the registry.
func (s *Service) resolveSource(source, design string) (string, error) {
	if source != "" {
		return source, nil
	}
	if design == "" {
		return "", ErrInvalidRequest("either source or design is required")
	}
	src, found, err := registry.ReadSource(s.designs, design)
	if !found {
		return "", ErrDesignNotFound(design)
	}
	if err != nil {
		return "", err
	}
	return src, nil
}

// Render serves an explicit render request (the download path). Errors
// propagate to the caller; only the scheduler's preview failures are
// swallowed, and only by the scheduler.
func (s *Service) Render(ctx context.Context, req types.RenderRequest, progress engine.ProgressFunc) (*types.RenderResult, error) {
	src, err := s.resolveSource(req.Source, req.Design)
	if err != nil {
		return nil, err
	}
	q, ok := s.pipe.QualityByName(req.Quality)
	if !ok {
		return nil, ErrInvalidRequest("unknown quality tier: " + req.Quality)
	}
	spec := pipeline.Spec{
		Source:     src,
		Parameters: req.Parameters,
		Quality:    q,
		OnProgress: progress,
	}
	if req.TimeoutMs > 0 {
		spec.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	return s.pipe.Render(ctx, spec)
}

// UpdateParams feeds one parameter-change notification into the
// auto-preview debounce. It never blocks on the engine.
func (s *Service) UpdateParams(u types.ParamsUpdate) error {
	src, err := s.resolveSource(u.Source, u.Design)
	if err != nil {
		return err
	}
	s.sched.SetSource(src)
	s.sched.Notify(u.Parameters)
	return nil
}

// LatestPreview returns the most recent successful preview payload.
func (s *Service) LatestPreview() (*types.RenderResult, bool) {
	return s.sched.Latest()
}

// Cancel requests cancellation of the in-flight render, if any.
func (s *Service) Cancel() { s.session.Cancel() }

// Ready reports whether the engine session can accept work.
func (s *Service) Ready() bool {
	st := s.session.Status().State
	return st == engine.StateReady || st == engine.StateBusy
}

// Status builds the detailed /status response.
func (s *Service) Status() types.StatusResponse {
	est := s.session.Status()
	sanity := s.session.SanityCheck()
	cst := s.cache.Stats()
	now := time.Now()
	return types.StatusResponse{
		Engine: types.EngineStatus{
			State:      string(est.State),
			Generation: est.Generation,
			InFlightID: est.InFlightID,
			Restarts:   est.Restarts,
			BinFound:   sanity.BinFound,
			BinPath:    sanity.BinPath,
			PID:        est.PID,
		},
		Cache: types.CacheStatus{
			Entries:      cst.Entries,
			SizeBytes:    cst.SizeBytes,
			MaxEntries:   cst.MaxEntries,
			MaxSizeBytes: cst.MaxBytes,
			Hits:         cst.Hits,
			Misses:       cst.Misses,
		},
		Preview:        s.sched.Status(),
		UptimeSeconds:  int64(now.Sub(s.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
