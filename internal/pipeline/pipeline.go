// Package pipeline routes render requests through parameter clamping,
// the render cache, and the engine session, and auto-recovers once from
// the engine's silent-corruption failure mode.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"scadd/internal/engine"
	"scadd/internal/events"
	"scadd/internal/overrides"
	"scadd/internal/rendercache"
	"scadd/pkg/types"
)

// RenderSession is the slice of the engine session the pipeline needs;
// narrow so tests can substitute a stub.
type RenderSession interface {
	Render(ctx context.Context, req engine.Request) (*types.RenderResult, error)
	Restart(ctx context.Context) error
}

// Config encapsulates tunables for Pipeline construction.
type Config struct {
	Preview   Quality
	Full      Quality
	Logger    zerolog.Logger
	Publisher events.Publisher
}

// Pipeline is the single writer to the render cache and the only
// caller of the engine session. It performs no queuing of its own: a
// second call while one is in flight surfaces the session's
// already-in-progress rejection.
type Pipeline struct {
	session RenderSession
	cache   *rendercache.Cache
	preview Quality
	full    Quality
	log     zerolog.Logger
	pub     events.Publisher
}

// New constructs a Pipeline, applying default tiers for unset ones.
func New(session RenderSession, cache *rendercache.Cache, cfg Config) *Pipeline {
	if cfg.Preview.Name == "" {
		cfg.Preview = DefaultPreview()
	}
	if cfg.Full.Name == "" {
		cfg.Full = DefaultFull()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Pipeline{
		session: session,
		cache:   cache,
		preview: cfg.Preview,
		full:    cfg.Full,
		log:     cfg.Logger,
		pub:     pub,
	}
}

// Preview returns the preview tier.
func (p *Pipeline) Preview() Quality { return p.preview }

// Full returns the full tier.
func (p *Pipeline) Full() Quality { return p.full }

// QualityByName resolves a tier by name; empty defaults to full.
func (p *Pipeline) QualityByName(name string) (Quality, bool) {
	switch name {
	case "", p.full.Name:
		return p.full, true
	case p.preview.Name:
		return p.preview, true
	}
	return Quality{}, false
}

// Spec describes one pipeline render.
type Spec struct {
	Source     string
	Parameters types.Params
	Quality    Quality
	// Timeout overrides the tier timeout when positive.
	Timeout    time.Duration
	OnProgress engine.ProgressFunc
}

// Render resolves a request: clamp, cache lookup, override compilation,
// engine invocation with the corruption-retry rule, cache store.
func (p *Pipeline) Render(ctx context.Context, spec Spec) (*types.RenderResult, error) {
	q := spec.Quality
	if q.Name == "" {
		q = p.full
	}
	clamped := q.clamp(spec.Parameters)
	key := CacheKey(spec.Source, clamped, q.Name)
	if res, ok := p.cache.Get(key); ok {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		p.log.Debug().Str("quality", q.Name).Str("key", key[:12]).Msg("cache hit")
		return res, nil
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()

	compiled := overrides.Apply(spec.Source, clamped)
	timeout := q.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}
	req := engine.Request{
		Source:     compiled.Text,
		Parameters: clamped,
		Timeout:    timeout,
		OnProgress: spec.OnProgress,
	}

	start := time.Now()
	res, err := p.session.Render(ctx, req)
	if err != nil && LooksLikeCorruption(err) {
		// The opaque numeric failure is a known symptom of accumulated
		// engine-internal corruption, not an input error. Restart the
		// process and resubmit the same request exactly once; a second
		// failure of any kind is surfaced as-is.
		p.log.Warn().Str("quality", q.Name).Err(err).Msg("likely engine corruption, restarting")
		corruptionRestartsTotal.Inc()
		p.pub.Publish(events.Event{Name: "corruption_restart", Fields: map[string]any{"message": err.Error()}})
		if rerr := p.session.Restart(ctx); rerr != nil {
			rendersTotal.WithLabelValues(q.Name, outcome(rerr)).Inc()
			return nil, rerr
		}
		res, err = p.session.Render(ctx, req)
	}
	if err != nil {
		rendersTotal.WithLabelValues(q.Name, outcome(err)).Inc()
		return nil, err
	}
	renderDuration.WithLabelValues(q.Name).Observe(time.Since(start).Seconds())
	rendersTotal.WithLabelValues(q.Name, "ok").Inc()
	p.cache.Put(key, res)
	return res, nil
}

func outcome(err error) string {
	switch {
	case engine.IsTimeout(err):
		return "timeout"
	case engine.IsCancelled(err):
		return "cancelled"
	case engine.IsAlreadyInProgress(err):
		return "busy"
	case engine.IsInitFailure(err):
		return "init_failure"
	default:
		return "error"
	}
}

// CacheKey is the identity digest over (source, canonicalized
// parameters, quality name).
func CacheKey(source string, params types.Params, quality string) string {
	h := sha256.New()
	io.WriteString(h, source)
	h.Write([]byte{0})
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		io.WriteString(h, n)
		io.WriteString(h, "=")
		io.WriteString(h, overrides.FormatValue(params[n]))
		io.WriteString(h, ";")
	}
	h.Write([]byte{0})
	io.WriteString(h, quality)
	return hex.EncodeToString(h.Sum(nil))
}

// corruptionShape matches the engine's opaque failure mode: its generic
// failure prefix followed only by digits, with no diagnostic text.
var corruptionShape = regexp.MustCompile(`(?i)^error:?\s*-?\d+$`)

// LooksLikeCorruption classifies a render failure as likely engine
// corruption rather than a genuine input error.
func LooksLikeCorruption(err error) bool {
	if err == nil || !engine.IsRenderFailed(err) {
		return false
	}
	return corruptionShape.MatchString(strings.TrimSpace(err.Error()))
}
