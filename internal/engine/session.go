// Package engine manages exactly one isolated engine-host process and
// the request/response/progress protocol spoken with it over stdio.
// The engine is heavyweight, single-threaded, and accumulates internal
// corruption over a long session; the session never attempts partial
// repair, only full restart with a bumped generation counter.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scadd/internal/events"
	"scadd/pkg/types"
)

// State is the lifecycle state of the session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateBusy          State = "busy"
	StateFaulted       State = "faulted"
)

// Defaults applied when corresponding Config fields are unset.
const (
	// Engine startup is unusually slow: the host loads a large binary
	// payload before it can signal readiness.
	defaultStartupTimeout = 60 * time.Second
	defaultStopGrace      = 2 * time.Second
)

// Config encapsulates all tunables for Session construction.
type Config struct {
	// Bin is the engine-host binary; Args its fixed arguments.
	Bin  string
	Args []string
	// Env is appended to the inherited environment of the host.
	Env []string
	// StartupTimeout bounds the wait for the ready signal after spawn.
	StartupTimeout time.Duration
	// StopGrace is the SIGTERM-to-SIGKILL window on teardown.
	StopGrace time.Duration
	Logger    zerolog.Logger
	Publisher events.Publisher
}

// ProgressFunc receives progress notifications for the in-flight
// request, forwarded verbatim. percent is -1 when indeterminate.
type ProgressFunc func(percent float64, message string)

// Request describes one render invocation.
type Request struct {
	// ID is assigned when empty.
	ID         string
	Source     string
	Parameters types.Params
	// Timeout bounds the caller's wait. It is raced against the
	// response; expiry rejects the caller but does not restart the
	// process, and the session stays busy until the engine answers.
	Timeout    time.Duration
	OnProgress ProgressFunc
}

// Status is a read-only projection of the session state.
type Status struct {
	State      State
	Generation uint64
	Restarts   uint64
	InFlightID string
	PID        int
	LastError  string
}

// call tracks one in-flight request. delivered guards the future: once
// the caller has been answered (result, error, timeout, or cancel),
// any later terminal message for this id is discarded silently.
type call struct {
	id         string
	onProgress ProgressFunc
	done       chan struct{}
	delivered  bool
	result     *types.RenderResult
	err        error
}

// proc is one incarnation of the engine-host process. Responses are
// matched to the session's current proc pointer; anything arriving
// from an older incarnation is dropped.
type proc struct {
	gen       uint64
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	wmu       sync.Mutex
	enc       *json.Encoder
	ready     chan struct{}
	readyOnce sync.Once
	exited    chan struct{}
	exitErr   error
	stderr    *bytes.Buffer
}

func (p *proc) send(m outMsg) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.enc.Encode(m)
}

func (p *proc) pid() int {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// stderrTail returns the last chunk of captured stderr for diagnostics.
// Only safe once the process has exited.
func (p *proc) stderrTail() string {
	s := p.stderr.String()
	if len(s) > 4096 {
		s = s[len(s)-4096:]
	}
	return s
}

// Session owns one engine-host process. At most one render is in
// flight; a second Render call is rejected, not queued.
type Session struct {
	cfg Config
	log zerolog.Logger
	pub events.Publisher

	mu       sync.Mutex
	state    State
	gen      uint64
	restarts uint64
	proc     *proc
	inflight *call
	lastErr  string
	closed   bool
}

// New constructs a Session in the uninitialized state.
func New(cfg Config) *Session {
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Session{cfg: cfg, log: cfg.Logger, pub: pub, state: StateUninitialized}
}

// Start spawns the engine host, sends the init signal, and waits for
// readiness. Idempotent: a ready or busy session returns immediately,
// a concurrent initialization is joined.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady, StateBusy:
		s.mu.Unlock()
		return nil
	case StateInitializing:
		p := s.proc
		s.mu.Unlock()
		return s.awaitReady(ctx, p)
	}
	p, err := s.spawnLocked()
	if err != nil {
		s.state = StateFaulted
		s.lastErr = err.Error()
		s.mu.Unlock()
		return ErrInitFailure(err.Error())
	}
	s.mu.Unlock()
	return s.awaitReady(ctx, p)
}

// Render sends one request and blocks until a terminal response, the
// timeout, or ctx cancellation. Requires state ready; a busy session
// rejects with AlreadyInProgress (queuing is the scheduler's job, not
// the session's).
func (s *Session) Render(ctx context.Context, req Request) (*types.RenderResult, error) {
	s.mu.Lock()
	switch s.state {
	case StateBusy:
		var id string
		if s.inflight != nil {
			id = s.inflight.id
		}
		s.mu.Unlock()
		return nil, alreadyInProgressError{id: id}
	case StateReady:
	default:
		st := s.state
		s.mu.Unlock()
		return nil, ErrInitFailure("engine session not ready: state=" + string(st))
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := &call{id: id, onProgress: req.OnProgress, done: make(chan struct{})}
	s.inflight = c
	s.state = StateBusy
	p := s.proc
	s.mu.Unlock()

	out := outMsg{
		Type:       msgRender,
		ID:         id,
		Source:     req.Source,
		Parameters: req.Parameters,
		TimeoutMs:  int(req.Timeout / time.Millisecond),
	}
	if err := p.send(out); err != nil {
		s.mu.Lock()
		if s.inflight == c {
			s.inflight = nil
			s.state = StateFaulted
			s.lastErr = "send render request: " + err.Error()
		}
		s.mu.Unlock()
		return nil, ErrRenderFailed(0, "send render request: "+err.Error())
	}
	s.log.Debug().Str("request_id", id).Uint64("generation", p.gen).Msg("render sent")

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		tm := time.NewTimer(req.Timeout)
		defer tm.Stop()
		timeout = tm.C
	}
	select {
	case <-c.done:
		return c.result, c.err
	case <-timeout:
		// Reject the caller, keep the in-flight slot: the engine is
		// still computing and must not receive another request until
		// it answers or is restarted.
		if s.abandon(c, ErrTimeout(req.Timeout)) {
			return nil, ErrTimeout(req.Timeout)
		}
		return c.result, c.err
	case <-ctx.Done():
		_ = p.send(outMsg{Type: msgCancel, ID: c.id})
		if s.abandon(c, ErrCancelled()) {
			return nil, ErrCancelled()
		}
		return c.result, c.err
	}
}

// Cancel requests cancellation of the in-flight render, if any, and
// rejects its caller. Cancellation is cooperative: the engine may keep
// computing the stale job, so the session stays busy until its terminal
// message arrives and is discarded, or until a restart.
func (s *Session) Cancel() {
	s.mu.Lock()
	c := s.inflight
	p := s.proc
	s.mu.Unlock()
	if c == nil || p == nil {
		return
	}
	_ = p.send(outMsg{Type: msgCancel, ID: c.id})
	if s.abandon(c, ErrCancelled()) {
		s.pub.Publish(events.Event{Name: "render_cancel", Fields: map[string]any{"request_id": c.id}})
	}
}

// Restart tears down the current process unconditionally, discards any
// in-flight request, bumps the generation, and respawns. Responses from
// the old incarnation are discarded by proc identity.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	old := s.proc
	s.proc = nil
	s.discardInflightLocked()
	s.state = StateUninitialized
	s.restarts++
	restarts := s.restarts
	s.mu.Unlock()

	if old != nil {
		s.stopProc(old)
	}
	s.log.Info().Uint64("restarts", restarts).Msg("engine restart")
	s.pub.Publish(events.Event{Name: "engine_restart", Fields: nil})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrInitFailure("engine session closed")
	}
	p, err := s.spawnLocked()
	if err != nil {
		s.state = StateFaulted
		s.lastErr = err.Error()
		s.mu.Unlock()
		return ErrInitFailure(err.Error())
	}
	s.mu.Unlock()
	return s.awaitReady(ctx, p)
}

// Close terminates the engine host and rejects any in-flight request.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	old := s.proc
	s.proc = nil
	s.discardInflightLocked()
	s.state = StateUninitialized
	s.mu.Unlock()
	if old != nil {
		s.stopProc(old)
	}
	return nil
}

// Status returns a read-only snapshot.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:      s.state,
		Generation: s.gen,
		Restarts:   s.restarts,
		LastError:  s.lastErr,
	}
	if s.inflight != nil {
		st.InFlightID = s.inflight.id
	}
	if s.proc != nil {
		st.PID = s.proc.pid()
	}
	return st
}

// Generation returns the current process incarnation counter.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// spawnLocked starts a new engine-host process and its read loop.
// Caller holds s.mu.
func (s *Session) spawnLocked() (*proc, error) {
	cmd := exec.Command(s.cfg.Bin, s.cfg.Args...)
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine host: %w", err)
	}
	s.gen++
	p := &proc{
		gen:    s.gen,
		cmd:    cmd,
		stdin:  stdin,
		enc:    json.NewEncoder(stdin),
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
		stderr: &stderr,
	}
	s.proc = p
	s.state = StateInitializing
	s.lastErr = ""
	s.log.Info().Int("pid", p.pid()).Uint64("generation", p.gen).Msg("engine host spawned")
	s.pub.Publish(events.Event{Name: "engine_spawn", Fields: map[string]any{"pid": p.pid(), "generation": p.gen}})

	go s.readLoop(p, stdout)

	if err := p.send(outMsg{Type: msgInit}); err != nil {
		go s.stopProc(p)
		return nil, fmt.Errorf("send init: %w", err)
	}
	return p, nil
}

// awaitReady blocks until the spawned process signals readiness, exits
// early, or the startup deadline passes.
func (s *Session) awaitReady(ctx context.Context, p *proc) error {
	select {
	case <-p.ready:
		s.mu.Lock()
		if s.proc == p && s.state == StateInitializing {
			s.state = StateReady
		}
		s.mu.Unlock()
		s.pub.Publish(events.Event{Name: "engine_ready", Fields: map[string]any{"generation": p.gen}})
		return nil
	case <-p.exited:
		msg := fmt.Sprintf("engine host exited before ready: %v; stderr tail: %s", p.exitErr, p.stderrTail())
		s.failStart(p, msg)
		return ErrInitFailure(msg)
	case <-time.After(s.cfg.StartupTimeout):
		go s.stopProc(p)
		msg := fmt.Sprintf("engine host not ready within %s", s.cfg.StartupTimeout)
		s.failStart(p, msg)
		return ErrInitFailure(msg)
	case <-ctx.Done():
		go s.stopProc(p)
		msg := "engine startup aborted: " + ctx.Err().Error()
		s.failStart(p, msg)
		return ErrInitFailure(msg)
	}
}

func (s *Session) failStart(p *proc, msg string) {
	s.mu.Lock()
	if s.proc == p {
		s.state = StateFaulted
		s.lastErr = msg
	}
	s.mu.Unlock()
	s.log.Error().Uint64("generation", p.gen).Msg(msg)
}

// readLoop consumes NDJSON messages until EOF, then reaps the process.
// It is the only caller of cmd.Wait for its proc.
func (s *Session) readLoop(p *proc, stdout io.Reader) {
	r := bufio.NewReaderSize(stdout, 1<<16)
	for {
		line, err := readLine(r)
		if len(line) > 0 {
			var m inMsg
			if jerr := json.Unmarshal(line, &m); jerr != nil {
				s.log.Warn().Err(jerr).Msg("unparseable engine message")
			} else {
				s.handle(p, m)
			}
		}
		if err != nil {
			break
		}
	}
	p.exitErr = p.cmd.Wait()
	close(p.exited)
	s.procExited(p)
}

// readLine reads one full line without a length cap; complete payloads
// can be many megabytes.
func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadBytes('\n')
		buf = append(buf, chunk...)
		if err != nil || len(buf) == 0 || buf[len(buf)-1] == '\n' {
			return bytes.TrimSpace(buf), err
		}
	}
}

// handle dispatches one inbound message. Messages from a proc that is
// no longer current (an older generation) are discarded without
// touching any live future.
func (s *Session) handle(p *proc, m inMsg) {
	switch m.Type {
	case msgReady:
		p.readyOnce.Do(func() { close(p.ready) })
		s.mu.Lock()
		if s.proc == p && s.state == StateInitializing {
			s.state = StateReady
		}
		s.mu.Unlock()
	case msgProgress:
		s.mu.Lock()
		var cb ProgressFunc
		if s.proc == p && s.inflight != nil && s.inflight.id == m.ID && !s.inflight.delivered {
			cb = s.inflight.onProgress
		}
		s.mu.Unlock()
		if cb != nil {
			cb(m.Percent, m.Message)
		}
	case msgComplete, msgError:
		s.mu.Lock()
		if s.proc != p {
			s.mu.Unlock()
			return
		}
		c := s.inflight
		if c == nil || c.id != m.ID {
			s.mu.Unlock()
			return
		}
		// Terminal message for the in-flight id: the engine is idle
		// again even when the caller already gave up on this request.
		s.inflight = nil
		s.state = StateReady
		if !c.delivered {
			c.delivered = true
			if m.Type == msgComplete {
				stats := types.RenderStats{SizeBytes: len(m.Bytes)}
				if m.Stats != nil {
					stats = *m.Stats
				}
				c.result = &types.RenderResult{Bytes: m.Bytes, Stats: stats, ProducedAt: time.Now()}
			} else {
				c.err = ErrRenderFailed(m.Code, m.Message)
			}
			close(c.done)
		}
		s.mu.Unlock()
	}
}

// abandon rejects the call's future with err unless a terminal message
// got there first. Reports whether this call did the delivery.
func (s *Session) abandon(c *call, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.delivered {
		return false
	}
	c.delivered = true
	c.err = err
	close(c.done)
	return true
}

// discardInflightLocked rejects any in-flight future with Cancelled and
// clears the slot. Caller holds s.mu.
func (s *Session) discardInflightLocked() {
	c := s.inflight
	if c == nil {
		return
	}
	s.inflight = nil
	if !c.delivered {
		c.delivered = true
		c.err = ErrCancelled()
		close(c.done)
	}
}

// procExited records an unexpected process death for the current
// incarnation. A proc replaced by restart or close is ignored.
func (s *Session) procExited(p *proc) {
	s.mu.Lock()
	if s.proc != p {
		s.mu.Unlock()
		return
	}
	msg := fmt.Sprintf("engine host exited: %v", p.exitErr)
	if tail := p.stderrTail(); tail != "" {
		msg += "; stderr tail: " + tail
	}
	if c := s.inflight; c != nil {
		s.inflight = nil
		if !c.delivered {
			c.delivered = true
			c.err = ErrRenderFailed(0, msg)
			close(c.done)
		}
	}
	s.state = StateFaulted
	s.lastErr = msg
	s.mu.Unlock()
	s.log.Error().Int("pid", p.pid()).Uint64("generation", p.gen).Msg(msg)
	s.pub.Publish(events.Event{Name: "engine_exit", Fields: map[string]any{"pid": p.pid(), "generation": p.gen}})
}

// stopProc terminates one incarnation: close stdin so a cooperative
// host exits on EOF, then SIGTERM, then SIGKILL.
func (s *Session) stopProc(p *proc) {
	_ = p.stdin.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-p.exited:
		return
	case <-time.After(s.cfg.StopGrace):
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.exited:
	case <-time.After(s.cfg.StopGrace):
	}
}
