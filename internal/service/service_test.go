package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scadd/internal/engine"
	"scadd/internal/pipeline"
	"scadd/internal/registry"
	"scadd/internal/rendercache"
	"scadd/internal/scheduler"
	"scadd/pkg/types"
)

type stubEngine struct {
	renders   int
	cancelled int
}

func (s *stubEngine) Render(ctx context.Context, req engine.Request) (*types.RenderResult, error) {
	s.renders++
	return &types.RenderResult{Bytes: []byte("mesh:" + req.Source), ProducedAt: time.Now()}, nil
}

func (s *stubEngine) Restart(ctx context.Context) error { return nil }

func (s *stubEngine) Status() engine.Status {
	return engine.Status{State: engine.StateReady, Generation: 1}
}

func (s *stubEngine) SanityCheck() engine.SanityReport {
	return engine.SanityReport{BinFound: true, BinPath: "/usr/bin/scad-host"}
}

func (s *stubEngine) Cancel() { s.cancelled++ }

func newTestService(t *testing.T) (*Service, *stubEngine) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "box.scad"), []byte("width = 10;\ncube(width);\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	designs, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	eng := &stubEngine{}
	cache := rendercache.New(rendercache.Config{})
	pipe := pipeline.New(eng, cache, pipeline.Config{})
	sched := scheduler.New(pipe, scheduler.Config{Debounce: 10 * time.Millisecond})
	t.Cleanup(func() { _ = sched.Close() })
	svc := New(Deps{Designs: designs, Session: eng, Cache: cache, Pipeline: pipe, Scheduler: sched})
	return svc, eng
}

func TestRenderByDesignID(t *testing.T) {
	svc, eng := newTestService(t)
	res, err := svc.Render(context.Background(), types.RenderRequest{Design: "box.scad", Parameters: types.Params{"width": 50}}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(res.Bytes) == 0 || eng.renders != 1 {
		t.Fatalf("unexpected result: bytes=%d renders=%d", len(res.Bytes), eng.renders)
	}
}

func TestRenderInlineSourceWins(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Render(context.Background(), types.RenderRequest{Source: "sphere(1);", Quality: "preview"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(res.Bytes) != "mesh:sphere(1);" {
		t.Fatalf("unexpected payload: %q", res.Bytes)
	}
}

func TestRenderUnknownDesign(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Render(context.Background(), types.RenderRequest{Design: "absent.scad"}, nil)
	if !IsDesignNotFound(err) {
		t.Fatalf("expected design-not-found, got %v", err)
	}
}

func TestRenderValidation(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Render(context.Background(), types.RenderRequest{}, nil); !IsInvalidRequest(err) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := svc.Render(context.Background(), types.RenderRequest{Source: "cube(1);", Quality: "ultra"}, nil); !IsInvalidRequest(err) {
		t.Fatalf("expected invalid quality, got %v", err)
	}
}

func TestUpdateParamsTriggersPreview(t *testing.T) {
	svc, eng := newTestService(t)
	if err := svc.UpdateParams(types.ParamsUpdate{Design: "box.scad", Parameters: types.Params{"width": 25}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := svc.LatestPreview(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := svc.LatestPreview(); !ok {
		t.Fatalf("preview never produced")
	}
	if eng.renders != 1 {
		t.Fatalf("expected one engine render, got %d", eng.renders)
	}
}

func TestStatusAndReady(t *testing.T) {
	svc, eng := newTestService(t)
	if !svc.Ready() {
		t.Fatalf("expected ready")
	}
	st := svc.Status()
	if st.Engine.State != "ready" || !st.Engine.BinFound || st.Cache.MaxEntries == 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
	svc.Cancel()
	if eng.cancelled != 1 {
		t.Fatalf("cancel not forwarded")
	}
}
