package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scadd/internal/engine"
	"scadd/internal/service"
	"scadd/pkg/types"
)

type mockService struct {
	designs   []types.Design
	status    types.StatusResponse
	ready     bool
	renderErr error
	result    *types.RenderResult
	progress  []float64
	updateErr error
	preview   *types.RenderResult
	cancelled int
}

func (m *mockService) Designs() []types.Design { return append([]types.Design(nil), m.designs...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Cancel()                      { m.cancelled++ }

func (m *mockService) Render(ctx context.Context, req types.RenderRequest, progress engine.ProgressFunc) (*types.RenderResult, error) {
	if m.renderErr != nil {
		return nil, m.renderErr
	}
	for _, p := range m.progress {
		if progress != nil {
			progress(p, "rendering")
		}
	}
	if m.result != nil {
		return m.result, nil
	}
	return &types.RenderResult{Bytes: []byte("solid"), Stats: types.RenderStats{Triangles: 2, SizeBytes: 5}, ProducedAt: time.Now()}, nil
}

func (m *mockService) UpdateParams(u types.ParamsUpdate) error { return m.updateErr }

func (m *mockService) LatestPreview() (*types.RenderResult, bool) {
	if m.preview == nil {
		return nil, false
	}
	return m.preview, true
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDesignsHandler(t *testing.T) {
	svc := &mockService{designs: []types.Design{{ID: "a.scad"}, {ID: "b.scad"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/designs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.DesignsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Designs) != 2 {
		t.Fatalf("designs len=%d", len(body.Designs))
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{Engine: types.EngineStatus{State: "ready", Generation: 3}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Engine.Generation != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRenderBinary(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/render", types.RenderRequest{Source: "cube(1);"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "model/stl" {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Header().Get("X-Mesh-Triangles") != "2" {
		t.Fatalf("triangles header=%q", w.Header().Get("X-Mesh-Triangles"))
	}
	if w.Body.String() != "solid" {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestRenderRejectsNonJSON(t *testing.T) {
	r := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRenderRejectsUnknownQuality(t *testing.T) {
	r := NewMux(&mockService{})
	w := postJSON(t, r, "/render", types.RenderRequest{Source: "cube(1);", Quality: "ultra"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestRenderErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", service.ErrInvalidRequest("bad"), http.StatusBadRequest},
		{"design not found", service.ErrDesignNotFound("x.scad"), http.StatusNotFound},
		{"busy", engine.ErrAlreadyInProgress("req-1"), http.StatusTooManyRequests},
		{"render failed", engine.ErrRenderFailed(1, "syntax error"), http.StatusUnprocessableEntity},
		{"timeout", engine.ErrTimeout(2 * time.Second), http.StatusGatewayTimeout},
		{"init failure", engine.ErrInitFailure("spawn failed"), http.StatusServiceUnavailable},
		{"cancelled", engine.ErrCancelled(), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewMux(&mockService{renderErr: tc.err})
			w := postJSON(t, r, "/render", types.RenderRequest{Source: "cube(1);"})
			if w.Code != tc.want {
				t.Fatalf("status=%d want=%d body=%s", w.Code, tc.want, w.Body.String())
			}
			var body types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body.Code != tc.want || body.Error == "" {
				t.Fatalf("unexpected error payload: %+v", body)
			}
		})
	}
}

func TestRenderProgressStream(t *testing.T) {
	svc := &mockService{progress: []float64{25, 75}}
	r := NewMux(svc)
	w := postJSON(t, r, "/render?progress=1", types.RenderRequest{Source: "cube(1);"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), w.Body.String())
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("json: %v", err)
	}
	if last["type"] != "complete" {
		t.Fatalf("terminal line: %v", last)
	}
}

func TestRenderProgressStreamError(t *testing.T) {
	svc := &mockService{renderErr: engine.ErrRenderFailed(1, "syntax error")}
	r := NewMux(svc)
	w := postJSON(t, r, "/render?progress=1", types.RenderRequest{Source: "cube(1);"})
	if w.Code != http.StatusOK {
		t.Fatalf("stream headers already sent, status=%d", w.Code)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(w.Body.String())), &line); err != nil {
		t.Fatalf("json: %v", err)
	}
	if line["type"] != "error" || line["code"].(float64) != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestParamsHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(t, r, "/params", types.ParamsUpdate{Design: "a.scad", Parameters: types.Params{"width": 10}})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestParamsHandlerNotFound(t *testing.T) {
	svc := &mockService{updateErr: service.ErrDesignNotFound("a.scad")}
	r := NewMux(svc)
	w := postJSON(t, r, "/params", types.ParamsUpdate{Design: "a.scad"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestPreviewHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}

	svc.preview = &types.RenderResult{Bytes: []byte("mesh"), Stats: types.RenderStats{Triangles: 8}}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview", nil))
	if w.Code != http.StatusOK || w.Body.String() != "mesh" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestCancelHandler(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cancel", nil))
	if w.Code != http.StatusAccepted || svc.cancelled != 1 {
		t.Fatalf("status=%d cancelled=%d", w.Code, svc.cancelled)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	r = NewMux(&mockService{ready: false})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "starting") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewMux(&mockService{})
	// Generate at least one observation so the counter is exposed.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "scadd_http_requests_total") {
		t.Fatalf("metrics body missing counter")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	r := NewMux(&mockService{})
	big := map[string]string{"source": strings.Repeat("x", 64)}
	w := postJSON(t, r, "/render", big)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}
