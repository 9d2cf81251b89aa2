package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scadd/internal/engine"
	"scadd/internal/service"
	"scadd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Designs() []types.Design
	Status() types.StatusResponse
	Render(ctx context.Context, req types.RenderRequest, progress engine.ProgressFunc) (*types.RenderResult, error)
	UpdateParams(u types.ParamsUpdate) error
	LatestPreview() (*types.RenderResult, bool)
	Cancel()
	Ready() bool
}

// mapErrorStatus translates well-known service and engine errors to
// HTTP status codes. Unknown errors become 500.
func mapErrorStatus(err error) (int, string) {
	switch {
	case service.IsInvalidRequest(err):
		return http.StatusBadRequest, "invalid_request"
	case service.IsDesignNotFound(err):
		return http.StatusNotFound, "design_not_found"
	case engine.IsAlreadyInProgress(err):
		return http.StatusTooManyRequests, "render_in_progress"
	case engine.IsRenderFailed(err):
		return http.StatusUnprocessableEntity, "render_failed"
	case engine.IsTimeout(err):
		return http.StatusGatewayTimeout, "render_timeout"
	case engine.IsInitFailure(err):
		return http.StatusServiceUnavailable, "engine_unavailable"
	case engine.IsCancelled(err):
		return http.StatusConflict, "render_cancelled"
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), "service_error"
	}
	return http.StatusInternalServerError, "internal"
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeMesh sends a successful render result as a binary payload.
func writeMesh(w http.ResponseWriter, res *types.RenderResult) {
	w.Header().Set("Content-Type", "model/stl")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	w.Header().Set("X-Mesh-Triangles", strconv.Itoa(res.Stats.Triangles))
	_, _ = w.Write(res.Bytes)
}

// NewMux builds the HTTP router over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints; binary mesh payloads compress too
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	// ListDesigns godoc
	// @Summary  List designs
	// @Produce  json
	// @Success  200 {object} types.DesignsResponse
	// @Router   /designs [get]
	r.Get("/designs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.DesignsResponse{Designs: svc.Designs()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Status godoc
	// @Summary  Daemon status
	// @Produce  json
	// @Success  200 {object} types.StatusResponse
	// @Router   /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Render godoc
	// @Summary  Render a design to a mesh
	// @Accept   json
	// @Produce  octet-stream
	// @Param    request body types.RenderRequest true "render request"
	// @Param    progress query int false "stream NDJSON progress instead of binary"
	// @Success  200 {string} binary "mesh payload"
	// @Failure  400 {object} types.ErrorResponse
	// @Failure  404 {object} types.ErrorResponse
	// @Failure  422 {object} types.ErrorResponse
	// @Failure  429 {object} types.ErrorResponse
	// @Router   /render [post]
	r.Post("/render", func(w http.ResponseWriter, r *http.Request) {
		var req types.RenderRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if req.Quality != "" && req.Quality != "preview" && req.Quality != "full" {
			writeJSONError(w, http.StatusBadRequest, "quality must be preview or full")
			return
		}
		if r.URL.Query().Get("progress") == "1" {
			renderStreaming(w, r, svc, req)
			return
		}
		renderBinary(w, r, svc, req)
	})

	// UpdateParams godoc
	// @Summary  Feed a parameter change into the auto-preview debounce
	// @Accept   json
	// @Param    request body types.ParamsUpdate true "parameter update"
	// @Success  202
	// @Failure  400 {object} types.ErrorResponse
	// @Failure  404 {object} types.ErrorResponse
	// @Router   /params [post]
	r.Post("/params", func(w http.ResponseWriter, r *http.Request) {
		var u types.ParamsUpdate
		if !decodeJSONBody(w, r, &u) {
			return
		}
		if err := svc.UpdateParams(u); err != nil {
			status, _ := mapErrorStatus(err)
			writeJSONError(w, status, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// Preview godoc
	// @Summary  Latest successful preview mesh
	// @Produce  octet-stream
	// @Success  200 {string} binary "mesh payload"
	// @Success  204 "no preview yet"
	// @Router   /preview [get]
	r.Get("/preview", func(w http.ResponseWriter, r *http.Request) {
		res, ok := svc.LatestPreview()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeMesh(w, res)
	})

	// Cancel godoc
	// @Summary  Cancel the in-flight render, if any
	// @Success  202
	// @Router   /cancel [post]
	r.Post("/cancel", func(w http.ResponseWriter, r *http.Request) {
		svc.Cancel()
		w.WriteHeader(http.StatusAccepted)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// renderBinary serves the plain request/response path: block until the
// render completes, then send the mesh bytes.
func renderBinary(w http.ResponseWriter, r *http.Request, svc Service, req types.RenderRequest) {
	lvl := requestLogLevel(r)
	start := time.Now()
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	res, err := svc.Render(ctx, req, nil)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, reason := mapErrorStatus(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure(reason)
		}
		writeJSONError(w, status, err.Error())
		logRenderEnd(r, lvl, status, start, err)
		return
	}
	writeMesh(w, res)
	logRenderEnd(r, lvl, http.StatusOK, start, nil)
}

// renderStreaming serves ?progress=1: an NDJSON stream of progress
// events followed by one terminal line. The mesh bytes travel base64
// encoded inside the terminal line.
func renderStreaming(w http.ResponseWriter, r *http.Request, svc Service, req types.RenderRequest) {
	lvl := requestLogLevel(r)
	start := time.Now()
	w.Header().Set("Content-Type", "application/x-ndjson")

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	// Optional mirroring of the NDJSON stream into the server log.
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{})
	}
	enc := json.NewEncoder(out)
	emit := func(v any) {
		_ = enc.Encode(v)
		if flush != nil {
			flush()
		}
	}
	// Progress callbacks arrive on the engine reader goroutine while
	// this handler blocks in Render, so writes never interleave.
	progress := func(percent float64, message string) {
		emit(map[string]any{"type": "progress", "percent": percent, "message": message})
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	res, err := svc.Render(ctx, req, progress)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status, reason := mapErrorStatus(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure(reason)
		}
		emit(map[string]any{"type": "error", "code": status, "error": err.Error()})
		logRenderEnd(r, lvl, status, start, err)
		return
	}
	emit(map[string]any{
		"type":       "complete",
		"size_bytes": res.Stats.SizeBytes,
		"triangles":  res.Stats.Triangles,
		"data":       res.Bytes,
	})
	logRenderEnd(r, lvl, http.StatusOK, start, nil)
}

func logRenderEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", time.Since(start)).Str("path", r.URL.Path)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("render end")
		return
	}
	logFallback(r, status, start, err)
}
