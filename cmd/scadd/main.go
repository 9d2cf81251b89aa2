package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"scadd/internal/config"
	"scadd/internal/engine"
	"scadd/internal/events"
	"scadd/internal/httpapi"
	"scadd/internal/pipeline"
	"scadd/internal/registry"
	"scadd/internal/rendercache"
	"scadd/internal/scheduler"
	"scadd/internal/service"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("SCADD_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultEngine := "openscad-host"
	if v := os.Getenv("SCADD_ENGINE_BIN"); v != "" {
		defaultEngine = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", "", "Optional config file (.yaml, .json, .toml)")
	designsDir := flag.String("designs-dir", "~/designs", "Directory to scan for *.scad design files")
	engineBin := flag.String("engine-bin", defaultEngine, "Engine host binary (name on PATH or absolute path)")
	engineArgs := flag.String("engine-args", "", "Extra arguments passed to the engine host")
	watchPath := flag.String("watch", "", "Source file to watch; edits trigger auto-preview")
	corsEnabled := flag.Bool("cors-enabled", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
	maxBody := flag.Int64("max-body-bytes", 0, "Maximum JSON request body size (0=default 1MiB)")
	flag.Parse()

	cfg := config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}
	// Flags win over the config file for the values they cover.
	if cfg.Addr == "" || *addr != defaultAddr {
		cfg.Addr = *addr
	}
	if cfg.DesignsDir == "" || *designsDir != "~/designs" {
		cfg.DesignsDir = *designsDir
	}
	if cfg.EngineBin == "" || *engineBin != defaultEngine {
		cfg.EngineBin = *engineBin
	}
	if *engineArgs != "" {
		cfg.EngineArgs = strings.Fields(*engineArgs)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	httpapi.SetLogger(logger)
	if *maxBody > 0 {
		httpapi.SetMaxBodyBytes(*maxBody)
	}
	if *corsEnabled {
		httpapi.SetCORSOptions(true,
			strings.Split(*corsOrigins, ","),
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	designs, err := registry.LoadDir(cfg.DesignsDir)
	if err != nil {
		log.Fatalf("failed to load designs: %v", err)
	}
	logger.Info().Int("designs", len(designs)).Str("dir", cfg.DesignsDir).Msg("design registry loaded")

	pub := events.LogPublisher{Logger: logger}

	session := engine.New(engine.Config{
		Bin:            cfg.EngineBin,
		Args:           cfg.EngineArgs,
		StartupTimeout: msOrZero(cfg.StartupTimeoutMs),
		Logger:         logger,
		Publisher:      pub,
	})
	if sanity := session.SanityCheck(); !sanity.BinFound {
		logger.Warn().Str("bin", cfg.EngineBin).Str("err", sanity.Error).
			Msg("engine binary not found; renders will fail until it is installed")
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()
	httpapi.SetBaseContext(baseCtx)

	if err := session.Start(baseCtx); err != nil {
		// Start failure is not fatal: /status reports faulted and a
		// later render triggers another attempt via Restart.
		logger.Error().Err(err).Msg("engine session failed to start")
	}

	cache := rendercache.New(rendercache.Config{
		MaxEntries: cfg.CacheMaxEntries,
		MaxBytes:   cfg.CacheMaxBytes,
	})

	preview, full := qualityTiers(cfg)
	pipe := pipeline.New(session, cache, pipeline.Config{
		Preview:   preview,
		Full:      full,
		Logger:    logger,
		Publisher: pub,
	})

	sched := scheduler.New(pipe, scheduler.Config{
		Debounce:  msOrZero(cfg.DebounceMs),
		Logger:    logger,
		Publisher: pub,
	})
	if *watchPath != "" {
		fw, err := sched.WatchFile(*watchPath)
		if err != nil {
			log.Fatalf("failed to watch %s: %v", *watchPath, err)
		}
		defer fw.Close()
		logger.Info().Str("path", *watchPath).Msg("watching source file")
	}

	svc := service.New(service.Deps{
		Designs:   designs,
		Session:   session,
		Cache:     cache,
		Pipeline:  pipe,
		Scheduler: sched,
		Logger:    logger,
	})

	mux := httpapi.NewMux(svc)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("engine", cfg.EngineBin).Msg("scadd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	_ = sched.Close()
	_ = session.Close()
}

// qualityTiers applies config overrides on top of the default presets.
func qualityTiers(cfg config.Config) (pipeline.Quality, pipeline.Quality) {
	preview := pipeline.DefaultPreview()
	full := pipeline.DefaultFull()
	if cfg.PreviewTimeoutMs > 0 {
		preview.Timeout = msOrZero(cfg.PreviewTimeoutMs)
	}
	if cfg.PreviewMaxDetail > 0 {
		preview.MaxDetail = float64(cfg.PreviewMaxDetail)
	}
	if cfg.FullTimeoutMs > 0 {
		full.Timeout = msOrZero(cfg.FullTimeoutMs)
	}
	return preview, full
}

func msOrZero(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
