package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/soocke/sprint-bot-go/assets"
	"github.com/soocke/sprint-bot-go/config"
	"github.com/soocke/sprint-bot-go/debug"
	"github.com/soocke/sprint-bot-go/domain/action"
	"github.com/soocke/sprint-bot-go/domain/capture"
	"github.com/soocke/sprint-bot-go/domain/classify"
	"github.com/soocke/sprint-bot-go/domain/sprint"
	"github.com/soocke/sprint-bot-go/ui/tray"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	debugFlag := flag.Bool("debug", false, "enable debug logging and runtime metrics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if *debugFlag {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	logger := NewLogger(parseLevel(cfg.LogLevel))
	if err != nil {
		logger.Warn("config load failed, continuing with defaults",
			slog.String("path", *configPath), slog.Any("error", err))
	}

	if err := ensureTemplates(cfg); err != nil {
		logger.Error("cannot write default templates", slog.Any("error", err))
		os.Exit(1)
	}

	matcher, err := classify.NewTemplateMatcher(
		cfg.SprintOnTemplatePath, cfg.SprintOffTemplatePath,
		cfg.RegionWidth, cfg.RegionHeight, cfg.MatchThreshold, logger,
	)
	if err != nil {
		logger.Error("template matcher init failed", slog.Any("error", err))
		os.Exit(1)
	}

	// The learned model is an optional tie-breaker. When it cannot be
	// loaded the bot still runs on templates alone.
	var model classify.ActiveScorer
	var closeModel func()
	if cfg.UseModelFallback && cfg.ModelPath != "" {
		m, merr := classify.NewModel(cfg.ModelPath, cfg.ModelInputWidth, cfg.ModelInputHeight, cfg.OnnxRuntimeLibPath, logger)
		if merr != nil {
			logger.Warn("model unavailable, running template-only",
				slog.String("path", cfg.ModelPath), slog.Any("error", merr))
		} else {
			model = m
			closeModel = m.Close
		}
	}

	classifier := classify.NewFused(matcher, model, classify.FusedOptions{
		MatchThreshold: cfg.MatchThreshold,
		AmbiguousFloor: cfg.AmbiguousFloor,
		ModelThreshold: cfg.ModelThreshold,
		CacheSize:      cfg.DetectionCacheSize,
		CacheTTL:       time.Duration(cfg.DetectionCacheTTLMs) * time.Millisecond,
	}, logger)

	source := capture.NewScreenSource(capture.Region{
		X: cfg.RegionX, Y: cfg.RegionY,
		Width: cfg.RegionWidth, Height: cfg.RegionHeight,
	}, logger)

	vk := action.ParseVK(cfg.SprintKey)
	dispatcher := sprint.NewKeyDispatcher(
		sprint.IconStateFromString(cfg.TriggerState),
		time.Duration(cfg.DispatchCooldownMs)*time.Millisecond,
		func() error { return action.PressKey(vk) },
		logger,
	)

	ctrl := sprint.NewController(cfg, source, classifier, dispatcher, logger)

	var watcher *sprint.WindowWatcher
	if cfg.GameWindowTitle != "" {
		watcher = sprint.NewWindowWatcher(ctrl, cfg.GameWindowTitle,
			action.ForegroundWindowTitle, time.Second, cfg.MaxConsecutiveFail, logger)
		watcher.Start()
	}

	if cfg.Debug {
		debug.StartGoroutineLogger(5*time.Second, logger)
		debug.StartMemLogger(5*time.Second, logger)
		debug.StartCaptureStatsLogger(5*time.Second, source.Stats, logger)
	}

	logger.Info("sprint bot starting",
		slog.String("config", *configPath),
		slog.String("window", cfg.GameWindowTitle),
		slog.String("key", cfg.SprintKey),
	)

	app := tray.New(ctrl, assets.TrayIconPNG, logger)
	app.Run(func() {
		if watcher != nil {
			watcher.Stop()
		}
		if closeModel != nil {
			closeModel()
		}
	})
}

// ensureTemplates writes the embedded placeholder templates to the
// configured paths when no template files exist yet, so a first run has
// something to match against until the user crops real icons.
func ensureTemplates(cfg *config.Settings) error {
	defaults := map[string][]byte{
		cfg.SprintOnTemplatePath:  assets.SprintOnPNG,
		cfg.SprintOffTemplatePath: assets.SprintOffPNG,
	}
	for path, data := range defaults {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
