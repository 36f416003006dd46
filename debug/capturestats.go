package debug

// Capture throughput logger. Started only when config.Debug is true.

import (
	"log/slog"
	"time"

	"github.com/soocke/sprint-bot-go/domain/capture"
)

// StartCaptureStatsLogger periodically logs frame source counters so stalls
// or failure bursts show up in the debug log without attaching a profiler.
func StartCaptureStatsLogger(interval time.Duration, stats func() capture.Stats, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var last capture.Stats
		for range ticker.C {
			s := stats()
			logger.Info("capture-stats",
				slog.Uint64("captures", s.Captures),
				slog.Uint64("failures", s.Failures),
				slog.Uint64("captures_delta", s.Captures-last.Captures),
				slog.Duration("avg_capture", s.AvgCapture),
				slog.Time("last_capture", s.LastCapture),
			)
			last = s
		}
	}()
}
