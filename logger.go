package prewarm

import (
	"log/slog"

	"github.com/gogpu/prewarm/internal/logging"
)

// SetLogger configures the logger for prewarm and all its sub-packages.
// By default, prewarm produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger
// atomically. Pass nil to disable logging (restore default silent
// behavior).
//
// Log levels used by prewarm:
//   - [slog.LevelDebug]: per-entry outcomes (parse and create failures,
//     archive statistics, ignored capture fields)
//   - [slog.LevelInfo]: lifecycle events (device opened, replay summary)
//   - [slog.LevelWarn]: non-fatal oddities (dependency cycles, unreadable
//     application info)
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}
