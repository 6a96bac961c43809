package graphkit

import (
	"io"
	"log/slog"

	"github.com/zero-day-ai/graphkit/plugin"
)

// IsInterrupted reports whether err ended a run early because its context was
// cancelled. The graph keeps everything written before the interruption.
func IsInterrupted(err error) bool {
	return plugin.IsInterrupted(err)
}

// IsInvalid reports whether err rejected a request before anything was written.
func IsInvalid(err error) bool {
	return plugin.IsValidation(err)
}

// CloseWithLog closes closer and logs a failure at warning level. It is meant
// for defer statements where a close error has nowhere else to go.
//
//	defer graphkit.CloseWithLog(driver, logger, "neo4j driver")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
