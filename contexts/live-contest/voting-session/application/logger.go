package application

import "log/slog"

// ResolveLogger returns logger, or the process default when nil, scoped to
// this module.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger
}
