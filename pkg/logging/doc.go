// Package logging provides slog.Logger construction for graphd.
//
// It wraps log/slog with a small Config (level, format, output) so the CLI
// and library consumers build loggers the same way:
//
//	log := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	log.Info("server started", "addr", addr)
//
// Nop returns a discard-everything logger for code paths that require a
// logger but should stay silent, such as tests and embedded use.
package logging
