// Package logging provides structured logging configuration for netmonkey.
//
// This package wraps log/slog so that the engine, the proxy and the CLI log
// the same way. It supports configurable log levels, output formats and an
// optional rotating log file.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	    File:   "/var/log/netmonkey/netmonkey.log",
//	})
//
//	logger.Info("proxy started", "addr", ":8080")
//
// When File is set, records go both to Output and, as JSON, to the file.
// The file is rotated by size and old copies are compressed.
//
// # Integration
//
// Components accept a *slog.Logger in their constructor or via an option.
// If no logger is provided, use logging.Nop().
package logging
