// Package logger provides a small leveled logger safe for concurrent use.
//
// Each entry carries a timestamp, the level, an optional component name and
// the message:
//
//	[2026-10-18 12:00:00.000] [INFO] [client-7] connected from 127.0.0.1:51234
//
// # Basic Usage
//
//	logger.Info("server", "listening on %s", addr)
//	logger.Warn("client-3", "read failed: %v", err)
//
// A custom logger:
//
//	l := logger.New(os.Stdout, logger.LevelDebug)
//	l.Debug("tree", "dump started")
//
// # Log Levels
//
// Messages below the configured level are dropped. ParseLevel converts the
// level names used in configuration files ("debug", "info", "warn",
// "error").
//
// The Default logger writes to stderr, keeping stdout free for operator
// console output such as tree dumps.
package logger
