// Package logger provides a structured logging interface for the pipeline.
//
// It wraps the zerolog library to provide a clean API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output
// - Optional file output
// - A global logger instance for easy access
//
// Basic Usage:
//
//	import "policypipe/pkg/logger"
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	err := logger.Initialize(cfg)
//
//	logger.Info("Pipeline started")
//	logger.WithField("file", "report.pdf").Info("Document extracted")
//	logger.WithError(err).Error("Failed to translate row")
package logger
