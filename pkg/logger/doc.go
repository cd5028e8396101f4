// Package logger provides structured logging for the harvester.
//
// It wraps zerolog behind the Logger interface so components can accept a
// logger without depending on zerolog directly:
//
//	cfg := &config.LoggingConfig{Level: "info", Format: "auto"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//	logger.WithField("stage", "pages").Info("Stage started")
//
// Output is a colourised console stream when stderr is a terminal and JSON
// lines otherwise. Setting File tees every line into that file as well.
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to drop them.
package logger
