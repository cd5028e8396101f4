package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogStage logs the start or skip of a pipeline stage
func LogStage(log Logger, stage string, skipped bool, fields map[string]interface{}) {
	all := map[string]interface{}{
		"stage":   stage,
		"skipped": skipped,
	}
	for k, v := range fields {
		all[k] = v
	}

	if skipped {
		log.InfoWithFields("Stage skipped", all)
		return
	}
	log.InfoWithFields("Stage started", all)
}

// LogJobFailure logs a download job that will be retried or was given up on
func LogJobFailure(log Logger, source, destination string, round int, permanent bool, err error) {
	fields := map[string]interface{}{
		"source":      source,
		"destination": destination,
		"round":       round,
		"permanent":   permanent,
	}

	if permanent {
		log.WithError(err).ErrorWithFields("Job permanently failed", fields)
		return
	}
	log.WithError(err).WarnWithFields("Job failed, requeueing", fields)
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
