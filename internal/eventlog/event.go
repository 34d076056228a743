// Package eventlog records pipeline stage events for auditing.
//
// Every stage of a compile run emits an Event. Events go to a Sink, which
// may be the structured logger, a SQL table, or several of these at once.
// Recording never fails the pipeline: sink errors are logged and dropped.
package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event is one pipeline stage transition.
type Event struct {
	RequestID    string         `json:"request_id"`
	AppName      string         `json:"app_name"`
	PipelineName string         `json:"pipeline_name"`
	Stage        string         `json:"stage"`
	RunID        string         `json:"run_id"`
	Data         map[string]any `json:"log_data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Sink persists events.
type Sink interface {
	Write(ctx context.Context, e Event) error
	Close() error
}

// SlogSink writes events as structured log records.
type SlogSink struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewSlogSink returns a sink that logs at info level. A nil logger discards.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SlogSink{Logger: logger, Level: slog.LevelInfo}
}

func (s *SlogSink) Write(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.String("request_id", e.RequestID),
		slog.String("app_name", e.AppName),
		slog.String("pipeline_name", e.PipelineName),
		slog.String("stage", e.Stage),
		slog.String("run_id", e.RunID),
	}
	if len(e.Data) > 0 {
		attrs = append(attrs, slog.Any("data", e.Data))
	}
	s.Logger.LogAttrs(ctx, s.Level, "pipeline event", attrs...)
	return nil
}

func (s *SlogSink) Close() error { return nil }

// MultiSink writes every event to each of its sinks.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
