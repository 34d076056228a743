package eventlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Recorder stamps events with the application, pipeline and run they belong
// to and hands them to a Sink. A nil *Recorder records nothing.
type Recorder struct {
	Sink         Sink
	AppName      string
	PipelineName string
	RunID        string
	Clock        func() time.Time
	Logger       *slog.Logger
}

// NewRecorder returns a Recorder with a fresh run id.
func NewRecorder(sink Sink, appName, pipelineName string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		Sink:         sink,
		AppName:      appName,
		PipelineName: pipelineName,
		RunID:        uuid.NewString(),
		Clock:        time.Now,
		Logger:       logger,
	}
}

// Record emits one event. Sink errors are logged at warn level and dropped.
func (r *Recorder) Record(ctx context.Context, requestID, stage string, data map[string]any) {
	if r == nil || r.Sink == nil {
		return
	}
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}

	e := Event{
		RequestID:    requestID,
		AppName:      r.AppName,
		PipelineName: r.PipelineName,
		Stage:        stage,
		RunID:        r.RunID,
		Data:         data,
		CreatedAt:    clock().UTC(),
	}
	if err := r.Sink.Write(ctx, e); err != nil && r.Logger != nil {
		r.Logger.WarnContext(ctx, "failed to record pipeline event",
			"request_id", requestID, "stage", stage, "error", err)
	}
}

// Close releases the underlying sink.
func (r *Recorder) Close() error {
	if r == nil || r.Sink == nil {
		return nil
	}
	return r.Sink.Close()
}
