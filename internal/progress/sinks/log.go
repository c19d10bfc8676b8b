package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/progress"
)

// LogSink writes one structured log line per terminal poll event. Start
// events are skipped; errors log at warn level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if evt.Stage == progress.StagePollStart {
			continue
		}
		fields := []zap.Field{
			zap.Uint64("seq", evt.Seq),
			zap.String("stage", string(evt.Stage)),
			zap.Float64("progress", evt.Progress),
			zap.Bool("active", evt.Active),
			zap.Bool("rendered", evt.Rendered),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		if evt.Stage == progress.StagePollError {
			s.logger.Warn("poll event", fields...)
			continue
		}
		s.logger.Debug("poll event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
