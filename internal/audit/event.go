package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/eduAuth/internal/logging"
)

// Event is one audit record.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// LoggerSink writes each event as one structured log line.
type LoggerSink struct {
	logger logging.Logger
}

func NewLoggerSink(logger logging.Logger) *LoggerSink {
	return &LoggerSink{logger: logging.OrNop(logger)}
}

func (s *LoggerSink) Emit(ctx context.Context, event Event) {
	args := []any{
		"audit_id", event.ID,
		"type", event.Type,
		"success", event.Success,
	}
	if event.Subject != "" {
		args = append(args, "subject", event.Subject)
	}
	if event.IP != "" {
		args = append(args, "ip", event.IP)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	if event.Error != "" {
		args = append(args, "error", event.Error)
	}
	for k, v := range event.Metadata {
		args = append(args, "meta_"+k, v)
	}
	s.logger.Info(ctx, "audit", args...)
}
