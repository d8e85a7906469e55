package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent records one credential lifecycle decision: an issued session, a
// rotation, a denial or a revocation. Tokens never appear in an event.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MarshalZerologObject lets an event be embedded in a log line.
func (ev AuditEvent) MarshalZerologObject(e *zerolog.Event) {
	e.Time("timestamp", ev.Timestamp).
		Str("event_type", ev.EventType).
		Bool("success", ev.Success)
	if ev.UserID != "" {
		e.Str("user_id", ev.UserID)
	}
	if ev.SessionID != "" {
		e.Str("session_id", ev.SessionID)
	}
	if ev.RequestID != "" {
		e.Str("request_id", ev.RequestID)
	}
	if ev.IP != "" {
		e.Str("ip", ev.IP)
	}
	if ev.UserAgent != "" {
		e.Str("user_agent", ev.UserAgent)
	}
	if ev.Error != "" {
		e.Str("error", ev.Error)
	}
	if len(ev.Metadata) > 0 {
		md := zerolog.Dict()
		for k, v := range ev.Metadata {
			md.Str(k, v)
		}
		e.Dict("metadata", md)
	}
}

// AuditSink receives events on the dispatcher goroutine, one at a time.
// A slow sink backs up the dispatcher buffer, not request handling.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a plain function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to a consumer reading Events. Emit waits for room
// until ctx ends.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent { return s.events }

// LoggerSink writes events through a zerolog logger: successes at info,
// failures at warn.
type LoggerSink struct {
	logger zerolog.Logger
}

func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LoggerSink) Emit(_ context.Context, event AuditEvent) {
	entry := s.logger.Info()
	if !event.Success {
		entry = s.logger.Warn()
	}
	entry.EmbedObject(event).Msg("audit")
}

// JSONWriterSink encodes each event as one line of JSON on w.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}
