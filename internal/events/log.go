package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// FileLogSubscriber writes every event it receives as a canonical
// JSON-lines envelope, gzip-compressed on the fly. It is registered once
// per event Type via Bus.Subscribe and is itself just a Handler — it has
// no special standing in the bus.
type FileLogSubscriber struct {
	mu     sync.Mutex
	file   *os.File
	gz     *gzip.Writer
	writer *bufio.Writer
}

// Envelope mirrors the wire-level event shape: {event_type, timestamp, data}.
// Shared by the file log subscriber and the websocket feed so both ship the
// exact same JSON-lines shape.
type Envelope struct {
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEnvelope builds the wire envelope for ev.
func NewEnvelope(ev Event) Envelope {
	return Envelope{
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Data:      ev.Data,
	}
}

// redactedFields lists, per event type, the keys a public feed must never
// expose. TRADE carries counterparty identities instead of a single
// client_id/order_id pair, matching the original implementation's
// PublicFeed._handle_event.
var redactedFields = map[Type][]string{
	Trade: {"seller_id", "buyer_id", "seller_order_id", "buyer_order_id"},
}

const redacted = "***"

// Redact returns a shallow copy of ev.Data with identity fields replaced by
// "***". Used by the unauthenticated public event feed so it never leaks
// who owns a resting order or either side of a trade.
func Redact(ev Event) map[string]interface{} {
	out := make(map[string]interface{}, len(ev.Data))
	for k, v := range ev.Data {
		out[k] = v
	}
	fields, ok := redactedFields[ev.Type]
	if !ok {
		fields = []string{"client_id", "order_id"}
	}
	for _, k := range fields {
		out[k] = redacted
	}
	return out
}

// NewRedactedEnvelope builds the wire envelope for ev with identity fields
// redacted, the shape the public feed broadcasts.
func NewRedactedEnvelope(ev Event) Envelope {
	return Envelope{
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Data:      Redact(ev),
	}
}

// NewFileLogSubscriber opens (or creates) path and returns a subscriber
// that appends gzip-compressed JSON-lines to it.
func NewFileLogSubscriber(path string) (*FileLogSubscriber, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	gz := gzip.NewWriter(f)
	return &FileLogSubscriber{
		file:   f,
		gz:     gz,
		writer: bufio.NewWriter(gz),
	}, nil
}

// Handle is the Handler func to pass to Bus.Subscribe for each event Type
// this log should capture.
func (s *FileLogSubscriber) Handle(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(NewEnvelope(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := s.writer.Write(b); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	return s.writer.Flush()
}

// Close flushes and closes the underlying gzip stream and file.
func (s *FileLogSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.gz.Close(); err != nil {
		return err
	}
	return s.file.Close()
}

var _ io.Closer = (*FileLogSubscriber)(nil)
