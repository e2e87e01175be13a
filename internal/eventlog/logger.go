// Package eventlog serializes the run's structured event stream as one
// self-contained JSON object per line.
package eventlog

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"peekaboo/internal/model"
)

// Sink receives every emitted event after it has been written. Archive
// backends fan in here without touching the primary stream.
type Sink interface {
	Record(event model.Event) error
}

// Logger stamps each event with a fresh unique id and an RFC3339 UTC
// timestamp and encodes it to the underlying writer.
type Logger struct {
	mu    sync.Mutex
	enc   *json.Encoder
	sinks []Sink
	now   func() time.Time
	newID func() string
}

func New(w io.Writer, sinks ...Sink) *Logger {
	return &Logger{
		enc:   json.NewEncoder(w),
		sinks: sinks,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Emit writes one event line and forwards it to the attached sinks.
func (l *Logger) Emit(kind string, payload map[string]any) (model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := model.Event{
		TS:      l.now().UTC().Format(time.RFC3339),
		ID:      l.newID(),
		Kind:    kind,
		Payload: payload,
	}
	if err := l.enc.Encode(event); err != nil {
		return model.Event{}, err
	}
	for _, sink := range l.sinks {
		if err := sink.Record(event); err != nil {
			return model.Event{}, err
		}
	}
	return event, nil
}
