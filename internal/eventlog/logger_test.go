package eventlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"peekaboo/internal/model"
)

type recordSink struct {
	events []model.Event
}

func (s *recordSink) Record(event model.Event) error {
	s.events = append(s.events, event)
	return nil
}

func TestEmitWritesFlattenedLine(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	event, err := logger.Emit("probe", map[string]any{"port": 8080, "vector": "ego"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if event.ID == "" {
		t.Fatal("event id is empty")
	}
	if !strings.HasSuffix(event.TS, "Z") {
		t.Fatalf("timestamp not UTC: %s", event.TS)
	}

	line := strings.TrimRight(buf.String(), "\n")
	if strings.Contains(line, "\n") {
		t.Fatalf("emit wrote more than one line: %q", buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded["event"] != "probe" {
		t.Fatalf("unexpected event kind: %v", decoded["event"])
	}
	if decoded["ts"] != event.TS || decoded["id"] != event.ID {
		t.Fatalf("header fields missing from line: %v", decoded)
	}
	if decoded["port"] != float64(8080) || decoded["vector"] != "ego" {
		t.Fatalf("payload not flattened into line: %v", decoded)
	}
}

func TestEmitAssignsUniqueIDs(t *testing.T) {
	logger := New(&bytes.Buffer{})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		event, err := logger.Emit("sleep", map[string]any{"ms": i})
		if err != nil {
			t.Fatalf("emit: %v", err)
		}
		if seen[event.ID] {
			t.Fatalf("duplicate event id: %s", event.ID)
		}
		seen[event.ID] = true
	}
}

func TestEmitFansOutToSinks(t *testing.T) {
	sink := &recordSink{}
	logger := New(&bytes.Buffer{}, sink)

	if _, err := logger.Emit("boot", map[string]any{"message": "hello"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if _, err := logger.Emit("shutdown", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("sink saw %d events, want 2", len(sink.events))
	}
	if sink.events[0].Kind != "boot" || sink.events[1].Kind != "shutdown" {
		t.Fatalf("sink saw unexpected kinds: %s, %s", sink.events[0].Kind, sink.events[1].Kind)
	}
}
