package model

import "encoding/json"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Event is one line of the structured event stream. Each event serializes to
// a single self-contained JSON object: the header fields ts/id/event plus the
// event-specific payload fields, flattened to the top level.
type Event struct {
	TS      string
	ID      string
	Kind    string
	Payload map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+3)
	for key, value := range e.Payload {
		out[key] = value
	}
	out["ts"] = e.TS
	out["id"] = e.ID
	out["event"] = e.Kind
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.TS, _ = raw["ts"].(string)
	e.ID, _ = raw["id"].(string)
	e.Kind, _ = raw["event"].(string)
	delete(raw, "ts")
	delete(raw, "id")
	delete(raw, "event")
	e.Payload = raw
	return nil
}

// RunRecord is the terminal snapshot of a completed run together with the
// configuration that produced it.
type RunRecord struct {
	VersionedRecord
	ID           string `json:"id"`
	CreatedAtUTC string `json:"created_at_utc"`
	Seed         int64  `json:"seed"`

	Ports            []int   `json:"ports"`
	MaxDepth         int     `json:"max_depth"`
	MaxFailures      int     `json:"max_failures"`
	SilenceThreshold float64 `json:"silence_threshold"`

	Depth        int     `json:"depth"`
	Sessions     int     `json:"sessions"`
	Failures     int     `json:"failures"`
	PortEpoch    int     `json:"port_epoch"`
	Consequence  float64 `json:"consequence"`
	ArchiveRatio float64 `json:"archive_ratio"`
	Entropy      float64 `json:"entropy"`
	Scale        float64 `json:"scale"`
	FinalBinary  string  `json:"final_binary"`
	StopReason   string  `json:"stop_reason"`
	DurationMS   int64   `json:"duration_ms"`
}
