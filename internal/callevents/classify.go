// Package callevents turns the vendor's webhook bodies into one canonical
// event type plus a typed view of the call.
package callevents

import (
	"strings"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/internal/analysis"
)

// Canonical event types handled by the pipeline.
const (
	CallStarted      = "call_started"
	CallEnded        = "call_ended"
	CallAnalyzed     = "call_analyzed"
	TranscriptUpdate = "transcript_update"
	Unknown          = "unknown"
)

// Shape records which envelope a payload arrived in.
type Shape string

const (
	ShapeEventCall     Shape = "event_call"
	ShapeEventTypeData Shape = "event_type_data"
	ShapeLegacy        Shape = "legacy"
)

// Classified is the canonical form of one webhook body.
type Classified struct {
	EventType string
	Shape     Shape
	Call      CallData
}

// Known reports whether the pipeline acts on this event type.
func (c Classified) Known() bool {
	switch c.EventType {
	case CallStarted, CallEnded, CallAnalyzed, TranscriptUpdate:
		return true
	}
	return false
}

// Classify inspects body and never fails. Envelopes are tried in order:
// {event, call}, {event_type, data}, then the whole body as call data with
// the type read from "type".
func Classify(body map[string]any) Classified {
	if body == nil {
		body = map[string]any{}
	}

	if event, ok := body["event"]; ok {
		return Classified{
			EventType: eventName(event),
			Shape:     ShapeEventCall,
			Call:      NewCallData(asObject(body["call"])),
		}
	}

	if event, ok := body["event_type"]; ok {
		return Classified{
			EventType: eventName(event),
			Shape:     ShapeEventTypeData,
			Call:      NewCallData(asObject(body["data"])),
		}
	}

	return Classified{
		EventType: eventName(body["type"]),
		Shape:     ShapeLegacy,
		Call:      NewCallData(body),
	}
}

func eventName(v any) string {
	s, _ := v.(string)
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Unknown
	}
	return s
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// CallData is a typed view over the vendor's call object.
type CallData struct {
	CallID              string
	AgentID             string
	Direction           string
	FromNumber          string
	ToNumber            string
	CallerNumber        string
	StartTimestamp      *int64
	EndTimestamp        *int64
	DurationMS          *int64
	RecordingURL        string
	Transcript          *string
	DisconnectionReason string
	Analysis            map[string]any
	Raw                 map[string]any
}

// NewCallData reads the known call fields out of raw.
func NewCallData(raw map[string]any) CallData {
	c := CallData{
		CallID:              firstString(raw, "call_id", "call_sid", "callSid", "id"),
		AgentID:             firstString(raw, "agent_id"),
		Direction:           strings.ToLower(firstString(raw, "direction")),
		FromNumber:          firstString(raw, "from_number"),
		ToNumber:            firstString(raw, "to_number"),
		CallerNumber:        firstString(raw, "caller_number", "caller"),
		StartTimestamp:      analysis.ParseOptionalInt(raw["start_timestamp"]),
		EndTimestamp:        analysis.ParseOptionalInt(raw["end_timestamp"]),
		DurationMS:          analysis.ParseOptionalInt(raw["duration_ms"]),
		RecordingURL:        firstString(raw, "recording_url"),
		DisconnectionReason: firstString(raw, "disconnection_reason"),
		Raw:                 raw,
	}
	if c.Direction == "" {
		c.Direction = "inbound"
	}
	if t, ok := raw["transcript"].(string); ok {
		c.Transcript = &t
	}
	for _, key := range []string{"call_analysis", "post_call_analysis", "analysis"} {
		if m, ok := raw[key].(map[string]any); ok {
			c.Analysis = m
			break
		}
	}
	return c
}

// PhoneCandidates returns the numbers to match against leads, most specific
// first: for inbound calls the remote party is from_number, for outbound
// calls it is to_number. Empty values are dropped.
func (c CallData) PhoneCandidates() []string {
	ordered := []string{c.FromNumber, c.ToNumber, c.CallerNumber}
	if c.Direction == "outbound" {
		ordered = []string{c.ToNumber, c.FromNumber, c.CallerNumber}
	}

	out := make([]string, 0, len(ordered))
	for _, p := range ordered {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// StartedAt converts start_timestamp (epoch ms) to a time.
func (c CallData) StartedAt() *time.Time { return fromMillis(c.StartTimestamp) }

// EndedAt converts end_timestamp (epoch ms) to a time.
func (c CallData) EndedAt() *time.Time { return fromMillis(c.EndTimestamp) }

// DurationSeconds is duration_ms/1000, falling back to end minus start.
func (c CallData) DurationSeconds() *int {
	var ms int64
	switch {
	case c.DurationMS != nil:
		ms = *c.DurationMS
	case c.StartTimestamp != nil && c.EndTimestamp != nil && *c.EndTimestamp >= *c.StartTimestamp:
		ms = *c.EndTimestamp - *c.StartTimestamp
	default:
		return nil
	}
	secs := int(ms / 1000)
	return &secs
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil || *ms <= 0 {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := analysis.OptionalString(raw[key]); s != nil {
			return strings.TrimSpace(*s)
		}
	}
	return ""
}
