package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultSessionID is used when the payload carries no usable session_id.
const DefaultSessionID = "unknown"

// ErrMalformedPayload means stdin did not hold a JSON object.
var ErrMalformedPayload = errors.New("malformed hook payload")

// Payload is the subset of a hook's stdin JSON the bridge cares about.
// Fields of the wrong JSON type are treated as absent.
type Payload struct {
	SessionID     string
	HookEventName string
	Cwd           string
	ToolName      string

	// ToolInput is the raw tool_input object. Nil when absent, not an
	// object, or an empty object.
	ToolInput json.RawMessage
}

// ParsePayload decodes a hook payload. Only a top-level value that is not a
// JSON object is an error; missing or mistyped fields fall back to defaults.
func ParsePayload(data []byte) (Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if fields == nil {
		return Payload{}, fmt.Errorf("%w: top-level value is null", ErrMalformedPayload)
	}

	p := Payload{
		HookEventName: stringField(fields, "hook_event_name"),
		Cwd:           stringField(fields, "cwd"),
		ToolName:      stringField(fields, "tool_name"),
		ToolInput:     objectField(fields, "tool_input"),
	}
	if id, ok := lookupString(fields, "session_id"); ok {
		p.SessionID = id
	} else {
		p.SessionID = DefaultSessionID
	}
	return p, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	s, _ := lookupString(fields, key)
	return s
}

// lookupString reports false when key is missing, null, or not a string.
func lookupString(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// objectField returns the compacted raw bytes of a non-empty JSON object.
func objectField(fields map[string]json.RawMessage, key string) json.RawMessage {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || len(obj) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return json.RawMessage(buf.Bytes())
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
