package event

import (
	"encoding/json"
)

// Record is the canonical state snapshot sent to the companion app.
// It is built once per invocation and treated as immutable.
type Record struct {
	SessionID string
	Cwd       string
	Event     string
	PID       int
	TTY       string // empty encodes as null
	Status    Status
	Tool      string          // encoded only when Status.CarriesTool()
	ToolInput json.RawMessage // encoded only for StatusRunningTool

	// Set only on decoded records, so that a status or tool key this
	// version does not know about is passed through on re-encode.
	rawStatus     string
	wireTool      bool
	wireToolInput bool
}

// NewRecord combines an extraction with the invocation context.
func NewRecord(x Extraction, pid int, tty string) Record {
	r := Record{
		SessionID: x.SessionID,
		Cwd:       x.Cwd,
		Event:     x.Event,
		PID:       pid,
		TTY:       tty,
		Status:    x.Status,
	}
	if x.Status.CarriesTool() {
		r.Tool = x.Tool
	}
	if x.Status == StatusRunningTool && len(x.ToolInput) > 0 {
		r.ToolInput = x.ToolInput
	}
	return r
}

// HasTool reports whether the encoded record includes the tool key.
func (r Record) HasTool() bool {
	return r.Status.CarriesTool() || r.wireTool
}

// HasToolInput reports whether the encoded record includes tool_input.
func (r Record) HasToolInput() bool {
	return (r.Status == StatusRunningTool || r.wireToolInput) && len(r.ToolInput) > 0
}

// StatusName is the status as it appears on the wire. For a decoded record
// with an unrecognized status it is the sender's name, not "unknown".
func (r Record) StatusName() string {
	if r.rawStatus != "" {
		return r.rawStatus
	}
	return r.Status.String()
}

// wireRecord fixes key order and presence on the wire.
type wireRecord struct {
	SessionID string          `json:"session_id"`
	Cwd       string          `json:"cwd"`
	Event     string          `json:"event"`
	PID       int             `json:"pid"`
	TTY       *string         `json:"tty"`
	Status    json.RawMessage `json:"status"`
	Tool      json.RawMessage `json:"tool,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
}

var jsonNull = json.RawMessage("null")

func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		SessionID: r.SessionID,
		Cwd:       r.Cwd,
		Event:     r.Event,
		PID:       r.PID,
	}
	status, err := json.Marshal(r.StatusName())
	if err != nil {
		return nil, err
	}
	w.Status = status
	if r.TTY != "" {
		tty := r.TTY
		w.TTY = &tty
	}
	if r.HasTool() {
		if r.Tool == "" {
			w.Tool = jsonNull
		} else {
			tool, err := json.Marshal(r.Tool)
			if err != nil {
				return nil, err
			}
			w.Tool = tool
		}
	}
	if r.HasToolInput() {
		w.ToolInput = r.ToolInput
	}
	return json.Marshal(w)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		SessionID: w.SessionID,
		Cwd:       w.Cwd,
		Event:     w.Event,
		PID:       w.PID,
	}
	var name string
	if len(w.Status) > 0 && json.Unmarshal(w.Status, &name) == nil {
		if s, ok := statusFromName[name]; ok {
			r.Status = s
		} else {
			r.rawStatus = name
		}
	}
	if w.TTY != nil {
		r.TTY = *w.TTY
	}
	if len(w.Tool) > 0 {
		r.wireTool = !r.Status.CarriesTool()
		if !isNull(w.Tool) {
			var tool string
			if err := json.Unmarshal(w.Tool, &tool); err == nil {
				r.Tool = tool
			}
		}
	}
	if len(w.ToolInput) > 0 && !isNull(w.ToolInput) {
		r.ToolInput = w.ToolInput
		r.wireToolInput = r.Status != StatusRunningTool
	}
	return nil
}

// Encode returns the newline-terminated wire form of r.
func (r Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
