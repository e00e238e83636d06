package event

import "encoding/json"

// Status is the normalized state a hook event puts the session in.
type Status int

const (
	StatusUnknown Status = iota
	StatusStarted
	StatusEnded
	StatusRunningTool
	StatusToolComplete
	StatusProcessing
	StatusIdle
	StatusSubagentComplete
)

var statusNames = map[Status]string{
	StatusUnknown:          "unknown",
	StatusStarted:          "started",
	StatusEnded:            "ended",
	StatusRunningTool:      "running_tool",
	StatusToolComplete:     "tool_complete",
	StatusProcessing:       "processing",
	StatusIdle:             "idle",
	StatusSubagentComplete: "subagent_complete",
}

var statusFromName = map[string]Status{
	"unknown":           StatusUnknown,
	"started":           StatusStarted,
	"ended":             StatusEnded,
	"running_tool":      StatusRunningTool,
	"tool_complete":     StatusToolComplete,
	"processing":        StatusProcessing,
	"idle":              StatusIdle,
	"subagent_complete": StatusSubagentComplete,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// CarriesTool reports whether records with this status include the tool key.
func (s Status) CarriesTool() bool {
	return s == StatusRunningTool || s == StatusToolComplete
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON maps unrecognized names to StatusUnknown so that newer
// senders never break older listeners.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
		return nil
	}
	*s = StatusUnknown
	return nil
}
