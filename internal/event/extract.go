package event

import "encoding/json"

// Extraction is the kind-specific view of one payload: its status plus the
// extra fields that status requires.
type Extraction struct {
	SessionID string
	Cwd       string
	Event     string
	Status    Status

	// Tool and ToolInput are only meaningful when Status.CarriesTool().
	Tool      string
	ToolInput json.RawMessage
}

// Extract classifies p and keeps only the fields its event kind requires.
// Unrecognized kinds are kept with StatusUnknown and the raw event name.
func Extract(p Payload) Extraction {
	x := Extraction{
		SessionID: p.SessionID,
		Cwd:       p.Cwd,
		Event:     p.HookEventName,
		Status:    Classify(p.HookEventName),
	}

	switch x.Status {
	case StatusRunningTool:
		x.Tool = p.ToolName
		if len(p.ToolInput) > 0 {
			x.ToolInput = p.ToolInput
		}
	case StatusToolComplete:
		x.Tool = p.ToolName
	}
	return x
}
