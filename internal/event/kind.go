package event

// Kind is the hook_event_name the host reports. Values outside the known
// set are valid and classify as StatusUnknown.
type Kind string

const (
	KindSessionStart     Kind = "SessionStart"
	KindSessionEnd       Kind = "SessionEnd"
	KindPreToolUse       Kind = "PreToolUse"
	KindPostToolUse      Kind = "PostToolUse"
	KindUserPromptSubmit Kind = "UserPromptSubmit"
	KindStop             Kind = "Stop"
	KindSubagentStop     Kind = "SubagentStop"
)

var kindStatus = map[Kind]Status{
	KindSessionStart:     StatusStarted,
	KindSessionEnd:       StatusEnded,
	KindPreToolUse:       StatusRunningTool,
	KindPostToolUse:      StatusToolComplete,
	KindUserPromptSubmit: StatusProcessing,
	KindStop:             StatusIdle,
	KindSubagentStop:     StatusSubagentComplete,
}

// Known reports whether k is one of the hook events the bridge classifies.
func (k Kind) Known() bool {
	_, ok := kindStatus[k]
	return ok
}

// Classify maps a raw event name to its status. Matching is exact and
// case-sensitive; anything unrecognized, including "", is StatusUnknown.
func Classify(name string) Status {
	if s, ok := kindStatus[Kind(name)]; ok {
		return s
	}
	return StatusUnknown
}
