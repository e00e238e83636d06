package console

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/clawdgotchi/hookbridge/internal/event"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestFormat_ToolRecord(t *testing.T) {
	rec := event.NewRecord(event.Extraction{
		SessionID: "0123456789abcdef",
		Cwd:       "/repo",
		Event:     "PreToolUse",
		Status:    event.StatusRunningTool,
		Tool:      "Edit",
		ToolInput: json.RawMessage(`{"file":"x.py"}`),
	}, 42, "/dev/pts/3")

	got := Format(rec)
	for _, want := range []string{"running_tool", "PreToolUse", "Edit", "01234567", "pid=42", "tty=pts/3", "/repo"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "89abcdef") {
		t.Errorf("Format() = %q, session id should be shortened", got)
	}
}

func TestFormat_NoTTYNoTool(t *testing.T) {
	rec := event.NewRecord(event.Extraction{SessionID: "s", Event: "Stop", Status: event.StatusIdle}, 7, "")

	got := Format(rec)
	if !strings.Contains(got, "tty=-") {
		t.Errorf("Format() = %q, want tty=-", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("Format() = %q, trailing space with empty cwd", got)
	}
}

func TestStatusBadgeWidth(t *testing.T) {
	for _, s := range []event.Status{event.StatusIdle, event.StatusSubagentComplete, event.StatusUnknown} {
		if w := lipgloss.Width(StatusBadge(s)); w != statusWidth {
			t.Errorf("StatusBadge(%v) width = %d, want %d", s, w, statusWidth)
		}
	}
}

func TestStatusColor(t *testing.T) {
	if StatusColor(event.StatusRunningTool) != ColorRunningTool {
		t.Error("running_tool color mismatch")
	}
	if StatusColor(event.Status(99)) != ColorDefault {
		t.Error("unrecognized status should use the default color")
	}
}

func TestFormat_UnrecognizedStatusShowsSenderName(t *testing.T) {
	var rec event.Record
	if err := json.Unmarshal([]byte(`{"session_id":"s","event":"PermissionRequest","pid":1,"tty":null,"status":"awaiting_permission","tool":"Bash"}`), &rec); err != nil {
		t.Fatal(err)
	}
	got := Format(rec)
	for _, want := range []string{"awaiting_permission", "Bash"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() = %q, missing %q", got, want)
		}
	}
}
