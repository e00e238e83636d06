package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawdgotchi/hookbridge/internal/caller"
	"github.com/clawdgotchi/hookbridge/internal/event"
	"github.com/clawdgotchi/hookbridge/internal/transport"
)

type fakeResolver struct{ ctx caller.Context }

func (f fakeResolver) Resolve(context.Context) caller.Context { return f.ctx }

type recordingSender struct {
	sent []event.Record
	err  error
}

func (s *recordingSender) Send(_ context.Context, rec event.Record) error {
	s.sent = append(s.sent, rec)
	return s.err
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, event.Record) error { panic("boom") }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stdin closed") }

func run(t *testing.T, input string, sender Sender, privacy event.PrivacyFilter) Outcome {
	t.Helper()
	return Run(context.Background(), strings.NewReader(input), Options{
		Resolver: fakeResolver{caller.Context{PID: 777, TTY: "/dev/ttys001", TTYSource: caller.SourcePS}},
		Sender:   sender,
		Privacy:  privacy,
	})
}

func TestRun_SessionStart(t *testing.T) {
	sender := &recordingSender{}
	out := run(t, `{"session_id":"abc","hook_event_name":"SessionStart","cwd":"/repo"}`, sender, event.PrivacyFilter{})

	require.True(t, out.Extraction.OK())
	assert.Equal(t, DeliverySent, out.Delivery.State)
	require.Len(t, sender.sent, 1)

	data, err := json.Marshal(sender.sent[0])
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"session_id":"abc","cwd":"/repo","event":"SessionStart","pid":777,"tty":"/dev/ttys001","status":"started"}`,
		string(data))
}

func TestRun_PreToolUseWithInput(t *testing.T) {
	sender := &recordingSender{}
	run(t, `{"session_id":"abc","hook_event_name":"PreToolUse","cwd":"/repo","tool_name":"Edit","tool_input":{"file":"x.py"}}`, sender, event.PrivacyFilter{})

	require.Len(t, sender.sent, 1)
	rec := sender.sent[0]
	assert.Equal(t, event.StatusRunningTool, rec.Status)
	assert.Equal(t, "Edit", rec.Tool)
	assert.JSONEq(t, `{"file":"x.py"}`, string(rec.ToolInput))
}

func TestRun_MalformedInputSendsNothing(t *testing.T) {
	for _, input := range []string{"", "garbage", "[1,2,3]", "null"} {
		sender := &recordingSender{}
		out := run(t, input, sender, event.PrivacyFilter{})

		assert.False(t, out.Extraction.OK(), "input %q", input)
		assert.Equal(t, DeliveryNotAttempted, out.Delivery.State)
		assert.Nil(t, out.Record)
		assert.Empty(t, sender.sent)
	}
}

func TestRun_ReadErrorSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	out := Run(context.Background(), failingReader{}, Options{Sender: sender})
	assert.Error(t, out.Extraction.Err)
	assert.Empty(t, sender.sent)

	out = Run(context.Background(), nil, Options{Sender: sender})
	assert.ErrorIs(t, out.Extraction.Err, event.ErrMalformedPayload)
}

func TestRun_DeliveryFailureIsRecordedNotRaised(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	out := run(t, `{"session_id":"abc","hook_event_name":"Stop","cwd":"/repo"}`, sender, event.PrivacyFilter{})

	assert.Equal(t, DeliveryFailed, out.Delivery.State)
	assert.EqualError(t, out.Delivery.Err, "connection refused")
	require.NotNil(t, out.Record)
	assert.Equal(t, event.StatusIdle, out.Record.Status)
}

func TestRun_RecoversFromPanic(t *testing.T) {
	var out Outcome
	assert.NotPanics(t, func() {
		out = run(t, `{"session_id":"abc","hook_event_name":"Stop"}`, panickingSender{}, event.PrivacyFilter{})
	})
	assert.Equal(t, DeliveryFailed, out.Delivery.State)
	assert.Error(t, out.Delivery.Err)
}

func TestRun_PrivacyBlockedSkipsDelivery(t *testing.T) {
	sender := &recordingSender{}
	out := run(t, `{"session_id":"abc","hook_event_name":"Stop","cwd":"/tmp/secret/repo"}`, sender,
		event.PrivacyFilter{BlockedPaths: []string{"/tmp/secret"}})

	assert.Equal(t, DeliverySkipped, out.Delivery.State)
	assert.Empty(t, sender.sent)
}

func TestRun_PrivacyMasking(t *testing.T) {
	sender := &recordingSender{}
	run(t, `{"session_id":"abc","hook_event_name":"Stop","cwd":"/home/u/repo"}`, sender,
		event.PrivacyFilter{MaskWorkingDirs: true, MaskTTYs: true})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "repo", sender.sent[0].Cwd)
	assert.Empty(t, sender.sent[0].TTY)
	assert.Equal(t, 777, sender.sent[0].PID)
}

func TestRun_SamePayloadTwiceGivesIdenticalRecords(t *testing.T) {
	input := `{"session_id":"abc","hook_event_name":"PostToolUse","cwd":"/repo","tool_name":"Bash"}`
	sender := &recordingSender{}
	run(t, input, sender, event.PrivacyFilter{})
	run(t, input, sender, event.PrivacyFilter{})

	require.Len(t, sender.sent, 2)
	assert.Equal(t, sender.sent[0], sender.sent[1])
}

func TestRun_NoListenerStillCompletes(t *testing.T) {
	dir, err := os.MkdirTemp("", "cg")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	client := transport.NewClient(filepath.Join(dir, "absent.sock"), time.Second)

	start := time.Now()
	out := Run(context.Background(), strings.NewReader(`{"session_id":"abc","hook_event_name":"SessionStart","cwd":"/repo"}`), Options{
		Resolver: fakeResolver{caller.Context{PID: 1}},
		Sender:   client,
	})

	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, DeliveryFailed, out.Delivery.State)
	assert.Error(t, out.Delivery.Err)
}

func TestRun_DeliversToRealListener(t *testing.T) {
	dir, err := os.MkdirTemp("", "cg")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "hook.sock")

	l := transport.NewListener(path, 0o600, nil)
	require.NoError(t, l.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan event.Record, 1)
	go func() { _ = l.Serve(ctx, func(r event.Record) { got <- r }) }()

	out := Run(context.Background(), strings.NewReader(`{"session_id":"xyz","hook_event_name":"Notification","cwd":"/w"}`), Options{
		Resolver: fakeResolver{caller.Context{PID: 55}},
		Sender:   transport.NewClient(path, time.Second),
	})
	require.Equal(t, DeliverySent, out.Delivery.State)

	select {
	case rec := <-got:
		assert.Equal(t, "Notification", rec.Event)
		assert.Equal(t, event.StatusUnknown, rec.Status)
		assert.Equal(t, 55, rec.PID)
	case <-time.After(2 * time.Second):
		t.Fatal("listener received nothing")
	}
}

func TestRun_UnclosedStdinIsBoundedByContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sender := &recordingSender{}
	start := time.Now()
	out := Run(ctx, pr, Options{Resolver: fakeResolver{}, Sender: sender})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, out.Extraction.Err, context.DeadlineExceeded)
	assert.Equal(t, DeliveryNotAttempted, out.Delivery.State)
	assert.Empty(t, sender.sent)
}
