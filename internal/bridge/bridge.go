package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/clawdgotchi/hookbridge/internal/caller"
	"github.com/clawdgotchi/hookbridge/internal/event"
	"github.com/clawdgotchi/hookbridge/internal/logging"
)

// MaxPayloadBytes caps how much of stdin is read.
const MaxPayloadBytes = 16 << 20

// Resolver yields the invocation context.
type Resolver interface {
	Resolve(ctx context.Context) caller.Context
}

// Sender delivers one record.
type Sender interface {
	Send(ctx context.Context, rec event.Record) error
}

// ExtractionResult is the outcome of reading and classifying stdin.
type ExtractionResult struct {
	Extraction event.Extraction
	Err        error
}

func (r ExtractionResult) OK() bool { return r.Err == nil }

// DeliveryState says what happened to the record.
type DeliveryState string

const (
	DeliveryNotAttempted DeliveryState = "not_attempted"
	DeliverySent         DeliveryState = "sent"
	DeliverySkipped      DeliveryState = "skipped" // blocked by the privacy filter
	DeliveryFailed       DeliveryState = "failed"
)

// DeliveryResult is the outcome of the send stage.
type DeliveryResult struct {
	State DeliveryState
	Err   error
}

// Outcome collects every stage result of one invocation. It exists for
// logging and tests; nothing in it is reported to the host.
type Outcome struct {
	Extraction ExtractionResult
	Context    caller.Context
	Record     *event.Record
	Delivery   DeliveryResult
}

type Options struct {
	Resolver Resolver
	Sender   Sender
	Privacy  event.PrivacyFilter
	Logger   *slog.Logger
}

// Run handles one hook invocation: read the payload, resolve the caller,
// build the record and try to deliver it. It never returns an error and
// recovers from panics in any stage.
func Run(ctx context.Context, stdin io.Reader, opts Options) (out Outcome) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	out.Delivery.State = DeliveryNotAttempted

	defer func() {
		if r := recover(); r != nil {
			out.Delivery = DeliveryResult{State: DeliveryFailed, Err: fmt.Errorf("panic: %v", r)}
			logger.Error("hook bridge panicked", "panic", r)
		}
	}()

	out.Extraction = extract(ctx, stdin)
	if !out.Extraction.OK() {
		logger.Debug("dropping hook event", "stage", "extract", "error", out.Extraction.Err)
		return out
	}
	x := out.Extraction.Extraction
	logger.Debug("extracted hook event",
		"event", x.Event,
		"known", event.Kind(x.Event).Known(),
		"status", x.Status,
		"session_id", x.SessionID,
	)

	if !opts.Privacy.IsAllowed(x.Cwd) {
		out.Delivery.State = DeliverySkipped
		logger.Debug("working directory blocked by privacy filter", "cwd", x.Cwd)
		return out
	}

	if opts.Resolver != nil {
		out.Context = opts.Resolver.Resolve(ctx)
	}
	if out.Context.HasTTY() {
		logger.Debug("resolved caller", "pid", out.Context.PID, "tty", out.Context.TTY, "source", out.Context.TTYSource)
	} else {
		logger.Debug("resolved caller without a terminal", "pid", out.Context.PID)
	}

	rec := event.NewRecord(x, out.Context.PID, out.Context.TTY)
	if !opts.Privacy.IsNoop() {
		rec = opts.Privacy.Apply(rec)
	}
	out.Record = &rec

	if opts.Sender == nil {
		return out
	}
	if err := opts.Sender.Send(ctx, rec); err != nil {
		out.Delivery = DeliveryResult{State: DeliveryFailed, Err: err}
		logger.Debug("hook event not delivered", "error", err)
		return out
	}
	out.Delivery.State = DeliverySent
	return out
}

func extract(ctx context.Context, stdin io.Reader) ExtractionResult {
	if stdin == nil {
		return ExtractionResult{Err: fmt.Errorf("%w: no input", event.ErrMalformedPayload)}
	}
	data, err := readPayload(ctx, stdin)
	if err != nil {
		return ExtractionResult{Err: fmt.Errorf("read stdin: %w", err)}
	}
	p, err := event.ParsePayload(data)
	if err != nil {
		return ExtractionResult{Err: err}
	}
	return ExtractionResult{Extraction: event.Extract(p)}
}

// readPayload reads stdin until EOF or ctx is done. A host that never closes
// stdin leaves the reader goroutine blocked, which ends with the process.
func readPayload(ctx context.Context, stdin io.Reader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(stdin, MaxPayloadBytes))
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
