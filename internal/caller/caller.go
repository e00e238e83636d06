package caller

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/clawdgotchi/hookbridge/internal/logging"
)

// DefaultTimeout bounds the terminal query for the caller process.
const DefaultTimeout = time.Second

// Source names the step that produced a terminal path.
type Source string

const (
	SourceNone    Source = ""
	SourceProcess Source = "process" // process table lookup of the caller PID
	SourcePS      Source = "ps"      // ps -o tty= for the caller PID
	SourceStdin   Source = "stdin"
	SourceStdout  Source = "stdout"
)

// Context describes who invoked the hook.
type Context struct {
	PID       int
	TTY       string // absolute device path, empty when undeterminable
	TTYSource Source
}

// HasTTY reports whether a terminal was resolved.
func (c Context) HasTTY() bool {
	return c.TTY != ""
}

type terminalLookup func(ctx context.Context, pid int) (string, error)

type stream struct {
	source Source
	file   *os.File
}

// Resolver discovers the caller PID and its controlling terminal. Every
// step is optional; failure at any step just moves on to the next.
type Resolver struct {
	timeout time.Duration
	logger  *slog.Logger

	processTerminal terminalLookup
	psTerminal      terminalLookup
	streams         []stream
	streamTerminal  func(f *os.File) (string, bool)
}

// NewResolver creates a Resolver that inspects the real process table and
// the process's stdin and stdout. A non-positive timeout uses DefaultTimeout.
func NewResolver(timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		timeout:         timeout,
		logger:          logger,
		processTerminal: processTableTerminal,
		psTerminal:      psTerminal,
		streams: []stream{
			{source: SourceStdin, file: os.Stdin},
			{source: SourceStdout, file: os.Stdout},
		},
		streamTerminal: fileTerminal,
	}
}

// Resolve returns the parent process id and, when one can be found, the
// terminal device it runs on.
func (r *Resolver) Resolve(ctx context.Context) Context {
	pid := os.Getppid()
	tty, src := r.ResolveTTY(ctx, pid)
	return Context{PID: pid, TTY: tty, TTYSource: src}
}

// ResolveTTY tries the caller's own terminal first, then stdin and stdout.
// It returns ("", SourceNone) when nothing yields a device path.
func (r *Resolver) ResolveTTY(ctx context.Context, pid int) (string, Source) {
	if pid > 0 {
		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		tty, src := r.queryProcess(qctx, pid)
		cancel()
		if tty != "" {
			return tty, src
		}
	}

	for _, s := range r.streams {
		if s.file == nil {
			continue
		}
		if tty, ok := r.streamTerminal(s.file); ok {
			if norm, ok := normalizeTTY(tty); ok {
				return norm, s.source
			}
		}
	}
	return "", SourceNone
}

// queryProcess asks the process table and falls back to a single ps call.
func (r *Resolver) queryProcess(ctx context.Context, pid int) (string, Source) {
	if r.processTerminal != nil {
		raw, err := r.processTerminal(ctx, pid)
		if err != nil {
			r.logger.Debug("process table terminal lookup failed", "pid", pid, "error", err)
		} else if tty, ok := normalizeTTY(raw); ok {
			return tty, SourceProcess
		}
	}

	if r.psTerminal != nil {
		raw, err := r.psTerminal(ctx, pid)
		if err != nil {
			r.logger.Debug("ps terminal lookup failed", "pid", pid, "error", err)
		} else if tty, ok := normalizeTTY(raw); ok {
			return tty, SourcePS
		}
	}
	return "", SourceNone
}
