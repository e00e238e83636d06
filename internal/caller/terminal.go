package caller

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/shirou/gopsutil/v3/process"
)

// noTerminal holds the placeholders ps and friends print for a process
// without a controlling terminal.
var noTerminal = map[string]bool{
	"":    true,
	"?":   true,
	"??":  true,
	"-":   true,
	"(?)": true,
}

// normalizeTTY turns "pts/3", "/pts/3", "ttys003" or "/dev/ttys003" into an
// absolute /dev path. The second result is false for no-terminal placeholders.
func normalizeTTY(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if noTerminal[name] {
		return "", false
	}
	switch {
	case strings.HasPrefix(name, "/dev/"):
		return name, true
	case strings.HasPrefix(name, "/"):
		return "/dev" + name, true
	default:
		return "/dev/" + name, true
	}
}

// processTableTerminal reads the terminal of pid from the process table.
// Not every platform implements this; callers fall back to ps.
func processTableTerminal(ctx context.Context, pid int) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return "", err
	}
	return p.TerminalWithContext(ctx)
}

// psTerminal runs `ps -p <pid> -o tty=` and returns its trimmed output.
func psTerminal(ctx context.Context, pid int) (string, error) {
	path, err := exec.LookPath("ps")
	if err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, path, "-p", strconv.Itoa(pid), "-o", "tty=").Output()
	if err != nil {
		return "", fmt.Errorf("ps: %w", err)
	}
	return parsePSTerminal(string(out)), nil
}

// parsePSTerminal takes the first non-empty line of ps output.
func parsePSTerminal(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// fileTerminal returns the device path of f if it is a terminal.
func fileTerminal(f *os.File) (string, bool) {
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", false
	}
	name, err := ttyName(fd)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}
