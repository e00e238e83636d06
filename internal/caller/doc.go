// Package caller resolves the invocation context of a hook: the PID of the
// host process that ran it and that process's controlling terminal.
package caller
