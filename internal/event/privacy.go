package event

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// PrivacyFilter masks identifying fields of a record before it leaves the
// process and can suppress delivery for chosen working directories. The
// zero value is a no-op filter.
type PrivacyFilter struct {
	MaskWorkingDirs bool
	MaskSessionIDs  bool
	MaskPIDs        bool
	MaskTTYs        bool
	AllowedPaths    []string
	BlockedPaths    []string
}

// IsAllowed reports whether a record for the given working directory should
// be sent. An empty working directory is always allowed. When AllowedPaths
// is non-empty the path must match at least one pattern, and it must not
// match any BlockedPaths pattern.
func (f *PrivacyFilter) IsAllowed(cwd string) bool {
	if cwd == "" {
		return true
	}

	if len(f.AllowedPaths) > 0 {
		allowed := false
		for _, pattern := range f.AllowedPaths {
			if matchPathOrParent(pattern, cwd) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, pattern := range f.BlockedPaths {
		if matchPathOrParent(pattern, cwd) {
			return false
		}
	}
	return true
}

// matchPathOrParent checks pattern against path and each of its parents, so
// "/home/user/*" also matches "/home/user/work/project-a".
func matchPathOrParent(pattern, path string) bool {
	for p := path; p != "." && p != "" && p != filepath.Dir(p); p = filepath.Dir(p) {
		if matched, _ := filepath.Match(pattern, p); matched {
			return true
		}
	}
	return false
}

// Apply returns a masked copy of r. r itself is never modified.
func (f *PrivacyFilter) Apply(r Record) Record {
	masked := r

	if f.MaskWorkingDirs && masked.Cwd != "" {
		masked.Cwd = filepath.Base(masked.Cwd)
	}
	if f.MaskSessionIDs && masked.SessionID != "" && masked.SessionID != DefaultSessionID {
		masked.SessionID = shortHash(masked.SessionID)
	}
	if f.MaskPIDs {
		masked.PID = 0
	}
	if f.MaskTTYs {
		masked.TTY = ""
	}
	return masked
}

// IsNoop reports whether the filter neither masks nor filters anything.
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskWorkingDirs && !f.MaskSessionIDs && !f.MaskPIDs && !f.MaskTTYs &&
		len(f.AllowedPaths) == 0 && len(f.BlockedPaths) == 0
}

// shortHash returns a truncated SHA-256 hex digest for an opaque identifier.
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
