//go:build !linux && !windows

package caller

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// ttyName finds the /dev entry whose device number matches fd, which is
// what ttyname(3) does on BSD-derived systems.
func ttyName(fd uintptr) (string, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(fd), &st); err != nil {
		return "", err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFCHR {
		return "", errors.New("not a character device")
	}

	for _, dir := range []string{"/dev", "/dev/pts"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if dir == "/dev" && !strings.HasPrefix(name, "tty") && !strings.HasPrefix(name, "pts") {
				continue
			}
			path := filepath.Join(dir, name)
			var dst unix.Stat_t
			if err := unix.Stat(path, &dst); err != nil {
				continue
			}
			if dst.Mode&unix.S_IFMT == unix.S_IFCHR && dst.Rdev == st.Rdev {
				return path, nil
			}
		}
	}
	return "", errors.New("terminal device not found")
}
