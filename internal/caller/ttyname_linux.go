//go:build linux

package caller

import (
	"fmt"
	"os"
)

// ttyName resolves the device behind fd through /proc/self/fd.
func ttyName(fd uintptr) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/self/fd/%d", fd))
}
