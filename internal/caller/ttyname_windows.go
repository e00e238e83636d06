//go:build windows

package caller

import "errors"

func ttyName(fd uintptr) (string, error) {
	return "", errors.New("terminal names are not supported on windows")
}
