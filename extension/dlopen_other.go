//go:build !darwin && !freebsd && !linux

package extension

import (
	"fmt"
	"runtime"
)

func openShared(string) (Library, error) {
	return nil, fmt.Errorf("dynamic loading is not supported on %s", runtime.GOOS)
}
