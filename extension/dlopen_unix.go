//go:build darwin || freebsd || linux

package extension

import (
	"fmt"

	"github.com/ebitengine/purego"
)

type sharedLibrary struct {
	handle uintptr
}

func openShared(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen: %w", err)
	}

	return &sharedLibrary{handle: handle}, nil
}

func (s *sharedLibrary) Call(symbol string) error {
	fn, err := purego.Dlsym(s.handle, symbol)
	if err != nil {
		return fmt.Errorf("dlsym: %w", err)
	}

	purego.SyscallN(fn)

	return nil
}
