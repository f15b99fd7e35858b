// Package extension loads a native extension (a shared object) into the
// running process. A Loader is the single load point for a process: it loads
// at most one extension, synchronously, and never unloads it.
package extension

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Kind classifies a LoadError.
type Kind int

const (
	// NotFound means the extension path does not exist.
	NotFound Kind = iota + 1
	// InvalidFormat means the path is not a loadable module for this
	// platform, or its entry symbol could not be resolved.
	InvalidFormat
	// AlreadyLoaded means the loader has already loaded an extension.
	AlreadyLoaded
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidFormat:
		return "invalid format"
	case AlreadyLoaded:
		return "already loaded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching against a *LoadError.
var (
	ErrNotFound      = errors.New("extension not found")
	ErrInvalidFormat = errors.New("extension has invalid format")
	ErrAlreadyLoaded = errors.New("extension already loaded")
)

// LoadError reports a failed extension load.
type LoadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load extension %s: %s", e.Path, e.Kind)
	}

	return fmt.Sprintf("load extension %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == NotFound
	case ErrInvalidFormat:
		return e.Kind == InvalidFormat
	case ErrAlreadyLoaded:
		return e.Kind == AlreadyLoaded
	}

	return false
}

// Library is a loaded native module.
type Library interface {
	// Call invokes the exported void(void) function named symbol.
	Call(symbol string) error
}

// Opener loads the native module at path into the process.
type Opener func(path string) (Library, error)

// Handle is a snapshot of the loader state.
type Handle struct {
	Path   string
	Loaded bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEntrySymbol makes Load call the named exported function after the
// module is opened. The call completes before Load returns.
func WithEntrySymbol(symbol string) Option {
	return func(l *Loader) { l.entry = symbol }
}

// WithSettle makes Load wait d after a successful load, for extensions that
// install their hooks from a constructor thread.
func WithSettle(d time.Duration) Option {
	return func(l *Loader) { l.settle = d }
}

// WithOpener replaces the platform dynamic loader.
func WithOpener(open Opener) Option {
	return func(l *Loader) { l.open = open }
}

// Loader is the process-wide extension load point. The loaded flag is
// written once, before any workload dispatch, and only read afterwards.
type Loader struct {
	open   Opener
	entry  string
	settle time.Duration
	logger *slog.Logger

	path   atomic.Pointer[string]
	loaded atomic.Bool
}

// NewLoader creates a Loader backed by the platform dynamic loader.
func NewLoader(logger *slog.Logger, opts ...Option) *Loader {
	l := &Loader{
		open:   openShared,
		logger: logger,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Loaded reports whether an extension has been loaded.
func (l *Loader) Loaded() bool {
	return l.loaded.Load()
}

// Handle returns the current loader state.
func (l *Loader) Handle() Handle {
	h := Handle{Loaded: l.loaded.Load()}
	if p := l.path.Load(); p != nil {
		h.Path = *p
	}

	return h
}

// Check reports whether path names an existing regular file that could be
// passed to Load. It does not open the file.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadError{Kind: NotFound, Path: path}
		}

		return &LoadError{Kind: NotFound, Path: path, Err: err}
	}

	if info.IsDir() {
		return &LoadError{
			Kind: InvalidFormat,
			Path: path,
			Err:  errors.New("is a directory"),
		}
	}

	return nil
}

// Load loads the extension at path. An empty path is a no-op. Load blocks
// until the module is loaded, its entry symbol (if any) has returned and the
// settle delay has elapsed. It is never retried.
func (l *Loader) Load(ctx context.Context, path string) error {
	if path == "" {
		l.logger.DebugContext(ctx, "no extension requested")

		return nil
	}

	if l.loaded.Load() {
		return &LoadError{Kind: AlreadyLoaded, Path: path}
	}

	if err := Check(path); err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "loading extension", slog.String("path", path))

	start := time.Now()

	lib, err := l.open(path)
	if err != nil {
		return &LoadError{Kind: InvalidFormat, Path: path, Err: err}
	}

	l.path.Store(&path)
	l.loaded.Store(true)

	if l.entry != "" {
		if err := lib.Call(l.entry); err != nil {
			return &LoadError{
				Kind: InvalidFormat,
				Path: path,
				Err:  fmt.Errorf("call %s: %w", l.entry, err),
			}
		}
	}

	if l.settle > 0 {
		timer := time.NewTimer(l.settle)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return fmt.Errorf("settle after loading %s: %w", path, ctx.Err())
		case <-timer.C:
		}
	}

	l.logger.InfoContext(ctx, "extension loaded",
		slog.String("path", path),
		slog.Duration("load_time", time.Since(start)),
	)

	return nil
}
