package extension

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// DefaultEntrySymbol is the entry point exported by the probe extension.
const DefaultEntrySymbol = "hooktarget_entry"

// LibraryName returns the platform file name of a shared library called name.
func LibraryName(goos, name string) string {
	switch goos {
	case "windows":
		return name + ".dll"
	case "darwin":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// ResolveLibrary returns the expected output path for the extension built
// from srcDir.
func ResolveLibrary(srcDir string) string {
	name := filepath.Base(srcDir)

	return filepath.Join(srcDir, LibraryName(runtime.GOOS, name))
}

// Build compiles the Go extension in srcDir as a C shared library and
// returns the library path.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	srcDir string,
	outPath string,
) (string, error) {
	if outPath == "" {
		outPath = ResolveLibrary(srcDir)
	}

	outPath, err := filepath.Abs(outPath)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}

	logger.InfoContext(ctx, "building extension",
		slog.String("source_dir", srcDir),
		slog.String("output", outPath),
	)

	cmd := exec.CommandContext(
		ctx, "go", "build", "-buildmode=c-shared", "-o", outPath, ".",
	)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build extension %s: %w", srcDir, err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf(
			"build extension %s: library not found at %s", srcDir, outPath,
		)
	}

	logger.InfoContext(ctx, "extension built",
		slog.String("library", outPath),
	)

	return outPath, nil
}
