package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weiihann/hooktarget/config"
	"github.com/weiihann/hooktarget/extension"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Equivalent of t.Chdir (Go 1.24+) for the Go 1.21 toolchain.
	prev, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatalf("getwd: %v", wdErr)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })

	var out bytes.Buffer

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(logger, streams{in: strings.NewReader(stdin), out: &out})
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRunOnce(t *testing.T) {
	out, err := execute(t, "", "run", "--workloads=target,nested")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, want := range []string{"[*] Started target", "Hello from Target object!", "outer.inner"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Loading library") {
		t.Error("load attempted without an extension path")
	}
}

func TestRunWaitGate(t *testing.T) {
	out, err := execute(t, "\n", "run", "--wait", "--workloads=anonymous")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	gate := strings.Index(out, "Press [ENTER]")
	payload := strings.Index(out, "Hello, anonymous!")

	if gate < 0 || payload < 0 || gate > payload {
		t.Errorf("gate prompt must precede workload output:\n%s", out)
	}
}

func TestRunMissingExtension(t *testing.T) {
	out, err := execute(t, "", "run", "/nonexistent")
	if !errors.Is(err, extension.ErrNotFound) {
		t.Fatalf("run = %v, want ErrNotFound", err)
	}

	if strings.Contains(out, "Hello") {
		t.Errorf("workload ran after load failure:\n%s", out)
	}
}

func TestRunUnknownMode(t *testing.T) {
	if _, err := execute(t, "", "run", "--mode=sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestBenchMissingPath(t *testing.T) {
	out, err := execute(t, "", "bench", "--quiet")
	if !errors.Is(err, config.ErrMissingRequiredPath) {
		t.Fatalf("bench = %v, want ErrMissingRequiredPath", err)
	}

	if strings.Contains(out, "[CLEAN]") {
		t.Error("clean phase ran without an extension path")
	}
}

func TestBenchNonexistentExtension(t *testing.T) {
	out, err := execute(t, "", "bench", "/nonexistent", "--quiet", "--iterations=10")
	if !errors.Is(err, extension.ErrNotFound) {
		t.Fatalf("bench = %v, want ErrNotFound", err)
	}

	if strings.Contains(out, "[CLEAN]") {
		t.Errorf("workload ran for a missing extension:\n%s", out)
	}
}

func TestBenchInvalidExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libbogus.so")
	if err := os.WriteFile(path, []byte("not a shared object"), 0o644); err != nil {
		t.Fatalf("write extension: %v", err)
	}

	out, err := execute(t, "", "bench", path,
		"--workload=increment", "--iterations=5", "--settle=0",
	)
	if !errors.Is(err, extension.ErrInvalidFormat) {
		t.Fatalf("bench = %v, want ErrInvalidFormat", err)
	}

	if !strings.Contains(out, "[CLEAN]") || !strings.Contains(out, "Loading library...") {
		t.Errorf("expected clean phase and load attempt:\n%s", out)
	}
	if strings.Contains(out, "[HOOKED]") {
		t.Errorf("hooked phase ran after load failure:\n%s", out)
	}
}

func TestBenchUnknownWorkload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libprobe.so")
	if err := os.WriteFile(path, []byte("binary"), 0o644); err != nil {
		t.Fatalf("write extension: %v", err)
	}

	if _, err := execute(t, "", "bench", path, "--workload=missing"); err == nil {
		t.Error("expected error for unknown workload")
	}
}

func TestWorkloadsCmd(t *testing.T) {
	out, err := execute(t, "", "workloads")
	if err != nil {
		t.Fatalf("workloads failed: %v", err)
	}

	for _, want := range []string{"target", "calc", "1000000", "counter"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigInit(t *testing.T) {
	out, err := execute(t, "", "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	if !strings.Contains(out, "[run]") || !strings.Contains(out, "[bench]") {
		t.Errorf("unexpected config output:\n%s", out)
	}
}

func TestHistoryRequiresDB(t *testing.T) {
	if _, err := execute(t, "", "history"); err == nil {
		t.Error("expected error without --db")
	}
}

func TestHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "", "history", "--db", db)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}

	if !strings.Contains(out, "No recorded runs") {
		t.Errorf("output = %q", out)
	}
}
