package stt

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/loqalabs/loqa-interview/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not available on windows")
	}
	path := filepath.Join(t.TempDir(), "recognizer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecStreamsTranscripts(t *testing.T) {
	script := writeScript(t, `echo '{"text":"strong","final":false}'
echo '{"text":"strong skills","final":true}'
`)
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: script}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	if !c.Available() {
		t.Fatal("expected exec capture to be available")
	}
	done := make(chan string, 1)
	h := Handler{OnTranscript: func(text string, final bool) {
		if final {
			done <- text
		}
	}}
	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })

	select {
	case got := <-done:
		if got != "strong skills" {
			t.Fatalf("unexpected final %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transcript")
	}
}

func TestExecReportsFailure(t *testing.T) {
	script := writeScript(t, "echo 'microphone denied' >&2\nexit 3\n")
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: script}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	errs := make(chan error, 1)
	if err := c.Start(context.Background(), Handler{OnError: func(err error) { errs <- err }}); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for failure")
	}
}

func TestExecStopFromErrorHandler(t *testing.T) {
	script := writeScript(t, "exit 3\n")
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: script}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	stopped := make(chan error, 1)
	h := Handler{OnError: func(error) { stopped <- c.Stop() }}
	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stop inside the error handler did not return")
	}
	if err := c.Start(context.Background(), Handler{}); err != nil {
		t.Fatalf("expected capture to be reusable after stop, got %v", err)
	}
	_ = c.Stop()
}

func TestExecReportsOversizedLine(t *testing.T) {
	script := writeScript(t, "head -c 1100000 /dev/zero | tr '\\0' a\necho\nexec sleep 30\n")
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: script}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	errs := make(chan error, 1)
	if err := c.Start(context.Background(), Handler{OnError: func(err error) { errs <- err }}); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })

	select {
	case err := <-errs:
		if !errors.Is(err, bufio.ErrTooLong) {
			t.Fatalf("expected ErrTooLong, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("oversized line was not reported")
	}
}

func TestExecStopKillsLongRunningRecognizer(t *testing.T) {
	script := writeScript(t, "echo '{\"text\":\"hello\"}'\nexec sleep 30\n")
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: script}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	errs := make(chan error, 1)
	if err := c.Start(context.Background(), Handler{OnError: func(err error) { errs <- err }}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(context.Background(), Handler{}); !errors.Is(err, ErrActive) {
		t.Fatalf("expected ErrActive, got %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		_ = c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
	select {
	case err := <-errs:
		t.Fatalf("stop must not surface as capture error, got %v", err)
	default:
	}
}

func TestExecMissingBinaryIsUnavailable(t *testing.T) {
	c, err := NewExec(config.STTConfig{Mode: "exec", Command: "loqa-no-such-recognizer --fast"}, newLogger())
	if err != nil {
		t.Fatalf("new exec: %v", err)
	}
	if c.Available() {
		t.Fatal("expected missing binary to be unavailable")
	}
	if err := c.Start(context.Background(), Handler{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestExecRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExec(config.STTConfig{Mode: "exec", Command: "  "}, newLogger()); err == nil {
		t.Fatal("expected error for empty command")
	}
}
