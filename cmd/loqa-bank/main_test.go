package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScoreCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"score", "-question", "1", "-text", "I have five years of experience and strong skills in backend systems"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "score: 40.0") || !strings.Contains(out, "matched: experience, skills") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestScoreRejectsOutOfRangeQuestion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"score", "-question", "11"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestValidateAndListCustomBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	data := `name: backend
questions:
  - prompt: Explain a cache you built.
    keywords: [cache, eviction]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"validate", "-file", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("validate exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"backend" valid (1 questions)`) {
		t.Fatalf("unexpected validate output %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"list", "-file", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("list exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "keywords: cache, eviction") {
		t.Fatalf("unexpected list output %q", stdout.String())
	}
}

func TestValidateRejectsBrokenBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte("name: empty\nquestions: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if code := run([]string{"validate", "-file", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 without args, got %d", code)
	}
}
