package stt

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/mattn/go-shellwords"
)

// execCapture runs a streaming recognizer command. The command prints one JSON object per
// line on stdout: {"text": "...", "final": false}.
type execCapture struct {
	cmd       []string
	cfg       config.STTConfig
	available bool
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// maxExecLine bounds a single recognizer output line.
const maxExecLine = 1 << 20

type execLine struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error,omitempty"`
}

func NewExec(cfg config.STTConfig, log *slog.Logger) (Capture, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	logger := log.With(slog.String("component", "stt-exec"))
	_, lookErr := exec.LookPath(args[0])
	if lookErr != nil {
		logger.Warn("stt command not found, speech capture disabled", slog.String("command", args[0]), slogError(lookErr))
	}
	return &execCapture{cmd: args, cfg: cfg, available: lookErr == nil, log: logger}, nil
}

func (c *execCapture) Available() bool { return c.available }

func (c *execCapture) Start(ctx context.Context, h Handler) error {
	if !c.available {
		return ErrUnsupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrActive
	}

	cmdArgs := append([]string{}, c.cmd[1:]...)
	if c.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", c.cfg.Language)
	}
	if c.cfg.PublishInterim {
		cmdArgs = append(cmdArgs, "--partial")
	}

	runCtx, cancel := context.WithCancel(ctx)
	command := exec.CommandContext(runCtx, c.cmd[0], cmdArgs...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	stdout, err := command.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stt stdout pipe: %w", err)
	}
	if err := command.Start(); err != nil {
		cancel()
		return fmt.Errorf("start stt command: %w", err)
	}

	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		var failErr error
		// done closes before the failure is reported so a handler that calls Stop
		// from this goroutine does not wait on itself.
		defer func() {
			close(done)
			if failErr != nil {
				h.fail(failErr)
			}
		}()
		failErr = c.stream(runCtx, cancel, command, stdout, &stderr, h)
	}()
	return nil
}

// stream forwards recognizer lines until the process exits. The returned error is the
// failure to report, nil when the capture ended normally or was stopped.
func (c *execCapture) stream(ctx context.Context, cancel context.CancelFunc, command *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, h Handler) error {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxExecLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg execLine
		if err := json.Unmarshal(line, &msg); err != nil {
			cancel()
			_ = command.Wait()
			return fmt.Errorf("decode stt output: %w", err)
		}
		if msg.Error != "" {
			cancel()
			_ = command.Wait()
			return fmt.Errorf("stt recognizer: %s", msg.Error)
		}
		h.transcript(msg.Text, msg.Final)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		cancel()
		_ = command.Wait()
		return fmt.Errorf("read stt output: %w", err)
	}
	err := command.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}
	return nil
}

// Stop terminates the recognizer process and waits for it to exit.
func (c *execCapture) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
