package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/mattn/go-shellwords"
)

// ErrUnavailable is returned by Acquire when no camera can be opened.
var ErrUnavailable = errors.New("camera unavailable")

// Constraints are the ideal capture settings; devices may deliver something close to them.
type Constraints struct {
	Width      int
	Height     int
	FacingMode string
}

// DefaultConstraints matches a front-facing 720p preview.
func DefaultConstraints() Constraints {
	return Constraints{Width: 1280, Height: 720, FacingMode: "user"}
}

// Stream is a live video stream. It holds the device until released.
type Stream interface {
	ID() string
	Constraints() Constraints
}

// Device hands out preview streams.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
	Release(s Stream) error
}

// New selects a device from config. A disabled camera behaves like mode=none.
func New(cfg config.CameraConfig, log *slog.Logger) (Device, error) {
	if !cfg.Enabled {
		return Unavailable(), nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMock(), nil
	case "exec":
		return NewExec(cfg.Command, log)
	case "none", "":
		return Unavailable(), nil
	default:
		return nil, fmt.Errorf("unknown camera mode %q", cfg.Mode)
	}
}

type stream struct {
	id string
	c  Constraints
}

func (s *stream) ID() string               { return s.id }
func (s *stream) Constraints() Constraints { return s.c }

// Mock is an in-memory device that tracks open streams.
type Mock struct {
	mu       sync.Mutex
	open     map[string]struct{}
	acquired int
	fail     error
}

func NewMock() *Mock {
	return &Mock{open: make(map[string]struct{})}
}

// FailWith makes subsequent Acquire calls return err, as a denied permission would.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Mock) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	s := &stream{id: uuid.NewString(), c: c}
	m.open[s.id] = struct{}{}
	m.acquired++
	return s, nil
}

func (m *Mock) Release(s Stream) error {
	if s == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.open[s.ID()]; !ok {
		return fmt.Errorf("stream %s is not open", s.ID())
	}
	delete(m.open, s.ID())
	return nil
}

// Open reports how many streams are currently held.
func (m *Mock) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Acquired reports how many streams have been handed out in total.
func (m *Mock) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

type unavailable struct{}

// Unavailable returns the device used when no camera exists.
func Unavailable() Device { return unavailable{} }

func (unavailable) Acquire(context.Context, Constraints) (Stream, error) { return nil, ErrUnavailable }

func (unavailable) Release(Stream) error { return nil }

// execDevice runs a preview command (for example a v4l2 viewer). The process lifetime is the stream.
type execDevice struct {
	cmd []string
	log *slog.Logger

	mu    sync.Mutex
	procs map[string]*execStream
}

type execStream struct {
	stream
	cancel context.CancelFunc
	done   chan struct{}
}

func NewExec(command string, log *slog.Logger) (Device, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse camera command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("camera command is empty")
	}
	return &execDevice{
		cmd:   args,
		log:   log.With(slog.String("component", "camera-exec")),
		procs: make(map[string]*execStream),
	}, nil
}

func (d *execDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if _, err := exec.LookPath(d.cmd[0]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	args := append([]string{}, d.cmd[1:]...)
	args = append(args,
		"--width", strconv.Itoa(c.Width),
		"--height", strconv.Itoa(c.Height),
		"--facing", c.FacingMode)

	// The preview outlives the acquiring call, so it is bound to its own context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	command := exec.CommandContext(runCtx, d.cmd[0], args...)
	if err := command.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start camera command: %w", err)
	}

	s := &execStream{stream: stream{id: uuid.NewString(), c: c}, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		err := command.Wait()
		if runCtx.Err() == nil && err != nil {
			d.log.Warn("camera preview exited", slog.String("stream_id", s.id), slog.String("error", err.Error()))
		}
	}()

	d.mu.Lock()
	d.procs[s.id] = s
	d.mu.Unlock()
	return s, nil
}

func (d *execDevice) Release(s Stream) error {
	if s == nil {
		return nil
	}
	d.mu.Lock()
	proc, ok := d.procs[s.ID()]
	delete(d.procs, s.ID())
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("stream %s is not open", s.ID())
	}
	proc.cancel()
	<-proc.done
	return nil
}
