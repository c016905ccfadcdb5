package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-interview/internal/bus"
	"github.com/loqalabs/loqa-interview/internal/config"
)

var (
	// ErrUnsupported is returned by Start when no speech backend exists in this environment.
	ErrUnsupported = errors.New("speech capture not supported")
	// ErrActive is returned by Start when a capture is already running.
	ErrActive = errors.New("speech capture already active")
)

// Handler receives capture output. OnTranscript carries the cumulative transcript of the
// current capture; final marks the recognizer's last result for it.
type Handler struct {
	OnTranscript func(text string, final bool)
	OnError      func(err error)
}

func (h Handler) transcript(text string, final bool) {
	if h.OnTranscript != nil {
		h.OnTranscript(text, final)
	}
}

func (h Handler) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Capture abstracts a continuous speech-to-text source with interim results.
type Capture interface {
	// Available reports whether the capability exists at all.
	Available() bool
	Start(ctx context.Context, h Handler) error
	Stop() error
}

// New selects a capture backend from config. busClient may be nil unless mode=bus.
func New(cfg config.STTConfig, busClient *bus.Client, log *slog.Logger) (Capture, error) {
	switch cfg.Mode {
	case "scripted":
		return NewScripted(cfg.Script,
			WithWordInterval(time.Duration(cfg.WordIntervalMS)*time.Millisecond),
			WithInterim(cfg.PublishInterim)), nil
	case "exec":
		return NewExec(cfg, log)
	case "bus":
		if busClient == nil {
			return nil, fmt.Errorf("stt mode bus requires a bus connection")
		}
		return NewBus(cfg, busClient, log), nil
	case "none", "":
		return Unsupported(), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}

type unsupported struct{}

// Unsupported returns the capture used when the environment has no recognizer.
func Unsupported() Capture { return unsupported{} }

func (unsupported) Available() bool { return false }

func (unsupported) Start(context.Context, Handler) error { return ErrUnsupported }

func (unsupported) Stop() error { return nil }

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
