package camera

import (
	"context"
	"log/slog"
	"sync"
)

// View owns at most one preview stream. Failures never propagate past it: they are
// logged and kept as a status line for the surface to show.
type View struct {
	device      Device
	constraints Constraints
	logger      *slog.Logger

	mu     sync.Mutex
	stream Stream
	status string
}

func NewView(device Device, c Constraints, log *slog.Logger) *View {
	return &View{
		device:      device,
		constraints: c,
		logger:      log.With(slog.String("component", "camera")),
	}
}

// Start acquires a stream unless one is already open. It reports whether the view is active.
func (v *View) Start(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stream != nil {
		return true
	}
	s, err := v.device.Acquire(ctx, v.constraints)
	if err != nil {
		v.logger.Warn("camera access failed", slog.String("error", err.Error()))
		v.status = "Camera unavailable: " + err.Error()
		return false
	}
	v.stream = s
	v.status = ""
	v.logger.Info("camera preview started",
		slog.String("stream_id", s.ID()),
		slog.Int("width", v.constraints.Width),
		slog.Int("height", v.constraints.Height))
	return true
}

// Stop releases the open stream, if any.
func (v *View) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releaseLocked()
}

func (v *View) releaseLocked() {
	if v.stream == nil {
		return
	}
	s := v.stream
	v.stream = nil
	if err := v.device.Release(s); err != nil {
		v.logger.Warn("camera release failed", slog.String("stream_id", s.ID()), slog.String("error", err.Error()))
		return
	}
	v.logger.Info("camera preview stopped", slog.String("stream_id", s.ID()))
}

// Toggle flips the preview and reports whether it is now active.
func (v *View) Toggle(ctx context.Context) bool {
	if v.Active() {
		v.Stop()
		return false
	}
	return v.Start(ctx)
}

func (v *View) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream != nil
}

// Status is the last failure message, empty while healthy.
func (v *View) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Close releases the stream on shutdown.
func (v *View) Close() error {
	v.Stop()
	return nil
}
