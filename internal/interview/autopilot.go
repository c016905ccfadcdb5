package interview

import (
	"errors"
	"log/slog"
	"sync"
)

// Autopilot answers every question without a human: it starts recording whenever the
// session waits for an answer and stops as soon as the recognizer reports a final
// transcript. Anything else is left to the countdown.
type Autopilot struct {
	driver *Driver
	logger *slog.Logger

	once sync.Once
	done chan struct{}
}

// NewAutopilot attaches to d and queues the first recording.
func NewAutopilot(d *Driver, log *slog.Logger) *Autopilot {
	a := &Autopilot{
		driver: d,
		logger: log.With(slog.String("component", "autopilot")),
		done:   make(chan struct{}),
	}
	d.session.Observe(a)
	d.Do(a.record)
	return a
}

// Done is closed when a session completes.
func (a *Autopilot) Done() <-chan struct{} { return a.done }

func (a *Autopilot) OnEvent(e Event) {
	switch e.Kind {
	case EventSessionStarted, EventQuestionAdvanced:
		a.driver.Do(a.record)
	case EventTranscript:
		if !e.Final {
			return
		}
		attempt := e.Attempt
		a.driver.Do(func(s *Session) {
			if !s.recording || s.attempt != attempt {
				return
			}
			if _, err := s.StopRecording(); err != nil {
				a.logger.Warn("stop recording failed", slog.String("error", err.Error()))
			}
		})
	case EventCaptureFailed:
		a.driver.Do(func(s *Session) {
			if s.Phase() != PhaseAwaitingStart {
				return
			}
			// No retries: submit whatever was heard.
			if _, err := s.EvaluateAndAdvance(s.Transcript()); err != nil {
				a.logger.Warn("submit after capture failure failed", slog.String("error", err.Error()))
			}
		})
	case EventSessionCompleted:
		a.once.Do(func() { close(a.done) })
	}
}

func (a *Autopilot) record(s *Session) {
	if s.Phase() != PhaseAwaitingStart {
		return
	}
	err := s.StartRecording()
	switch {
	case err == nil:
	case errors.Is(err, ErrSpeechUnsupported):
		a.logger.Warn("speech capture unavailable, submitting empty answer", slog.Int("question", s.index))
		if _, err := s.EvaluateAndAdvance(""); err != nil {
			a.logger.Warn("submit empty answer failed", slog.String("error", err.Error()))
		}
	default:
		a.logger.Warn("recording did not start, submitting empty answer", slog.String("error", err.Error()))
		if _, err := s.EvaluateAndAdvance(""); err != nil {
			a.logger.Warn("submit empty answer failed", slog.String("error", err.Error()))
		}
	}
}
