package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-interview/internal/bus"
	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/loqalabs/loqa-interview/internal/protocol"
	"github.com/nats-io/nats.go"
)

// BusCapture drives a remote recognizer over NATS. Start is a request on
// stt.capture.start; transcripts arrive on the stt.text.* subjects for the session.
type BusCapture struct {
	cfg    config.STTConfig
	bus    *bus.Client
	logger *slog.Logger

	mu        sync.Mutex
	sessionID string
	subs      []*nats.Subscription
}

func NewBus(cfg config.STTConfig, busClient *bus.Client, log *slog.Logger) *BusCapture {
	return &BusCapture{
		cfg:    cfg,
		bus:    busClient,
		logger: log.With(slog.String("component", "stt-bus")),
	}
}

func (c *BusCapture) Available() bool { return c.bus.Healthy() }

func (c *BusCapture) Start(ctx context.Context, h Handler) error {
	if !c.bus.Healthy() {
		return ErrUnsupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != "" {
		return ErrActive
	}

	sessionID := c.cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	subjects := []string{protocol.SubjectTranscriptFinal, protocol.SubjectCaptureError}
	if c.cfg.PublishInterim {
		subjects = append(subjects, protocol.SubjectTranscriptPartial)
	}
	var subs []*nats.Subscription
	for _, subject := range subjects {
		sub, err := c.bus.Conn().Subscribe(subject, c.dispatch(sessionID, h))
		if err != nil {
			unsubscribeAll(subs)
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	timeout := time.Duration(c.cfg.StartTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := protocol.CaptureControl{
		SessionID:  sessionID,
		Language:   c.cfg.Language,
		Continuous: c.cfg.ContinuousInput,
		Interim:    c.cfg.PublishInterim,
		Timestamp:  time.Now().UTC(),
	}
	var ack protocol.CaptureAck
	if err := c.bus.RequestJSON(reqCtx, protocol.SubjectCaptureStart, req, &ack); err != nil {
		unsubscribeAll(subs)
		if errors.Is(err, nats.ErrNoResponders) {
			return fmt.Errorf("no recognizer listening on %s: %w", protocol.SubjectCaptureStart, ErrUnsupported)
		}
		return fmt.Errorf("start remote capture: %w", err)
	}
	if !ack.Accepted {
		unsubscribeAll(subs)
		return fmt.Errorf("remote capture refused: %s", ack.Error)
	}

	c.sessionID = sessionID
	c.subs = subs
	c.logger.Info("remote capture started", slog.String("session_id", sessionID))
	return nil
}

func (c *BusCapture) dispatch(sessionID string, h Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		switch msg.Subject {
		case protocol.SubjectCaptureError:
			var report protocol.CaptureError
			if err := json.Unmarshal(msg.Data, &report); err != nil {
				c.logger.Warn("failed to decode capture error", slogError(err))
				return
			}
			if report.SessionID == sessionID {
				h.fail(errors.New(report.Error))
			}
		default:
			var transcript protocol.Transcript
			if err := json.Unmarshal(msg.Data, &transcript); err != nil {
				c.logger.Warn("failed to decode transcript", slogError(err))
				return
			}
			if transcript.SessionID == sessionID {
				h.transcript(transcript.Text, !transcript.Partial)
			}
		}
	}
}

func (c *BusCapture) Stop() error {
	c.mu.Lock()
	sessionID, subs := c.sessionID, c.subs
	c.sessionID, c.subs = "", nil
	c.mu.Unlock()
	if sessionID == "" {
		return nil
	}
	unsubscribeAll(subs)
	stop := protocol.CaptureControl{SessionID: sessionID, Timestamp: time.Now().UTC()}
	if err := c.bus.PublishJSON(protocol.SubjectCaptureStop, stop); err != nil {
		return fmt.Errorf("publish capture stop: %w", err)
	}
	return nil
}

func unsubscribeAll(subs []*nats.Subscription) {
	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
}
