package stt

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqalabs/loqa-interview/internal/bus"
	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/loqalabs/loqa-interview/internal/natsserver"
	"github.com/loqalabs/loqa-interview/internal/protocol"
	"github.com/nats-io/nats.go"
)

func startBus(t *testing.T) *bus.Client {
	t.Helper()
	cfg := config.BusConfig{Enabled: true, Embedded: true, Host: "127.0.0.1", Port: -1, ConnectTimeout: 2000}
	srv, err := natsserver.Start(cfg, newLogger())
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg.Servers = []string{srv.ClientURL()}
	client, err := bus.Connect(context.Background(), cfg, "stt-test", newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// fakeRecognizer acknowledges start requests and answers with a canned transcript.
func fakeRecognizer(t *testing.T, client *bus.Client, text string, accept bool) <-chan string {
	t.Helper()
	stops := make(chan string, 4)
	_, err := client.Conn().Subscribe(protocol.SubjectCaptureStart, func(msg *nats.Msg) {
		var req protocol.CaptureControl
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		ack, _ := json.Marshal(protocol.CaptureAck{SessionID: req.SessionID, Accepted: accept, Error: "busy"})
		_ = msg.Respond(ack)
		if !accept {
			return
		}
		_ = client.PublishJSON(protocol.SubjectTranscriptPartial, protocol.Transcript{SessionID: "someone-else", Text: "ignored", Partial: true})
		_ = client.PublishJSON(protocol.SubjectTranscriptPartial, protocol.Transcript{SessionID: req.SessionID, Text: "partial", Partial: true})
		_ = client.PublishJSON(protocol.SubjectTranscriptFinal, protocol.Transcript{SessionID: req.SessionID, Text: text})
	})
	if err != nil {
		t.Fatalf("subscribe start: %v", err)
	}
	_, err = client.Conn().Subscribe(protocol.SubjectCaptureStop, func(msg *nats.Msg) {
		var req protocol.CaptureControl
		if err := json.Unmarshal(msg.Data, &req); err == nil {
			stops <- req.SessionID
		}
	})
	if err != nil {
		t.Fatalf("subscribe stop: %v", err)
	}
	return stops
}

func TestBusCaptureRoundTrip(t *testing.T) {
	client := startBus(t)
	stops := fakeRecognizer(t, client, "career growth goals", true)

	c := NewBus(config.STTConfig{Mode: "bus", SessionID: "kiosk-1", PublishInterim: true, StartTimeoutMS: 1000}, client, newLogger())
	if !c.Available() {
		t.Fatal("expected bus capture to be available")
	}
	finals := make(chan string, 1)
	var sawForeign atomic.Bool
	h := Handler{OnTranscript: func(text string, final bool) {
		if text == "ignored" {
			sawForeign.Store(true)
		}
		if final {
			finals <- text
		}
	}}
	if err := c.Start(context.Background(), h); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case got := <-finals:
		if got != "career growth goals" {
			t.Fatalf("unexpected final %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for final transcript")
	}
	if sawForeign.Load() {
		t.Fatal("transcript for another session was delivered")
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case id := <-stops:
		if id != "kiosk-1" {
			t.Fatalf("unexpected stop session %q", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stop control")
	}
}

func TestBusCaptureWithoutRecognizer(t *testing.T) {
	client := startBus(t)
	c := NewBus(config.STTConfig{Mode: "bus", StartTimeoutMS: 500}, client, newLogger())
	err := c.Start(context.Background(), Handler{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported with no responders, got %v", err)
	}
}

func TestBusCaptureRefused(t *testing.T) {
	client := startBus(t)
	fakeRecognizer(t, client, "", false)
	c := NewBus(config.STTConfig{Mode: "bus", StartTimeoutMS: 1000}, client, newLogger())
	if err := c.Start(context.Background(), Handler{}); err == nil {
		t.Fatal("expected refusal error")
	}
	if err := c.Start(context.Background(), Handler{}); errors.Is(err, ErrActive) {
		t.Fatal("refused start must not leave the capture active")
	}
}

func TestBusCaptureErrorReport(t *testing.T) {
	client := startBus(t)
	fakeRecognizer(t, client, "x", true)
	c := NewBus(config.STTConfig{Mode: "bus", SessionID: "s-err", StartTimeoutMS: 1000}, client, newLogger())
	errs := make(chan error, 1)
	if err := c.Start(context.Background(), Handler{OnError: func(err error) { errs <- err }}); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop() })
	if err := client.PublishJSON(protocol.SubjectCaptureError, protocol.CaptureError{SessionID: "s-err", Error: "network"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case err := <-errs:
		if err.Error() != "network" {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for capture error")
	}
}
