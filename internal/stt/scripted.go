package stt

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Scripted replays one canned answer per Start, word by word. With a zero word interval
// the whole answer is delivered synchronously inside Start.
type Scripted struct {
	mu       sync.Mutex
	script   []string
	next     int
	interval time.Duration
	interim  bool
	active   bool
	handler  Handler
	cancel   context.CancelFunc
	starts   int
}

type ScriptedOption func(*Scripted)

func WithWordInterval(d time.Duration) ScriptedOption {
	return func(s *Scripted) { s.interval = d }
}

func WithInterim(enabled bool) ScriptedOption {
	return func(s *Scripted) { s.interim = enabled }
}

func NewScripted(script []string, opts ...ScriptedOption) *Scripted {
	s := &Scripted{script: append([]string(nil), script...), interim: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scripted) Available() bool { return true }

// Starts reports how many captures have been started.
func (s *Scripted) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Active reports whether a capture is running.
func (s *Scripted) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scripted) Start(ctx context.Context, h Handler) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrActive
	}
	var answer string
	if len(s.script) > 0 {
		answer = s.script[s.next%len(s.script)]
	}
	s.next++
	s.starts++
	s.active = true
	s.handler = h
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	words := strings.Fields(answer)
	if s.interval <= 0 {
		s.replay(runCtx, h, words, func(time.Duration) bool { return runCtx.Err() == nil })
		return nil
	}
	go s.replay(runCtx, h, words, func(d time.Duration) bool {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-runCtx.Done():
			return false
		case <-timer.C:
			return true
		}
	})
	return nil
}

func (s *Scripted) replay(ctx context.Context, h Handler, words []string, wait func(time.Duration) bool) {
	if s.interim {
		for i := range words[:max(len(words)-1, 0)] {
			if !wait(s.interval) {
				return
			}
			h.transcript(strings.Join(words[:i+1], " "), false)
		}
	}
	if !wait(s.interval) || ctx.Err() != nil {
		return
	}
	h.transcript(strings.Join(words, " "), true)
}

// InjectError delivers err to the active handler, as a recognizer would on
// permission loss or a dropped connection.
func (s *Scripted) InjectError(err error) bool {
	s.mu.Lock()
	active, h := s.active, s.handler
	s.mu.Unlock()
	if !active {
		return false
	}
	h.fail(err)
	return true
}

func (s *Scripted) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
	s.handler = Handler{}
	return nil
}
