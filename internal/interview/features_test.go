package interview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/loqalabs/loqa-interview/internal/questionbank"
	"github.com/loqalabs/loqa-interview/internal/stt"
)

// TestInterviewScenarios runs the session feature scenarios.
func TestInterviewScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "interview",
		ScenarioInitializer: InitializeInterviewScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeInterviewScenario wires steps for session scenarios.
func InitializeInterviewScenario(ctx *godog.ScenarioContext) {
	state := &interviewScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		if state.session != nil {
			state.session.Close()
		}
		return ctx, nil
	})

	ctx.Step(`^the built-in question bank$`, state.givenBuiltInBank)
	ctx.Step(`^speech recognition is not supported$`, state.givenNoSpeech)
	ctx.Step(`^I record the answer "([^"]*)"$`, state.whenIRecordAnswer)
	ctx.Step(`^I record empty answers for every question$`, state.whenIRecordEmptyAnswers)
	ctx.Step(`^I answer every question with all of its keywords$`, state.whenIAnswerWithAllKeywords)
	ctx.Step(`^I start recording$`, state.whenIStartRecording)
	ctx.Step(`^I try to start recording$`, state.whenITryToStartRecording)
	ctx.Step(`^I say "([^"]*)"$`, state.whenISay)
	ctx.Step(`^(\d+) seconds pass$`, state.whenSecondsPass)
	ctx.Step(`^the recognizer fails with "([^"]*)"$`, state.whenRecognizerFails)
	ctx.Step(`^I submit the answer manually$`, state.whenISubmitManually)
	ctx.Step(`^the answer to question (\d+) scores ([\d.]+)$`, state.thenAnswerScores)
	ctx.Step(`^the answer to question (\d+) matched "([^"]*)"$`, state.thenAnswerMatched)
	ctx.Step(`^the answer to question (\d+) was finalized by timeout$`, state.thenFinalizedByTimeout)
	ctx.Step(`^the session is on question (\d+)$`, state.thenOnQuestion)
	ctx.Step(`^the session is complete$`, state.thenComplete)
	ctx.Step(`^the final score is ([\d.]+)$`, state.thenFinalScore)
	ctx.Step(`^the feedback is "([^"]*)"$`, state.thenFeedback)
	ctx.Step(`^exactly (\d+) answers? (?:is|are) recorded$`, state.thenRecordCount)
	ctx.Step(`^no answer is recorded$`, state.thenNoRecords)
	ctx.Step(`^recording has stopped$`, state.thenNotRecording)
	ctx.Step(`^recording is refused as unsupported$`, state.thenRefusedUnsupported)
}

type interviewScenarioState struct {
	bank    *questionbank.Bank
	capture *fakeCapture
	session *Session
	lastErr error
}

// reset clears scenario state.
func (s *interviewScenarioState) reset() {
	s.bank = nil
	s.capture = nil
	s.session = nil
	s.lastErr = nil
}

func (s *interviewScenarioState) newSession(capture stt.Capture) {
	if s.session != nil {
		s.session.Close()
	}
	s.session = NewSession(s.bank, capture, WithLogger(newLogger()))
}

// givenBuiltInBank starts a session over the default bank with a controllable recognizer.
func (s *interviewScenarioState) givenBuiltInBank() error {
	s.bank = questionbank.Default()
	s.capture = &fakeCapture{available: true}
	s.newSession(s.capture)
	return nil
}

// givenNoSpeech swaps in the unsupported recognizer.
func (s *interviewScenarioState) givenNoSpeech() error {
	s.capture = nil
	s.newSession(stt.Unsupported())
	return nil
}

func (s *interviewScenarioState) answer(text string) error {
	if err := s.session.StartRecording(); err != nil {
		return err
	}
	if text != "" {
		s.capture.say(text, true)
	}
	_, err := s.session.StopRecording()
	return err
}

func (s *interviewScenarioState) whenIRecordAnswer(text string) error {
	return s.answer(text)
}

func (s *interviewScenarioState) whenIRecordEmptyAnswers() error {
	for i := 0; i < s.bank.Len(); i++ {
		if err := s.answer(""); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *interviewScenarioState) whenIAnswerWithAllKeywords() error {
	for _, q := range s.bank.All() {
		if err := s.answer(strings.Join(q.Keywords, " ")); err != nil {
			return fmt.Errorf("question %d: %w", q.Index+1, err)
		}
	}
	return nil
}

func (s *interviewScenarioState) whenIStartRecording() error {
	return s.session.StartRecording()
}

func (s *interviewScenarioState) whenITryToStartRecording() error {
	s.lastErr = s.session.StartRecording()
	return nil
}

func (s *interviewScenarioState) whenISay(text string) error {
	if s.capture == nil || !s.capture.active {
		return fmt.Errorf("no active capture")
	}
	s.capture.say(text, false)
	return nil
}

func (s *interviewScenarioState) whenSecondsPass(n int) error {
	for i := 0; i < n; i++ {
		s.session.Tick()
	}
	return nil
}

func (s *interviewScenarioState) whenRecognizerFails(msg string) error {
	if s.capture == nil || !s.capture.active {
		return fmt.Errorf("no active capture")
	}
	s.capture.fail(errors.New(msg))
	return nil
}

func (s *interviewScenarioState) whenISubmitManually() error {
	_, err := s.session.NextQuestion()
	return err
}

func (s *interviewScenarioState) record(number int) (AnswerRecord, error) {
	recs := s.session.Records()
	if number < 1 || number > len(recs) {
		return AnswerRecord{}, fmt.Errorf("no answer recorded for question %d (have %d)", number, len(recs))
	}
	return recs[number-1], nil
}

func (s *interviewScenarioState) thenAnswerScores(number int, want float64) error {
	rec, err := s.record(number)
	if err != nil {
		return err
	}
	if math.Abs(rec.Score-want) > 1e-9 {
		return fmt.Errorf("expected score %.1f, got %.1f", want, rec.Score)
	}
	return nil
}

func (s *interviewScenarioState) thenAnswerMatched(number int, list string) error {
	rec, err := s.record(number)
	if err != nil {
		return err
	}
	if got := strings.Join(rec.Matched, ", "); got != list {
		return fmt.Errorf("expected matched %q, got %q", list, got)
	}
	return nil
}

func (s *interviewScenarioState) thenFinalizedByTimeout(number int) error {
	rec, err := s.record(number)
	if err != nil {
		return err
	}
	if rec.Reason != ReasonTimeout {
		return fmt.Errorf("expected timeout, got %s", rec.Reason)
	}
	return nil
}

func (s *interviewScenarioState) thenOnQuestion(number int) error {
	if got := s.session.Snapshot().QuestionIndex + 1; got != number {
		return fmt.Errorf("expected question %d, got %d", number, got)
	}
	return nil
}

func (s *interviewScenarioState) thenComplete() error {
	if s.session.Phase() != PhaseComplete {
		return fmt.Errorf("expected complete session, phase is %s", s.session.Phase())
	}
	return nil
}

func (s *interviewScenarioState) thenFinalScore(want float64) error {
	got, done := s.session.FinalScore()
	if !done {
		return fmt.Errorf("session is not complete")
	}
	if math.Abs(got-want) > 1e-9 {
		return fmt.Errorf("expected final score %.1f, got %.1f", want, got)
	}
	return nil
}

func (s *interviewScenarioState) thenFeedback(want string) error {
	if got := s.session.Snapshot().Feedback; got != want {
		return fmt.Errorf("expected feedback %q, got %q", want, got)
	}
	return nil
}

func (s *interviewScenarioState) thenRecordCount(n int) error {
	if got := len(s.session.Records()); got != n {
		return fmt.Errorf("expected %d answers, got %d", n, got)
	}
	return nil
}

func (s *interviewScenarioState) thenNoRecords() error {
	return s.thenRecordCount(0)
}

func (s *interviewScenarioState) thenNotRecording() error {
	if s.session.Recording() {
		return fmt.Errorf("expected recording to be stopped")
	}
	return nil
}

func (s *interviewScenarioState) thenRefusedUnsupported() error {
	if !errors.Is(s.lastErr, ErrSpeechUnsupported) {
		return fmt.Errorf("expected unsupported error, got %v", s.lastErr)
	}
	return nil
}
