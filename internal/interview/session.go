package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-interview/internal/questionbank"
	"github.com/loqalabs/loqa-interview/internal/scoring"
	"github.com/loqalabs/loqa-interview/internal/stt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultAnswerSeconds = 59

var (
	ErrSessionComplete   = errors.New("interview session is complete")
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrSpeechUnsupported = errors.New("speech recognition not supported")
	ErrNotRecording      = errors.New("not recording")
	ErrNothingToAdvance  = errors.New("no transcript to submit")
)

// Phase is the resting state of a session. Scoring an answer happens between phases and
// is reported only through EventAnswerEvaluated.
type Phase int

const (
	PhaseAwaitingStart Phase = iota
	PhaseRecording
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseRecording:
		return "recording"
	case PhaseComplete:
		return "complete"
	default:
		return "awaiting_start"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Reason records how an answer was finalized.
type Reason string

const (
	ReasonTimeout Reason = "timeout"
	ReasonStopped Reason = "stopped"
	ReasonManual  Reason = "manual"
)

// AnswerRecord is the scored answer for one question.
type AnswerRecord struct {
	QuestionIndex int      `json:"question_index"`
	Transcript    string   `json:"transcript"`
	Score         float64  `json:"score"`
	Reason        Reason   `json:"reason"`
	Matched       []string `json:"matched"`
}

// Dispatcher runs fn on the goroutine that owns the session.
type Dispatcher func(fn func())

func inline(fn func()) { fn() }

// Session is the interview state machine. It is not safe for concurrent use: every
// method, including adapter callbacks, must run on one goroutine. Driver provides that.
type Session struct {
	bank          *questionbank.Bank
	capture       stt.Capture
	answerSeconds int
	thresholds    scoring.Thresholds
	observers     []Observer
	logger        *slog.Logger
	dispatch      Dispatcher
	ctx           context.Context
	tracer        trace.Tracer

	id          string
	index       int
	records     []AnswerRecord
	remaining   int
	recording   bool
	transcript  string
	attempt     uint64
	captureOpen bool
	complete    bool
	finalScore  float64
	captureErr  string
}

type Option func(*Session)

func WithAnswerSeconds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.answerSeconds = n
		}
	}
}

func WithThresholds(th scoring.Thresholds) Option {
	return func(s *Session) { s.thresholds = th }
}

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.logger = log }
}

func WithDispatcher(d Dispatcher) Option {
	return func(s *Session) { s.dispatch = d }
}

// WithContext bounds the lifetime of speech captures started by the session.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

// NewSession builds a session over bank and begins it.
func NewSession(bank *questionbank.Bank, capture stt.Capture, opts ...Option) *Session {
	if capture == nil {
		capture = stt.Unsupported()
	}
	s := &Session{
		bank:          bank,
		capture:       capture,
		answerSeconds: DefaultAnswerSeconds,
		thresholds:    scoring.DefaultThresholds,
		logger:        slog.Default(),
		dispatch:      inline,
		ctx:           context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/loqalabs/loqa-interview/internal/interview")
	}
	s.logger = s.logger.With(slog.String("component", "interview"))
	s.BeginSession()
	return s
}

// Observe registers an additional observer.
func (s *Session) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// BeginSession discards all progress and starts over at the first question.
func (s *Session) BeginSession() {
	s.releaseCapture()
	s.attempt++
	s.id = uuid.NewString()
	s.index = 0
	s.records = nil
	s.remaining = s.answerSeconds
	s.recording = false
	s.transcript = ""
	s.complete = false
	s.finalScore = 0
	s.captureErr = ""

	s.logger.Info("interview session started",
		slog.String("session_id", s.id),
		slog.String("bank", s.bank.Name()),
		slog.Int("questions", s.bank.Len()))
	s.emit(s.event(EventSessionStarted))
}

// StartRecording starts speech capture for the current question.
func (s *Session) StartRecording() error {
	if s.complete {
		return ErrSessionComplete
	}
	if s.recording {
		return ErrAlreadyRecording
	}
	if !s.capture.Available() {
		return ErrSpeechUnsupported
	}

	s.attempt++
	attempt := s.attempt
	s.recording = true
	s.remaining = s.answerSeconds
	s.transcript = ""
	s.captureErr = ""
	s.captureOpen = true

	h := stt.Handler{
		OnTranscript: func(text string, final bool) {
			s.dispatch(func() { s.handleTranscript(attempt, text, final) })
		},
		OnError: func(err error) {
			s.dispatch(func() { s.handleCaptureError(attempt, err) })
		},
	}
	if err := s.capture.Start(s.ctx, h); err != nil {
		s.attempt++
		s.recording = false
		s.captureOpen = false
		if errors.Is(err, stt.ErrUnsupported) {
			return fmt.Errorf("%w: %v", ErrSpeechUnsupported, err)
		}
		s.logger.Warn("speech capture failed to start", slog.String("error", err.Error()))
		return fmt.Errorf("start speech capture: %w", err)
	}
	if s.attempt != attempt {
		// A synchronous adapter already finished or failed this attempt.
		return nil
	}

	s.logger.Debug("recording started", slog.String("session_id", s.id), slog.Int("question", s.index))
	e := s.event(EventRecordingStarted)
	e.Attempt = attempt
	s.emit(e)
	return nil
}

// Tick advances the countdown by one second. At zero the answer is stopped and
// evaluated; it reports whether that happened.
func (s *Session) Tick() bool {
	if !s.recording {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false
	}
	if _, err := s.stop(ReasonTimeout); err != nil {
		s.logger.Warn("timeout evaluation failed", slog.String("error", err.Error()))
	}
	return true
}

// StopRecording ends capture and evaluates the transcript gathered so far.
func (s *Session) StopRecording() (AnswerRecord, error) {
	if !s.recording {
		return AnswerRecord{}, ErrNotRecording
	}
	return s.stop(ReasonStopped)
}

func (s *Session) stop(reason Reason) (AnswerRecord, error) {
	s.releaseCapture()
	s.recording = false
	s.attempt++
	return s.evaluateAndAdvance(s.transcript, reason)
}

// NextQuestion submits the transcript left after capture stopped without an evaluation.
func (s *Session) NextQuestion() (AnswerRecord, error) {
	if s.complete {
		return AnswerRecord{}, ErrSessionComplete
	}
	if s.recording {
		return AnswerRecord{}, ErrAlreadyRecording
	}
	if strings.TrimSpace(s.transcript) == "" {
		return AnswerRecord{}, ErrNothingToAdvance
	}
	return s.evaluateAndAdvance(s.transcript, ReasonManual)
}

// EvaluateAndAdvance scores transcript against the current question, records it and
// moves to the next question or completes the session.
func (s *Session) EvaluateAndAdvance(transcript string) (AnswerRecord, error) {
	if s.complete {
		return AnswerRecord{}, ErrSessionComplete
	}
	if s.recording {
		return AnswerRecord{}, ErrAlreadyRecording
	}
	return s.evaluateAndAdvance(transcript, ReasonManual)
}

func (s *Session) evaluateAndAdvance(transcript string, reason Reason) (AnswerRecord, error) {
	q, ok := s.bank.Question(s.index)
	if !ok {
		return AnswerRecord{}, ErrSessionComplete
	}
	_, span := s.tracer.Start(s.ctx, "interview.evaluate", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int("question.index", q.Index),
		attribute.String("answer.reason", string(reason)),
	))
	res := scoring.Evaluate(q, transcript)
	span.SetAttributes(
		attribute.Float64("answer.score", res.Score),
		attribute.Int("answer.matched", len(res.Matched)))
	span.End()

	rec := AnswerRecord{
		QuestionIndex: q.Index,
		Transcript:    transcript,
		Score:         res.Score,
		Reason:        reason,
		Matched:       res.Matched,
	}
	s.records = append(s.records, rec)
	s.captureErr = ""

	s.logger.Info("answer evaluated",
		slog.String("session_id", s.id),
		slog.Int("question", q.Index),
		slog.Float64("score", rec.Score),
		slog.String("reason", string(reason)),
		slog.Any("matched", rec.Matched))
	evaluated := s.event(EventAnswerEvaluated)
	evaluated.Transcript = transcript
	evaluated.Record = &rec
	s.emit(evaluated)

	if s.index+1 < s.bank.Len() {
		s.index++
		s.remaining = s.answerSeconds
		s.transcript = ""
		s.emit(s.event(EventQuestionAdvanced))
		return rec, nil
	}

	s.index = s.bank.Len()
	s.complete = true
	s.finalScore = scoring.Mean(s.scores())
	tier := scoring.Classify(s.finalScore, s.thresholds)
	s.logger.Info("interview session complete",
		slog.String("session_id", s.id),
		slog.Float64("final_score", s.finalScore),
		slog.String("tier", tier.String()))
	s.emit(s.event(EventSessionCompleted))
	return rec, nil
}

// HandleTranscript applies a cumulative transcript from the active capture.
func (s *Session) HandleTranscript(text string, final bool) {
	s.handleTranscript(s.attempt, text, final)
}

func (s *Session) handleTranscript(attempt uint64, text string, final bool) {
	if !s.recording || attempt != s.attempt {
		return
	}
	s.transcript = text
	e := s.event(EventTranscript)
	e.Attempt = attempt
	e.Transcript = text
	e.Final = final
	s.emit(e)
}

// HandleCaptureError stops recording after an adapter failure. Nothing is scored; the
// partial transcript stays available for NextQuestion, and StartRecording retries.
func (s *Session) HandleCaptureError(err error) {
	s.handleCaptureError(s.attempt, err)
}

func (s *Session) handleCaptureError(attempt uint64, err error) {
	if !s.recording || attempt != s.attempt {
		return
	}
	s.releaseCapture()
	s.recording = false
	s.attempt++
	if err == nil {
		err = errors.New("speech capture failed")
	}
	s.captureErr = err.Error()
	s.logger.Warn("speech capture error",
		slog.String("session_id", s.id),
		slog.Int("question", s.index),
		slog.String("error", s.captureErr))
	e := s.event(EventCaptureFailed)
	e.Err = err
	e.Transcript = s.transcript
	s.emit(e)
}

// Close releases the speech adapter. The session stays readable.
func (s *Session) Close() {
	s.releaseCapture()
	if s.recording {
		s.recording = false
		s.attempt++
	}
}

func (s *Session) releaseCapture() {
	if !s.captureOpen {
		return
	}
	s.captureOpen = false
	if err := s.capture.Stop(); err != nil {
		s.logger.Warn("speech capture stop failed", slog.String("error", err.Error()))
	}
}

// FinalScore is the mean of all answer scores once the session is complete.
func (s *Session) FinalScore() (float64, bool) {
	return s.finalScore, s.complete
}

func (s *Session) Records() []AnswerRecord {
	return append([]AnswerRecord(nil), s.records...)
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase {
	switch {
	case s.complete:
		return PhaseComplete
	case s.recording:
		return PhaseRecording
	default:
		return PhaseAwaitingStart
	}
}

// Transcript is the live transcript of the current question.
func (s *Session) Transcript() string { return s.transcript }

func (s *Session) RemainingSeconds() int { return s.remaining }

func (s *Session) Recording() bool { return s.recording }

func (s *Session) scores() []float64 {
	out := make([]float64, len(s.records))
	for i, r := range s.records {
		out[i] = r.Score
	}
	return out
}

func (s *Session) event(kind EventKind) Event {
	e := Event{
		Kind:             kind,
		SessionID:        s.id,
		QuestionIndex:    s.index,
		QuestionCount:    s.bank.Len(),
		RemainingSeconds: s.remaining,
	}
	if q, ok := s.bank.Question(s.index); ok {
		e.Prompt = q.Prompt
	}
	if s.complete {
		e.FinalScore = s.finalScore
		e.Tier = scoring.Classify(s.finalScore, s.thresholds)
	}
	return e
}

func (s *Session) emit(e Event) {
	for _, o := range s.observers {
		o.OnEvent(e)
	}
}
