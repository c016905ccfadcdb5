package interview

import "github.com/loqalabs/loqa-interview/internal/scoring"

type EventKind string

const (
	EventSessionStarted   EventKind = "session_started"
	EventRecordingStarted EventKind = "recording_started"
	EventTranscript       EventKind = "transcript"
	EventAnswerEvaluated  EventKind = "answer_evaluated"
	EventQuestionAdvanced EventKind = "question_advanced"
	EventCaptureFailed    EventKind = "capture_failed"
	EventSessionCompleted EventKind = "session_completed"
)

// Event describes one session transition. Fields not relevant to Kind are zero.
type Event struct {
	Kind             EventKind
	SessionID        string
	Attempt          uint64
	QuestionIndex    int
	QuestionCount    int
	Prompt           string
	Transcript       string
	Final            bool
	Record           *AnswerRecord
	FinalScore       float64
	Tier             scoring.Tier
	RemainingSeconds int
	Err              error
}

// Observer is notified synchronously on the session's goroutine.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
