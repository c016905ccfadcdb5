package protocol

import "time"

// Transcript represents STT output broadcast on the bus. Text is cumulative for the capture.
type Transcript struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Partial    bool      `json:"partial"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
}

// CaptureControl asks a remote recognizer to start or stop listening for a session.
type CaptureControl struct {
	SessionID  string    `json:"session_id"`
	Language   string    `json:"language,omitempty"`
	Continuous bool      `json:"continuous"`
	Interim    bool      `json:"interim"`
	Timestamp  time.Time `json:"timestamp"`
}

// CaptureAck is the reply to a start request.
type CaptureAck struct {
	SessionID string `json:"session_id"`
	Accepted  bool   `json:"accepted"`
	Error     string `json:"error,omitempty"`
}

// CaptureError reports a recognizer failure mid-capture (permission denied, no network).
type CaptureError struct {
	SessionID string    `json:"session_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// InterviewEvent mirrors session state transitions for external surfaces.
type InterviewEvent struct {
	SessionID        string    `json:"session_id"`
	Kind             string    `json:"kind"`
	QuestionIndex    int       `json:"question_index"`
	QuestionCount    int       `json:"question_count"`
	Prompt           string    `json:"prompt,omitempty"`
	Transcript       string    `json:"transcript,omitempty"`
	Score            *float64  `json:"score,omitempty"`
	Matched          []string  `json:"matched,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	FinalScore       *float64  `json:"final_score,omitempty"`
	Feedback         string    `json:"feedback,omitempty"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptPartial = "stt.text.partial"
	SubjectTranscriptFinal   = "stt.text.final"
	SubjectCaptureStart      = "stt.capture.start"
	SubjectCaptureStop       = "stt.capture.stop"
	SubjectCaptureError      = "stt.capture.error"
	SubjectInterviewPrefix   = "interview.session"
)

// InterviewSubject returns the subject an event kind is published on.
func InterviewSubject(kind string) string {
	return SubjectInterviewPrefix + "." + kind
}
