package interview

import (
	"strings"

	"github.com/loqalabs/loqa-interview/internal/scoring"
)

// Snapshot is a read-only copy of everything a surface needs to render the session.
type Snapshot struct {
	SessionID        string         `json:"session_id"`
	Phase            Phase          `json:"phase"`
	QuestionIndex    int            `json:"question_index"`
	QuestionCount    int            `json:"question_count"`
	Prompt           string         `json:"prompt,omitempty"`
	Transcript       string         `json:"transcript"`
	RemainingSeconds int            `json:"remaining_seconds"`
	AnswerSeconds    int            `json:"answer_seconds"`
	Recording        bool           `json:"recording"`
	Records          []AnswerRecord `json:"records"`
	Complete         bool           `json:"complete"`
	FinalScore       float64        `json:"final_score"`
	Tier             scoring.Tier   `json:"tier"`
	Feedback         string         `json:"feedback,omitempty"`
	SpeechAvailable  bool           `json:"speech_available"`
	CanAdvance       bool           `json:"can_advance"`
	CaptureError     string         `json:"capture_error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		Phase:            s.Phase(),
		QuestionIndex:    s.index,
		QuestionCount:    s.bank.Len(),
		Transcript:       s.transcript,
		RemainingSeconds: s.remaining,
		AnswerSeconds:    s.answerSeconds,
		Recording:        s.recording,
		Records:          s.Records(),
		Complete:         s.complete,
		SpeechAvailable:  s.capture.Available(),
		CanAdvance:       !s.complete && !s.recording && strings.TrimSpace(s.transcript) != "",
		CaptureError:     s.captureErr,
	}
	if q, ok := s.bank.Question(s.index); ok {
		snap.Prompt = q.Prompt
	}
	if s.complete {
		snap.FinalScore = s.finalScore
		snap.Tier = scoring.Classify(s.finalScore, s.thresholds)
		snap.Feedback = snap.Tier.Message()
	}
	return snap
}
