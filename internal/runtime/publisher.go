package runtime

import (
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-interview/internal/bus"
	"github.com/loqalabs/loqa-interview/internal/interview"
	"github.com/loqalabs/loqa-interview/internal/protocol"
)

// eventPublisher mirrors session events onto interview.session.<kind>.
type eventPublisher struct {
	bus    *bus.Client
	logger *slog.Logger
}

func newEventPublisher(client *bus.Client) *eventPublisher {
	return &eventPublisher{bus: client, logger: client.Logger().With(slog.String("subject_prefix", protocol.SubjectInterviewPrefix))}
}

func (p *eventPublisher) OnEvent(e interview.Event) {
	if e.Kind == interview.EventTranscript && !e.Final {
		return
	}
	msg := toProtocolEvent(e)
	if err := p.bus.PublishJSON(protocol.InterviewSubject(msg.Kind), msg); err != nil {
		p.logger.Warn("failed to publish interview event", slog.String("kind", msg.Kind), slogError(err))
	}
}

func toProtocolEvent(e interview.Event) protocol.InterviewEvent {
	msg := protocol.InterviewEvent{
		SessionID:        e.SessionID,
		Kind:             string(e.Kind),
		QuestionIndex:    e.QuestionIndex,
		QuestionCount:    e.QuestionCount,
		Prompt:           e.Prompt,
		Transcript:       e.Transcript,
		RemainingSeconds: e.RemainingSeconds,
		Timestamp:        time.Now().UTC(),
	}
	if e.Record != nil {
		score := e.Record.Score
		msg.Score = &score
		msg.Matched = e.Record.Matched
		msg.Reason = string(e.Record.Reason)
		msg.QuestionIndex = e.Record.QuestionIndex
	}
	if e.Kind == interview.EventSessionCompleted {
		final := e.FinalScore
		msg.FinalScore = &final
		msg.Feedback = e.Tier.Message()
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
