package runtime

import (
	"context"
	"log/slog"

	"github.com/loqalabs/loqa-interview/internal/interview"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricsObserver turns session events into OTel instruments.
type metricsObserver struct {
	answers         metric.Int64Counter
	answerScore     metric.Float64Histogram
	sessionScore    metric.Float64Histogram
	captureFailures metric.Int64Counter
	logger          *slog.Logger
}

var scoreBuckets = []float64{0, 20, 40, 60, 80, 100}

func newMetricsObserver(meter metric.Meter, logger *slog.Logger) (*metricsObserver, error) {
	answers, err := meter.Int64Counter("interview.answers",
		metric.WithDescription("Answers evaluated, by how they were finalized"))
	if err != nil {
		return nil, err
	}
	answerScore, err := meter.Float64Histogram("interview.answer.score",
		metric.WithDescription("Keyword score per answer"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...))
	if err != nil {
		return nil, err
	}
	sessionScore, err := meter.Float64Histogram("interview.session.score",
		metric.WithDescription("Final score per completed session"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("interview.capture.failures",
		metric.WithDescription("Speech capture errors during recording"))
	if err != nil {
		return nil, err
	}
	return &metricsObserver{
		answers:         answers,
		answerScore:     answerScore,
		sessionScore:    sessionScore,
		captureFailures: failures,
		logger:          logger,
	}, nil
}

func (m *metricsObserver) OnEvent(e interview.Event) {
	ctx := context.Background()
	switch e.Kind {
	case interview.EventAnswerEvaluated:
		if e.Record == nil {
			return
		}
		attrs := metric.WithAttributes(attribute.String("reason", string(e.Record.Reason)))
		m.answers.Add(ctx, 1, attrs)
		m.answerScore.Record(ctx, e.Record.Score, attrs)
	case interview.EventSessionCompleted:
		m.sessionScore.Record(ctx, e.FinalScore, metric.WithAttributes(attribute.String("tier", e.Tier.String())))
	case interview.EventCaptureFailed:
		m.captureFailures.Add(ctx, 1)
	}
}
