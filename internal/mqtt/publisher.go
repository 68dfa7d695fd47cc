package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corrlab/corrbuf/internal/correlator"
	"github.com/corrlab/corrbuf/internal/errors"
)

// ResultsTopicSuffix is appended to the base topic for result summaries.
const ResultsTopicSuffix = "/results"

// BaselineSummary is the published form of a baseline.
type BaselineSummary struct {
	A         int     `json:"a"`
	B         int     `json:"b"`
	Magnitude float64 `json:"magnitude"`
	Phase     float64 `json:"phase"`
}

// ResultSummary is the JSON payload published for each result.
type ResultSummary struct {
	Time      time.Time         `json:"time"`
	Channel   int               `json:"channel"`
	Beam      int               `json:"beam"`
	Sequence  uint64            `json:"sequence"`
	Samples   int               `json:"samples"`
	Power     []float64         `json:"power"`
	Baselines []BaselineSummary `json:"baselines"`
}

// Summarize reduces a result to its published form.
func Summarize(r *correlator.Result) ResultSummary {
	s := ResultSummary{
		Time:      r.Time.UTC(),
		Channel:   r.Channel,
		Beam:      r.Beam,
		Sequence:  r.Sequence,
		Samples:   r.Samples,
		Power:     r.Power,
		Baselines: make([]BaselineSummary, len(r.Pairs)),
	}
	for i, p := range r.Pairs {
		s.Baselines[i] = BaselineSummary{A: p.A, B: p.B, Magnitude: p.Magnitude, Phase: p.Phase}
	}
	return s
}

// Publisher is a correlator.Sink that publishes summaries.
type Publisher struct {
	client Client
	topic  string
}

var _ correlator.Sink = (*Publisher)(nil)

// NewPublisher publishes to <baseTopic>/results through client.
func NewPublisher(client Client, baseTopic string) *Publisher {
	return &Publisher{client: client, topic: baseTopic + ResultsTopicSuffix}
}

// Topic is the topic results are published to.
func (p *Publisher) Topic() string { return p.topic }

// Name implements correlator.Sink.
func (p *Publisher) Name() string { return "mqtt" }

// Consume implements correlator.Sink. Results are skipped while the
// broker is unreachable.
func (p *Publisher) Consume(ctx context.Context, r correlator.Result) error {
	if !p.client.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(Summarize(&r))
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_result").
			Build()
	}
	return p.client.Publish(ctx, p.topic, payload)
}
