package metrics

import (
	"context"
	"time"

	"github.com/hupe1980/researchmesh/model"
)

// InstrumentedModel records call counts, durations and token usage of the
// wrapped model.
type InstrumentedModel struct {
	model.Model
	metrics *Metrics
}

// InstrumentModel wraps m.
func (m *Metrics) InstrumentModel(inner model.Model) model.Model {
	return &InstrumentedModel{Model: inner, metrics: m}
}

// Generate forwards the wrapped generation and records its outcome once both
// channels are drained.
func (im *InstrumentedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	name := im.Info().Name
	start := time.Now()

	innerResp, innerErr := im.Model.Generate(ctx, req)

	respCh := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		var (
			failed error
			usage  *model.TokenUsage
		)

		defer func() {
			im.record(name, time.Since(start), usage, failed)
		}()

		for innerResp != nil || innerErr != nil {
			select {
			case r, ok := <-innerResp:
				if !ok {
					innerResp = nil
					continue
				}

				if !r.Partial && r.Usage != nil {
					usage = r.Usage
				}

				select {
				case respCh <- r:
				case <-ctx.Done():
					failed = ctx.Err()
					return
				}
			case err, ok := <-innerErr:
				if !ok {
					innerErr = nil
					continue
				}

				if err != nil {
					failed = err
					errCh <- err

					return
				}
			}
		}
	}()

	return respCh, errCh
}

func (im *InstrumentedModel) record(name string, d time.Duration, usage *model.TokenUsage, err error) {
	im.metrics.ModelCalls.WithLabelValues(name, status(err)).Inc()
	im.metrics.ModelDuration.WithLabelValues(name).Observe(d.Seconds())

	if usage != nil {
		im.metrics.ModelTokens.WithLabelValues(name, "prompt").Add(float64(usage.PromptTokens))
		im.metrics.ModelTokens.WithLabelValues(name, "completion").Add(float64(usage.CompletionTokens))
	}
}
