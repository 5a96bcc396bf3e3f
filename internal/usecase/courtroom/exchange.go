package courtroom

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/tracer"
)

// TurnObserver is told about each turn as soon as it is produced, along with
// the context the speaker was given. Returning an error stops the exchange.
type TurnObserver func(ctx context.Context, turn domain.Turn, input string) error

// ExchangeOption adjusts a single exchange run.
type ExchangeOption func(*exchangeOptions)

type exchangeOptions struct {
	observer TurnObserver
}

// WithTurnObserver registers fn for every produced turn.
func WithTurnObserver(fn TurnObserver) ExchangeOption {
	return func(o *exchangeOptions) { o.observer = fn }
}

// Orchestrator drives a sequential exchange over a roster. It performs no
// role mapping: speaking-order entries are roster keys.
type Orchestrator struct {
	logger *slog.Logger
}

func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger}
}

// Run feeds scenario to each speaker in order. Each speaker sees the
// scenario plus every earlier turn rendered as "\n\n<name>: <message>".
// Keys missing from roster are skipped. On failure the turns produced so
// far are returned together with the error.
func (o *Orchestrator) Run(ctx context.Context, roster Roster, scenario string, speakingOrder []string, opts ...ExchangeOption) ([]domain.Turn, error) {
	var eo exchangeOptions
	for _, fn := range opts {
		fn(&eo)
	}

	ctx, span := tracer.StartSpan(ctx, "courtroom.exchange",
		trace.WithAttributes(tracer.IntAttr("exchange.speakers", len(speakingOrder))),
	)
	defer span.End()

	turns := make([]domain.Turn, 0, len(speakingOrder))
	current := scenario

	for _, key := range speakingOrder {
		agent, ok := roster[key]
		if !ok || agent == nil {
			o.logger.Debug("speaker not in roster, skipping", "speaker", key)
			continue
		}

		resp, err := agent.Process(ctx, current)
		if err != nil {
			err = fmt.Errorf("exchange turn %d (%s): %w", len(turns)+1, key, err)
			tracer.RecordError(span, err)
			return turns, err
		}

		turn := domain.Turn{
			Speaker: key,
			Name:    agent.Name(),
			Role:    agent.Role(),
			Message: resp.Message,
		}
		turns = append(turns, turn)

		if eo.observer != nil {
			if err := eo.observer(ctx, turn, current); err != nil {
				err = fmt.Errorf("exchange observer (%s): %w", key, err)
				tracer.RecordError(span, err)
				return turns, err
			}
		}

		current = current + "\n\n" + agent.Name() + ": " + resp.Message
	}

	span.SetAttributes(tracer.IntAttr("exchange.turns", len(turns)))
	tracer.SetOK(span)
	o.logger.Info("exchange completed", "requested", len(speakingOrder), "turns", len(turns))
	return turns, nil
}
