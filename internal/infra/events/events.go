// Package events delivers drained domain events. The only built-in
// publisher logs each event and feeds the metrics; a message broker could
// implement domain.EventPublisher the same way without touching the domain.
package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/infra/observability"
)

// LogPublisher writes events to the structured log, fire-and-forget.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a publisher writing to the given logger.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "events").Logger()}
}

// Publish logs each event and updates the event metrics.
func (p *LogPublisher) Publish(ctx context.Context, events ...domain.Event) {
	for _, e := range events {
		p.log.Info().
			Str("event", e.EventName()).
			Str("event_id", e.EventID()).
			Time("occurred_at", e.OccurredAt()).
			Msg("domain event")
	}
	observability.ObserveEvents(events...)
}

var _ domain.EventPublisher = (*LogPublisher)(nil)
