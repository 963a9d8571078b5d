package service

import (
	"context"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/rs/zerolog"
)

// publishEvent is fire-and-forget: a lost notification never affects settlement.
func publishEvent(ctx context.Context, events ports.EventPublisher, log zerolog.Logger, eventType domain.EventType, txn *domain.Transaction) {
	if err := events.Publish(ctx, domain.NewTransactionEvent(eventType, txn)); err != nil {
		log.Warn().Err(err).Str("reference", txn.Reference).Str("event", string(eventType)).Msg("failed to publish transaction event")
	}
}
