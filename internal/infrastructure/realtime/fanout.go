package realtime

import (
	"context"

	"rizqara-backend/internal/domain"
)

// Fanout publishes every event to each of its publishers in order.
type Fanout []domain.EventPublisher

func (f Fanout) Publish(ctx context.Context, topic string, payload any) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, topic, payload)
		}
	}
}
