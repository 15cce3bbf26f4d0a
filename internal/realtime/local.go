package realtime

import (
	"context"

	"github.com/saeid-a/CoachSync/internal/observability"
)

const sourceLocal = "local"

// LocalPublisher feeds writes straight into the in-process broker. It serves
// single-instance deployments that run without database triggers.
type LocalPublisher struct {
	broker *Broker
}

func NewLocalPublisher(broker *Broker) *LocalPublisher {
	return &LocalPublisher{broker: broker}
}

func (p *LocalPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	observability.IncFeedEvent(event.Table, sourceLocal)
	return p.broker.Publish(ctx, event)
}
