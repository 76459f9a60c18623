// Package broker fans out price-updated events to subscribers.
package broker

import (
	"context"

	"github.com/KotFed0t/stock_ledger/internal/model"
)

const subscriberBuffer = 32

// Broker delivers every published update to all current subscribers.
// A slow subscriber loses updates instead of blocking the publisher.
type Broker interface {
	Publish(ctx context.Context, update model.PriceUpdate) error
	Subscribe(ctx context.Context) (updates <-chan model.PriceUpdate, unsubscribe func(), err error)
}
