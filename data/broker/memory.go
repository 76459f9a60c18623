package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
)

type MemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[chan model.PriceUpdate]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subscribers: make(map[chan model.PriceUpdate]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, update model.PriceUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			slog.Warn(
				"subscriber channel full, price update dropped",
				slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
				slog.String("ticker", update.Ticker),
			)
		}
	}
	return nil
}

// Subscribe registers a subscriber until unsubscribe is called or ctx is done.
func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan model.PriceUpdate, func(), error) {
	ch := make(chan model.PriceUpdate, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	total := len(b.subscribers)
	b.mu.Unlock()

	slog.Debug("new price subscriber", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int("total", total))

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subscribers, ch)
			close(ch)
			b.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	return ch, unsubscribe, nil
}

func (b *MemoryBroker) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
