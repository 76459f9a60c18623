package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/redis/go-redis/v9"
)

// RedisBroker shares price updates between several service instances via redis pub/sub.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBroker(rdb *redis.Client, channelPrefix string) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: PriceChannel(channelPrefix)}
}

func PriceChannel(prefix string) string {
	if prefix == "" {
		return "prices"
	}
	return prefix + ":prices"
}

func (b *RedisBroker) Publish(ctx context.Context, update model.PriceUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal price update: %w", err)
	}

	if err = b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		slog.Error(
			"failed to publish price update",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("channel", b.channel),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan model.PriceUpdate, func(), error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	pubsub := b.rdb.Subscribe(ctx, b.channel)
	// ждем подтверждения подписки, иначе первые сообщения могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan model.PriceUpdate, subscriberBuffer)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var update model.PriceUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					slog.Error("can't unmarshal price update", slog.String("rqID", rqID), slog.String("err", err.Error()))
					continue
				}

				select {
				case out <- update:
				default:
					slog.Warn("subscriber channel full, price update dropped", slog.String("rqID", rqID), slog.String("ticker", update.Ticker))
				}
			}
		}
	}()

	return out, cancel, nil
}
