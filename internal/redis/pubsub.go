package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Reversal is published whenever a transaction leaves the active lifecycle
// (rejected, canceled or expired). The identity service consumes it to
// restore the points the buyer spent; a coupon service would consume it the
// same way.
type Reversal struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	EventID       int64     `json:"event_id"`
	PointsUsed    int64     `json:"points_used"`
	VoucherID     *int64    `json:"voucher_id,omitempty"`
	CouponID      *string   `json:"coupon_id,omitempty"`
	TsUnix        int64     `json:"ts_unix"`
}

type PubSub struct {
	rdb *redis.Client
}

func NewPubSub(rdb *redis.Client) *PubSub {
	return &PubSub{rdb: rdb}
}

type eventChangedMsg struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *PubSub) PublishEventChanged(ctx context.Context, eventID int64) error {
	msg := eventChangedMsg{
		Type:    "event_changed",
		EventID: eventID,
		TsUnix:  time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, ChannelEventsChanged(), b).Err()
}

func (p *PubSub) PublishReversal(ctx context.Context, rev Reversal) error {
	rev.TsUnix = time.Now().Unix()

	b, _ := json.Marshal(rev)

	return p.rdb.Publish(ctx, ChannelTransactionsReversed(), b).Err()
}

// SubscribeReversals blocks delivering reversal messages to handler until ctx
// is canceled.
func (p *PubSub) SubscribeReversals(ctx context.Context, handler func(ctx context.Context, rev Reversal)) error {
	sub := p.rdb.Subscribe(ctx, ChannelTransactionsReversed())
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var rev Reversal
			if err := json.Unmarshal([]byte(m.Payload), &rev); err == nil &&
				rev.UserID != 0 {
				handler(ctx, rev)
			}
		}
	}
}
