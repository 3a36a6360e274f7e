package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix = "webhook:dedupe:"
	pendingMarker   = "pending"
)

// ErrSubmissionInFlight is returned when an identical submission is still being processed.
var ErrSubmissionInFlight = errors.New("duplicate submission in progress")

// Receipt identifies the records created for a submission.
type Receipt struct {
	LeadID    uuid.UUID `json:"leadId"`
	OrderID   uuid.UUID `json:"orderId"`
	OrderCode string    `json:"orderCode"`
}

// RedisDeduper suppresses repeated submissions of the same phone to the same
// webhook within a window.
type RedisDeduper struct {
	rdb    *redis.Client
	window time.Duration
}

// NewRedisDeduper creates a deduper. A nil client or zero window disables suppression.
func NewRedisDeduper(rdb *redis.Client, window time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, window: window}
}

func dedupeKey(webhookID uuid.UUID, phone string) string {
	return fmt.Sprintf("%s%s:%s", dedupeKeyPrefix, webhookID, phone)
}

// Claim reserves the submission. It returns the earlier receipt when the same
// submission already completed inside the window.
func (d *RedisDeduper) Claim(ctx context.Context, webhookID uuid.UUID, phone string) (*Receipt, error) {
	if d == nil || d.rdb == nil || d.window <= 0 {
		return nil, nil
	}

	key := dedupeKey(webhookID, phone)
	ok, err := d.rdb.SetNX(ctx, key, pendingMarker, d.window).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	value, err := d.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		if ok, err = d.rdb.SetNX(ctx, key, pendingMarker, d.window).Result(); err != nil || ok {
			return nil, err
		}
		return nil, ErrSubmissionInFlight
	}
	if err != nil {
		return nil, err
	}
	if value == pendingMarker {
		return nil, ErrSubmissionInFlight
	}

	var receipt Receipt
	if err := json.Unmarshal([]byte(value), &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Complete stores the receipt under the claimed key, keeping its expiry.
func (d *RedisDeduper) Complete(ctx context.Context, webhookID uuid.UUID, phone string, receipt Receipt) error {
	if d == nil || d.rdb == nil || d.window <= 0 {
		return nil
	}
	payload, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return d.rdb.SetArgs(ctx, dedupeKey(webhookID, phone), payload, redis.SetArgs{KeepTTL: true}).Err()
}

// Release drops a claim whose submission failed.
func (d *RedisDeduper) Release(ctx context.Context, webhookID uuid.UUID, phone string) error {
	if d == nil || d.rdb == nil || d.window <= 0 {
		return nil
	}
	return d.rdb.Del(ctx, dedupeKey(webhookID, phone)).Err()
}
