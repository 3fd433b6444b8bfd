// Package entries consumes coupon events from Pub/Sub and feeds the raffle
// entry aggregator.
package entries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	entriessvc "github.com/fuelpass/fuelpass-backend/internal/entries"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox"
	"github.com/fuelpass/fuelpass-backend/pkg/outbox/payloads"
)

const entriesConsumerName = "raffle-entries"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer subscribes to coupon events and records raffle entries for
// completed coupons. Other coupon event types are acked without action.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	aggregator   entriessvc.Service
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds the raffle entry consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, aggregator entriessvc.Service, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("coupon subscription is required")
	}
	if aggregator == nil {
		return nil, errors.New("entry aggregator is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		aggregator:   aggregator,
		manager:      manager,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming coupon messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := c.logg.WithFields(ctx, fields)

	eventTypeStr := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOutboxEventType(eventTypeStr)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "event_type", eventTypeStr), "unknown event type")
		return processResult{}
	}
	if eventType != enums.EventCouponCompleted {
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid payload envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = c.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, entriesConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	var payload payloads.CouponCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "invalid coupon completed payload")
		return processResult{}
	}

	if err := c.aggregator.RecordCompletion(logCtx, payload); err != nil {
		if !pkgerrors.IsRetryable(err) {
			// A poisoned message never succeeds; keep the idempotency mark and ack.
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "coupon completion rejected")
			return processResult{}
		}
		c.logg.Error(logCtx, fmt.Sprintf("aggregating coupon %s failed", payload.CouponID), err)
		_ = c.manager.Delete(logCtx, entriesConsumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "coupon completion aggregated")
	return processResult{}
}
