// Package notify delivers voucher engine events to external channels.
// Delivery is fire-and-forget: failures are logged and never reach the
// operation that produced the event.
package notify

import (
	"context"
	"errors"
	"time"
)

// EventType names something that happened to a promotion or voucher.
type EventType string

const (
	EventPromotionLaunched EventType = "promotion.launched"
	EventPromotionClaimed  EventType = "promotion.claimed"
	EventPromotionEnded    EventType = "promotion.ended"
	EventVoucherRedeemed   EventType = "voucher.redeemed"
)

// Event is the payload sent to every notifier.
type Event struct {
	Type       EventType  `json:"type"`
	Code       string     `json:"code,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	VoucherID  string     `json:"voucherId,omitempty"`
	Discount   string     `json:"discount,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Notifier delivers a single event synchronously.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(event Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type multi []Notifier

// Multi fans an event out to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
