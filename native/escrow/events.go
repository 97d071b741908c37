package escrow

import (
	"encoding/hex"
	"strconv"

	"beautyton/core/types"
)

const (
	EventTypeOrderCreated   = "order.created"
	EventTypeOrderConfirmed = "order.confirmed"
	EventTypeOrderFinalized = "order.finalized"
)

// NewCreatedEvent returns the canonical payload for a newly registered
// order.
func NewCreatedEvent(o *Order) *types.Event {
	return newOrderEvent(EventTypeOrderCreated, o, nil)
}

// NewConfirmedEvent returns the payload emitted after one party records
// its attendance claim.
func NewConfirmedEvent(o *Order, sender [20]byte) *types.Event {
	evt := newOrderEvent(EventTypeOrderConfirmed, o, nil)
	evt.Attributes["sender"] = hex.EncodeToString(sender[:])
	return evt
}

// NewFinalizedEvent returns the payload emitted exactly once per order,
// carrying the settlement split alongside the order fields.
func NewFinalizedEvent(o *Order, p Payout) *types.Event {
	extra := map[string]string{
		"outcome":        Outcome(o.ClientClaimsAbsent, o.MasterClaimsAbsent),
		"clientAmount":   p.Client.String(),
		"masterAmount":   p.Master.String(),
		"platformAmount": p.Platform.String(),
	}
	return newOrderEvent(EventTypeOrderFinalized, o, extra)
}

func newOrderEvent(eventType string, o *Order, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if o == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeOrder(o)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["orderId"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["client"] = hex.EncodeToString(sanitized.Client[:])
	attrs["master"] = hex.EncodeToString(sanitized.Master[:])
	attrs["amount"] = sanitized.Amount.String()
	attrs["status"] = sanitized.Status().String()
	attrs["createdAt"] = strconv.FormatUint(sanitized.CreatedAt, 10)
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
