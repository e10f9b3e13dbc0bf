package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending  OrderStatus = "PENDING"
	StatusPaid     OrderStatus = "PAID"
	StatusShipped  OrderStatus = "SHIPPED"
	StatusCanceled OrderStatus = "CANCELED"
)

// ParseOrderStatus validates a raw status string coming from the outside
// (HTTP body, cache entry, event payload).
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case StatusPending, StatusPaid, StatusShipped, StatusCanceled:
		return s, nil
	default:
		return "", InvalidData("unknown order status " + raw)
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusShipped || s == StatusCanceled
}

// CanTransitionTo encodes the allowed lifecycle moves:
// PENDING -> PAID -> SHIPPED, and CANCELED from PENDING or PAID.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusPaid || next == StatusCanceled
	case StatusPaid:
		return next == StatusShipped || next == StatusCanceled
	default:
		return false
	}
}

// Order is the domain record. Items is an opaque payload supplied by the
// creator and never interpreted here. Version backs the compare-and-swap
// guard on status updates.
type Order struct {
	ID        string         `json:"id"`
	CreatorID string         `json:"creator_id"`
	Items     map[string]any `json:"items"`
	Status    OrderStatus    `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	Version   int64          `json:"version"`
}

// NewID yields a globally unique, lexicographically sortable id. Both
// orders and users use it.
func NewID() string {
	return ulid.Make().String()
}
