// Package lineid generates synthetic line item ids for carts.
//
// Server-assigned line item ids are always positive. Synthetic ids are
// always negative, so an optimistic or guest line can never be confused
// with a persisted one.
package lineid

import (
	"sync/atomic"
	"time"
)

// Generator yields unique negative ids.
type Generator interface {
	Next() int64
}

// Counter is a monotonic, goroutine-safe generator counting down from a
// negative start value.
type Counter struct {
	next atomic.Int64
}

// NewCounter returns a Counter whose first id is start. A non-negative
// start is moved to -1.
func NewCounter(start int64) *Counter {
	if start >= 0 {
		start = -1
	}
	c := &Counter{}
	c.next.Store(start)
	return c
}

// NewSession returns a Counter offset by the current time so ids from
// separate processes writing to the same persisted cart do not collide.
func NewSession() *Counter {
	return NewCounter(-time.Now().UnixMilli())
}

// Next returns the current id and moves the counter down by one.
func (c *Counter) Next() int64 {
	return c.next.Add(-1) + 1
}

// Synthetic reports whether id belongs to the synthetic id space.
func Synthetic(id int64) bool {
	return id < 0
}
