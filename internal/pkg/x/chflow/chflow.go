// Package chflow provides context-aware helpers for receiving from and
// sending to Go channels. It helps ensure that operations respect
// cancellation and deadlines via context.Context.
package chflow

import (
	"context"
	"time"
)

// Receive waits to receive a value from the provided channel or for the context to be canceled.
// It returns the value (zero value if canceled) and a boolean indicating if the receive was successful.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// TryReceive receives a value without blocking. It returns the zero value and
// false when the channel is empty or closed and drained.
func TryReceive[T any](ch <-chan T) (T, bool) {
	var data T
	select {
	case data, ok := <-ch:
		return data, ok
	default:
		return data, false
	}
}

// Send attempts to send a value to the provided channel unless the context is canceled first.
// It returns true if the send was successful, false if the context was done before sent.
func Send[T any](ctx context.Context, ch chan<- T, data T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- data:
		return true
	}
}

// TrySend sends a value without blocking. It returns false when the channel
// is full, leaving the value to the caller's drop policy.
func TrySend[T any](ch chan<- T, data T) bool {
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

// SendWithin sends a value, giving up after the grace period or on context
// cancellation. It reports whether the value was delivered.
func SendWithin[T any](ctx context.Context, ch chan<- T, data T, grace time.Duration) bool {
	select {
	case ch <- data:
		return true
	default:
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	case ch <- data:
		return true
	}
}
