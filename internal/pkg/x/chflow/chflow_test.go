package chflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceive(t *testing.T) {
	t.Run("delivers a value", func(t *testing.T) {
		ch := make(chan int, 1)
		ch <- 42

		v, ok := Receive(context.Background(), ch)
		assert.True(t, ok)
		assert.Equal(t, 42, v)
	})

	t.Run("canceled context returns the zero value", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		v, ok := Receive(ctx, make(chan int))
		assert.False(t, ok)
		assert.Zero(t, v)
	})

	t.Run("closed channel reports not ok", func(t *testing.T) {
		ch := make(chan int)
		close(ch)

		_, ok := Receive(context.Background(), ch)
		assert.False(t, ok)
	})
}

func TestTryReceive(t *testing.T) {
	ch := make(chan int, 1)
	_, ok := TryReceive(ch)
	assert.False(t, ok, "empty channel must not block")

	ch <- 7
	v, ok := TryReceive(ch)
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestTrySend(t *testing.T) {
	ch := make(chan int, 1)
	assert.True(t, TrySend(ch, 1))
	assert.False(t, TrySend(ch, 2), "full channel must not block")
}

func TestSendWithin(t *testing.T) {
	t.Run("immediate capacity", func(t *testing.T) {
		ch := make(chan int, 1)
		assert.True(t, SendWithin(context.Background(), ch, 1, 10*time.Millisecond))
	})

	t.Run("gives up after the grace period", func(t *testing.T) {
		ch := make(chan int) // nobody reads
		start := time.Now()
		ok := SendWithin(context.Background(), ch, 1, 20*time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("delivered when a reader arrives in time", func(t *testing.T) {
		ch := make(chan int)
		go func() {
			time.Sleep(5 * time.Millisecond)
			<-ch
		}()
		assert.True(t, SendWithin(context.Background(), ch, 1, 100*time.Millisecond))
	})
}
