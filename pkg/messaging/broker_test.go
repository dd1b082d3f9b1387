package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	t.Run("direct message", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		monitor := make(chan Message, 1)
		progress := make(chan Message, 1)

		require.NoError(t, broker.Subscribe("monitor", monitor))
		require.NoError(t, broker.Subscribe("progress", progress))

		msg := Message{
			From:      "run-1",
			To:        []string{"monitor"},
			Content:   "episode 1",
			Timestamp: time.Now(),
		}
		require.NoError(t, broker.Publish(msg))

		select {
		case received := <-monitor:
			assert.Equal(t, "run-1", received.From)
			assert.Equal(t, "episode 1", received.Content)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}

		select {
		case got := <-progress:
			t.Errorf("progress should not receive a direct message, got %+v", got)
		default:
		}
	})

	t.Run("broadcast skips sender", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		subs := map[string]chan Message{
			"run-1":    make(chan Message, 1),
			"monitor":  make(chan Message, 1),
			"progress": make(chan Message, 1),
		}
		for id, ch := range subs {
			require.NoError(t, broker.Subscribe(id, ch))
		}

		require.NoError(t, broker.Publish(Message{From: "run-1", Content: "done"}))

		for id, ch := range subs {
			if id == "run-1" {
				assert.Len(t, ch, 0, "sender received its own broadcast")
				continue
			}
			require.Len(t, ch, 1, id)
			assert.Equal(t, "done", (<-ch).Content)
		}
	})

	t.Run("subscription management", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		ch := make(chan Message, 1)

		require.NoError(t, broker.Subscribe("monitor", ch))
		require.ErrorIs(t, broker.Subscribe("monitor", ch), ErrAlreadySubscribed)
		require.NoError(t, broker.Unsubscribe("monitor"))
		require.ErrorIs(t, broker.Unsubscribe("monitor"), ErrNotSubscribed)
	})

	t.Run("full channel reports but still delivers to others", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		slow := make(chan Message, 1)
		fast := make(chan Message, 4)
		require.NoError(t, broker.Subscribe("slow", slow))
		require.NoError(t, broker.Subscribe("fast", fast))

		require.NoError(t, broker.Publish(Message{From: "run-1", Content: 1}))
		err := broker.Publish(Message{From: "run-1", Content: 2})
		require.ErrorIs(t, err, ErrSubscriberFull)
		assert.Len(t, fast, 2)
		assert.Len(t, slow, 1)
	})

	t.Run("deliver waits for a slow receiver", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		ch := make(chan Message)
		require.NoError(t, broker.Subscribe("monitor", ch))

		const n = 100
		received := make(chan int, 1)
		go func() {
			count := 0
			for range ch {
				count++
				time.Sleep(time.Millisecond)
			}
			received <- count
		}()

		for i := 0; i < n; i++ {
			require.NoError(t, broker.Deliver(context.Background(), Message{From: "run-1", Content: i}))
		}
		close(ch)
		assert.Equal(t, n, <-received)
	})

	t.Run("deliver stops with the context", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)
		require.NoError(t, broker.Subscribe("monitor", make(chan Message)))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := broker.Deliver(ctx, Message{From: "run-1", Content: 1})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
