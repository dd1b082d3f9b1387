package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var _ Broker = (*SimpleBroker)(nil)

// SimpleBroker fans messages out to subscriber channels. Publish never
// blocks; Deliver waits for each receiver.
type SimpleBroker struct {
	subscribers map[string]chan<- Message
	mu          sync.RWMutex
}

func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Message),
	}
}

// Publish delivers msg to its recipients, or to every subscriber except the
// sender when To is empty. Unknown recipients are skipped. A full channel
// drops the message for that recipient and is reported in the returned error;
// delivery to the others still happens.
func (b *SimpleBroker) Publish(msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var errs []error
	for id, ch := range b.recipients(msg) {
		select {
		case ch <- msg:
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrSubscriberFull, id))
		}
	}
	return errors.Join(errs...)
}

// Deliver routes msg like Publish but waits for every recipient to accept
// it. It gives up when ctx is done. The subscriber set is captured before
// sending, so a slow receiver does not block Subscribe or Unsubscribe.
func (b *SimpleBroker) Deliver(ctx context.Context, msg Message) error {
	b.mu.RLock()
	recipients := b.recipients(msg)
	b.mu.RUnlock()

	for id, ch := range recipients {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return fmt.Errorf("delivering to %s: %w", id, ctx.Err())
		}
	}
	return nil
}

// recipients must be called with b.mu held.
func (b *SimpleBroker) recipients(msg Message) map[string]chan<- Message {
	out := make(map[string]chan<- Message)
	if len(msg.To) == 0 {
		for id, ch := range b.subscribers {
			if id != msg.From {
				out[id] = ch
			}
		}
		return out
	}
	for _, id := range msg.To {
		if ch, ok := b.subscribers[id]; ok {
			out[id] = ch
		}
	}
	return out
}

func (b *SimpleBroker) Subscribe(id string, ch chan<- Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, id)
	}
	b.subscribers[id] = ch
	return nil
}

func (b *SimpleBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, id)
	}
	delete(b.subscribers, id)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Message)
}
