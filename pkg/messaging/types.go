package messaging

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNotSubscribed     = errors.New("not subscribed")
	ErrSubscriberFull    = errors.New("subscriber channel is full")
)

// Message carries an experiment event, usually a finished episode.
type Message struct {
	From      string    // run ID of the publisher
	To        []string  // subscriber IDs (empty means broadcast)
	Content   any       // payload, e.g. experiment.EpisodeResult
	Timestamp time.Time // when the message was published
}

// Broker routes messages from runners to subscribers
type Broker interface {
	// Publish sends a message to specified recipients
	Publish(msg Message) error
	// Deliver sends a message and waits until every recipient has taken it
	Deliver(ctx context.Context, msg Message) error
	// Subscribe registers a subscriber to receive messages
	Subscribe(id string, ch chan<- Message) error
	// Unsubscribe removes a subscription
	Unsubscribe(id string) error
}
