package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"skillswap/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrBrokerClosed is returned by Publish after Close.
var ErrBrokerClosed = errors.New("broker closed")

// Broker carries room events between the gateway instances. Every instance receives every
// event and delivers it to its own members of the room.
type Broker interface {
	Publish(ctx context.Context, ev models.RoomEvent) error
	Events() <-chan models.RoomEvent
	Close() error
}

// LocalBroker is the single-instance broker.
type LocalBroker struct {
	ch        chan models.RoomEvent
	done      chan struct{}
	closeOnce sync.Once
}

func NewLocalBroker(buffer int) *LocalBroker {
	return &LocalBroker{
		ch:   make(chan models.RoomEvent, buffer),
		done: make(chan struct{}),
	}
}

func (b *LocalBroker) Publish(ctx context.Context, ev models.RoomEvent) error {
	select {
	case b.ch <- ev:
		return nil
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBroker) Events() <-chan models.RoomEvent { return b.ch }

func (b *LocalBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

const roomChannelPrefix = "room:"

func roomChannel(roomID string) string { return roomChannelPrefix + roomID }

// RedisBroker fans events out through Redis Pub/Sub, one channel per room.
type RedisBroker struct {
	rdb    *redis.Client
	pubsub *redis.PubSub
	out    chan models.RoomEvent
	log    *slog.Logger
}

// NewRedisBroker subscribes to every room channel and returns once Redis confirmed the
// subscription. The listener stops when ctx is done or the broker is closed.
func NewRedisBroker(ctx context.Context, rdb *redis.Client, logger *slog.Logger) (*RedisBroker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pubsub := rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe room events: %w", err)
	}
	b := &RedisBroker{
		rdb:    rdb,
		pubsub: pubsub,
		out:    make(chan models.RoomEvent, 256),
		log:    logger.With("component", "broker"),
	}
	go b.listen(ctx)
	return b, nil
}

func (b *RedisBroker) listen(ctx context.Context) {
	for msg := range b.pubsub.Channel() {
		var ev models.RoomEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.log.Warn("bad room event", "channel", msg.Channel, "error", err)
			continue
		}
		if ev.Envelope.RoomID == "" {
			ev.Envelope.RoomID = strings.TrimPrefix(msg.Channel, roomChannelPrefix)
		}
		select {
		case b.out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (b *RedisBroker) Publish(ctx context.Context, ev models.RoomEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, roomChannel(ev.Envelope.RoomID), payload).Err()
}

func (b *RedisBroker) Events() <-chan models.RoomEvent { return b.out }

func (b *RedisBroker) Close() error { return b.pubsub.Close() }
