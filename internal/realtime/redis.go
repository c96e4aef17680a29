package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisBus carries events between API instances over Redis pub/sub, one
// channel per project named <prefix>:<projectID>.
type RedisBus struct {
	client *redis.Client
	prefix string
}

func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "board"
	}
	return &RedisBus{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel of a project.
func (b *RedisBus) Channel(projectID string) string {
	return b.prefix + ":" + projectID
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	payload, err := sonic.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.Channel(event.ProjectID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe calls handler for each event of one project until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, projectID string, handler func(Event)) error {
	sub := b.client.Subscribe(ctx, b.Channel(projectID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.pump(ctx, sub.Channel(), func(ev Event) bool {
		handler(ev)
		return true
	})
	return nil
}

// Relay forwards every project's events to dst until ctx is done,
// resubscribing when the connection drops.
func (b *RedisBus) Relay(ctx context.Context, dst Publisher) error {
	for {
		sub := b.client.PSubscribe(ctx, b.prefix+":*")
		if _, err := sub.Receive(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Warn("[Realtime] Redis relay subscribe failed, retrying")
		} else {
			log.Printf("[Realtime] Relaying %s:* to local streams", b.prefix)
			b.pump(ctx, sub.Channel(), func(ev Event) bool {
				Emit(ctx, dst, ev)
				return true
			})
			sub.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (b *RedisBus) pump(ctx context.Context, ch <-chan *redis.Message, deliver func(Event) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := sonic.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.WithError(err).Warnf("[Realtime] Dropping malformed message on %s", msg.Channel)
				continue
			}
			if ev.ProjectID == "" {
				ev.ProjectID = strings.TrimPrefix(msg.Channel, b.prefix+":")
			}
			if !deliver(ev) {
				return
			}
		}
	}
}
