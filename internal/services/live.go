package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
)

// LiveChannel is the Redis channel carrying newly stored request events.
const LiveChannel = "visitrace:requests"

const liveMaxBackoff = 30 * time.Second

// LiveFeed publishes request events over Redis and fans them out to the
// viewer connections of this instance.
type LiveFeed struct {
	client *redis.Client

	mu     sync.RWMutex
	subs   map[uint64]chan models.RequestEvent
	nextID uint64

	started sync.Once
}

func NewLiveFeed(client *redis.Client) *LiveFeed {
	return &LiveFeed{
		client: client,
		subs:   make(map[uint64]chan models.RequestEvent),
	}
}

// Publish sends event to every instance listening on LiveChannel.
func (f *LiveFeed) Publish(ctx context.Context, event models.RequestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, LiveChannel, data).Err()
}

// Subscribe registers a local listener. The returned function unregisters it
// and closes the channel.
func (f *LiveFeed) Subscribe(buffer int) (<-chan models.RequestEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.RequestEvent, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Deliver hands event to local listeners, dropping it for any listener
// whose buffer is full.
func (f *LiveFeed) Deliver(event models.RequestEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for id, ch := range f.subs {
		select {
		case ch <- event:
		default:
			log.Debugf("live subscriber %d is slow; dropped event %s", id, event.ID)
		}
	}
}

// Start runs the Redis subscriber once per instance until ctx is done.
func (f *LiveFeed) Start(ctx context.Context) {
	f.started.Do(func() {
		go f.run(ctx)
	})
}

func (f *LiveFeed) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.receive(ctx, &backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > liveMaxBackoff {
			backoff = liveMaxBackoff
		}
	}
}

// receive consumes messages until the subscription fails.
func (f *LiveFeed) receive(ctx context.Context, backoff *time.Duration) {
	pubsub := f.client.Subscribe(ctx, LiveChannel)
	defer pubsub.Close()

	log.Infof("Live feed subscriber started (channel: %s)", LiveChannel)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warningf("live feed subscriber error: %v", err)
			}
			return
		}
		*backoff = time.Second

		var event models.RequestEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warningf("failed to unmarshal live event: %v", err)
			continue
		}
		f.Deliver(event)
	}
}
