package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

const subscribeTimeout = 5 * time.Second

// FeedRegistry shares submission feeds between instances over Redis pub/sub.
// Broadcast publishes to quizmaster:feed:{quizID}; every instance holding a local
// feed for that quiz subscribes to the channel and fans messages into it.
type FeedRegistry struct {
	client *redis.Client
	logger *slog.Logger
	mu     sync.RWMutex
	feeds  map[int64]*sharedFeed
}

type sharedFeed struct {
	feed   *app.Feed
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewFeedRegistry(client *redis.Client, logger *slog.Logger) *FeedRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedRegistry{
		client: client,
		logger: logger,
		feeds:  make(map[int64]*sharedFeed),
	}
}

func (r *FeedRegistry) GetOrCreate(quizID int64) *app.Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	if shared, ok := r.feeds[quizID]; ok {
		return shared.feed
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()
	pubsub := r.client.Subscribe(ctx, feedChannel(quizID))
	// Wait for the confirmation so events published after this call are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		r.logger.Warn("subscribe to feed channel failed", "quiz_id", quizID, "error", err)
	}

	shared := &sharedFeed{
		feed:   app.NewFeed(quizID),
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	r.feeds[quizID] = shared
	go r.forward(shared)
	return shared.feed
}

func (r *FeedRegistry) Get(quizID int64) (*app.Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shared, ok := r.feeds[quizID]
	if !ok {
		return nil, false
	}
	return shared.feed, true
}

func (r *FeedRegistry) DeleteIfEmpty(quizID int64) {
	r.mu.Lock()
	shared, ok := r.feeds[quizID]
	if !ok || !shared.feed.IsEmpty() {
		r.mu.Unlock()
		return
	}
	delete(r.feeds, quizID)
	r.mu.Unlock()
	r.stop(shared)
}

// Broadcast publishes the event; delivery to local subscribers goes through the subscription too.
func (r *FeedRegistry) Broadcast(ctx context.Context, event domain.SubmissionEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, feedChannel(event.QuizID), raw).Err()
}

// Close drops every subscription.
func (r *FeedRegistry) Close() error {
	r.mu.Lock()
	feeds := r.feeds
	r.feeds = make(map[int64]*sharedFeed)
	r.mu.Unlock()
	for _, shared := range feeds {
		r.stop(shared)
	}
	return nil
}

func (r *FeedRegistry) forward(shared *sharedFeed) {
	defer close(shared.done)
	for msg := range shared.pubsub.Channel() {
		var event domain.SubmissionEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			r.logger.Warn("drop malformed feed message", "channel", msg.Channel, "error", err)
			continue
		}
		shared.feed.Publish(event)
	}
}

func (r *FeedRegistry) stop(shared *sharedFeed) {
	if err := shared.pubsub.Close(); err != nil {
		r.logger.Warn("close feed subscription failed", "quiz_id", shared.feed.QuizID(), "error", err)
	}
	<-shared.done
}

func feedChannel(quizID int64) string {
	return "quizmaster:feed:" + strconv.FormatInt(quizID, 10)
}
