package app

import (
	"sync"

	"quizmaster-service/internal/domain"
)

const feedBuffer = 8

// Feed fans out submission events of one quiz to its subscribers.
type Feed struct {
	quizID      int64
	mu          sync.RWMutex
	subscribers map[chan domain.SubmissionEvent]struct{}
}

// NewFeed is exported for infrastructure layers that keep feed registries.
func NewFeed(quizID int64) *Feed {
	return &Feed{
		quizID:      quizID,
		subscribers: make(map[chan domain.SubmissionEvent]struct{}),
	}
}

// QuizID returns the quiz this feed belongs to.
func (f *Feed) QuizID() int64 {
	return f.quizID
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

// Subscribe registers a buffered listener. The returned cancel closes the channel.
func (f *Feed) Subscribe() (<-chan domain.SubmissionEvent, func()) {
	ch := make(chan domain.SubmissionEvent, feedBuffer)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subscribers[ch]; ok {
				delete(f.subscribers, ch)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish never blocks: a full subscriber loses its oldest pending event.
func (f *Feed) Publish(event domain.SubmissionEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
