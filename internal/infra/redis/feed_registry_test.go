package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"quizmaster-service/internal/domain"
)

func TestFeedRegistrySharesEventsBetweenInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()

	committing := NewFeedRegistry(newClient(mr), nil)
	defer committing.Close()
	watching := NewFeedRegistry(newClient(mr), nil)
	defer watching.Close()

	ch, cancel := watching.GetOrCreate(1).Subscribe()
	defer cancel()
	if got := mr.PubSubNumSub("quizmaster:feed:1")["quizmaster:feed:1"]; got != 1 {
		t.Fatalf("expected one channel subscriber, got %d", got)
	}

	event := domain.SubmissionEvent{SubmissionID: 9, QuizID: 1, Username: "student", Score: 2, TotalQuestions: 3, Percentage: 66.67}
	if err := committing.Broadcast(ctx, event); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case got := <-ch:
		if got.SubmissionID != 9 || got.Username != "student" || got.Percentage != 66.67 {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the event to reach the other instance")
	}
	if _, ok := committing.Get(1); ok {
		t.Fatalf("broadcasting must not create a local feed")
	}
}

func TestFeedRegistryDeliversLocally(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewFeedRegistry(newClient(mr), nil)
	defer registry.Close()

	ch, cancel := registry.GetOrCreate(2).Subscribe()
	defer cancel()
	if err := registry.Broadcast(context.Background(), domain.SubmissionEvent{SubmissionID: 5, QuizID: 2}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case got := <-ch:
		if got.SubmissionID != 5 {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the event on the same instance")
	}
}

func TestFeedRegistryDropsEmptyFeeds(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewFeedRegistry(newClient(mr), nil)
	defer registry.Close()

	feed := registry.GetOrCreate(1)
	if again := registry.GetOrCreate(1); again != feed {
		t.Fatalf("expected the same feed for a quiz")
	}
	_, cancel := feed.Subscribe()
	registry.DeleteIfEmpty(1)
	if _, ok := registry.Get(1); !ok {
		t.Fatalf("expected a feed with subscribers to stay")
	}

	cancel()
	registry.DeleteIfEmpty(1)
	if _, ok := registry.Get(1); ok {
		t.Fatalf("expected feed to be dropped")
	}
	if again := registry.GetOrCreate(1); again == feed {
		t.Fatalf("expected a fresh feed after the old one was dropped")
	}
}
