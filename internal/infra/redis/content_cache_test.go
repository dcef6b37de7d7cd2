package redis

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quizmaster-service/internal/domain"
)

func TestContentCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{quizzes: map[int64]domain.Quiz{1: sampleQuiz()}}
	cache := NewContentCache(newClient(mr), loader, time.Minute)

	quiz, err := cache.GetQuizContent(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quizmaster:quiz:1:content") {
		t.Fatalf("expected content key to be set")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := cache.GetQuizContent(context.Background(), 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if len(cached.Questions) != 1 || len(cached.Questions[0].Choices) != 2 || !cached.Questions[0].Choices[1].IsCorrect {
		t.Fatalf("cached content lost data: %+v", cached)
	}
	if cached.Title != quiz.Title {
		t.Fatalf("expected title %q, got %q", quiz.Title, cached.Title)
	}
}

func TestContentCacheInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{quizzes: map[int64]domain.Quiz{1: sampleQuiz()}}
	cache := NewContentCache(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.GetQuizContent(ctx, 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quizmaster:quiz:1:content") {
		t.Fatalf("expected content key to be removed")
	}
	if _, err := cache.GetQuizContent(ctx, 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestContentCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{quizzes: map[int64]domain.Quiz{1: sampleQuiz()}}
	cache := NewContentCache(newClient(mr), loader, time.Minute)

	if _, err := cache.GetQuizContent(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.GetQuizContent(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.count())
	}
}

func TestContentCacheDoesNotCacheMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewContentCache(newClient(mr), &countingLoader{}, time.Minute)
	if _, err := cache.GetQuizContent(context.Background(), 42); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if mr.Exists("quizmaster:quiz:42:content") {
		t.Fatalf("expected no key for a missing quiz")
	}
}

func TestContentCacheInvalidateDuringLoad(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	loader := &gatedLoader{quiz: sampleQuiz(), started: make(chan struct{}), release: make(chan struct{})}
	cache := NewContentCache(newClient(mr), loader, time.Minute)

	done := make(chan error)
	go func() {
		_, err := cache.GetQuizContent(ctx, 1)
		done <- err
	}()
	<-loader.started

	updated := sampleQuiz()
	updated.Title = "Arithmetic v2"
	loader.set(updated)
	if err := cache.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight get: %v", err)
	}
	if mr.Exists("quizmaster:quiz:1:content") {
		t.Fatalf("expected the in-flight load not to write back after invalidate")
	}

	fresh, err := cache.GetQuizContent(ctx, 1)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if fresh.Title != "Arithmetic v2" {
		t.Fatalf("expected reloaded title, got %q", fresh.Title)
	}
	if !mr.Exists("quizmaster:quiz:1:content") {
		t.Fatalf("expected fresh content to be cached")
	}
}

func TestContentCacheLogsRedisFailures(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	var logs bytes.Buffer
	loader := &countingLoader{quizzes: map[int64]domain.Quiz{1: sampleQuiz()}}
	cache := NewContentCache(newClient(mr), loader, time.Minute)
	cache.logger = slog.New(slog.NewTextHandler(&logs, nil))

	mr.SetError("ERR injected failure")
	quiz, err := cache.GetQuizContent(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected loader result despite redis errors, got %v", err)
	}
	if quiz.Title != "Arithmetic" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "quiz_id=1") {
		t.Fatalf("expected a warning for the redis failure, got %q", logs.String())
	}
}

// gatedLoader blocks its first load after reading the current quiz, until release is closed.
type gatedLoader struct {
	mu      sync.Mutex
	quiz    domain.Quiz
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *gatedLoader) set(quiz domain.Quiz) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiz = quiz
}

func (l *gatedLoader) LoadQuizContent(_ context.Context, _ int64) (domain.Quiz, error) {
	l.mu.Lock()
	quiz := l.quiz
	l.mu.Unlock()
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.started)
		<-l.release
	}
	return quiz, nil
}

type countingLoader struct {
	mu      sync.Mutex
	calls   int
	quizzes map[int64]domain.Quiz
}

func (l *countingLoader) LoadQuizContent(_ context.Context, quizID int64) (domain.Quiz, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	quiz, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        1,
		Title:     "Arithmetic",
		CreatedBy: 7,
		Questions: []domain.Question{
			{
				ID:     10,
				QuizID: 1,
				Text:   "What is 2 + 2?",
				Choices: []domain.Choice{
					{ID: 100, QuestionID: 10, Text: "3"},
					{ID: 101, QuestionID: 10, Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
