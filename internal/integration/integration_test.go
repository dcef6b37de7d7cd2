package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
	pgloader "quizmaster-service/internal/infra/postgres"
	infraredis "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/infra/sqlstore"
)

func TestSubmitQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := sqlstore.Open(sqlstore.DriverPostgres, pgURL)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := sqlstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := sqlstore.NewStore(db)
	defer store.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	cache := infraredis.NewContentCache(redisClient, pgloader.NewContentLoader(pool), 5*time.Minute)
	feeds := infraredis.NewFeedRegistry(redisClient, nil)
	defer feeds.Close()
	content := app.NewContentService(store, cache, nil)
	submissions := app.NewSubmissionService(store, feeds, nil)

	tokens, err := auth.NewService(store, "integration-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	teacher, err := tokens.Register(ctx, "teacher", "teach-pw", true)
	if err != nil {
		t.Fatalf("register teacher: %v", err)
	}
	if _, err := tokens.Register(ctx, "teacher", "other", false); err != domain.ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := tokens.Register(ctx, "student", "study-pw", false); err != nil {
		t.Fatalf("register student: %v", err)
	}
	pair, err := tokens.Login(ctx, "student", "study-pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	student, err := tokens.Authenticate(ctx, pair.Access)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	quiz, err := content.CreateQuiz(ctx, teacher, "Arithmetic", "Warm-up")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	created, err := content.BulkAdd(ctx, quiz.ID, teacher, []domain.QuestionSpec{
		{Text: "What is 2 + 2?", Choices: []domain.ChoiceSpec{{Text: "3"}, {Text: "4", IsCorrect: true}}},
		{Text: "What is 3 * 3?", Choices: []domain.ChoiceSpec{{Text: "9", IsCorrect: true}, {Text: "6"}}},
	})
	if err != nil || created != 2 {
		t.Fatalf("bulk add: created=%d err=%v", created, err)
	}

	full, err := content.GetQuiz(ctx, quiz.ID, teacher)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(full.Questions) != 2 || len(full.Questions[0].Choices) != 2 {
		t.Fatalf("unexpected quiz content %+v", full)
	}
	var answers []domain.AnswerSubmission
	for _, q := range full.Questions {
		for _, c := range q.Choices {
			if c.IsCorrect {
				answers = append(answers, domain.AnswerSubmission{QuestionID: q.ID, ChoiceID: c.ID})
			}
		}
	}

	events, cancel, err := submissions.Subscribe(ctx, quiz.ID, teacher)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	result, err := submissions.Submit(ctx, quiz.ID, student, answers[:1])
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalQuestions != 2 || result.Percentage != 50 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := submissions.Submit(ctx, quiz.ID, student, answers); err != domain.ErrAlreadySubmitted {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	select {
	case event := <-events:
		if event.SubmissionID != result.SubmissionID || event.Username != "student" {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a submission event")
	}

	listed, err := submissions.ListForQuiz(ctx, quiz.ID, teacher)
	if err != nil {
		t.Fatalf("list for quiz: %v", err)
	}
	if len(listed) != 1 || len(listed[0].Answers) != 1 || listed[0].Answers[0].ChoiceText != "4" {
		t.Fatalf("unexpected submissions %+v", listed)
	}

	if err := content.DeleteQuiz(ctx, quiz.ID, teacher); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := content.GetQuiz(ctx, quiz.ID, teacher); err != domain.ErrQuizNotFound {
		t.Fatalf("expected cache invalidated after delete, got %v", err)
	}
	mine, err := submissions.ListForUser(ctx, student)
	if err != nil || len(mine) != 0 {
		t.Fatalf("expected submissions cascaded, got %d err=%v", len(mine), err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
