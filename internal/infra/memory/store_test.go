package memory

import (
	"context"
	"errors"
	"testing"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

func TestStoreRollsBackFailedTx(t *testing.T) {
	store, quizID := seededStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, repo app.Repository) error {
		question := domain.Question{QuizID: quizID, Text: "never stored"}
		if err := repo.CreateQuestion(ctx, &question); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected tx error, got %v", err)
	}

	count, err := store.CountQuestions(ctx, quizID)
	if err != nil {
		t.Fatalf("count questions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to keep 1 question, got %d", count)
	}
}

func TestStoreRejectsDuplicateSubmission(t *testing.T) {
	store, quizID := seededStore(t)
	ctx := context.Background()

	student := domain.User{Username: "student"}
	if err := store.CreateUser(ctx, &student); err != nil {
		t.Fatalf("create user: %v", err)
	}
	first := domain.Submission{UserID: student.ID, QuizID: quizID}
	if err := store.CreateSubmission(ctx, &first); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	second := domain.Submission{UserID: student.ID, QuizID: quizID}
	if err := store.CreateSubmission(ctx, &second); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
}

func TestStoreDeleteQuizCascades(t *testing.T) {
	store, quizID := seededStore(t)
	ctx := context.Background()

	student := domain.User{Username: "student"}
	if err := store.CreateUser(ctx, &student); err != nil {
		t.Fatalf("create user: %v", err)
	}
	submission := domain.Submission{UserID: student.ID, QuizID: quizID}
	if err := store.CreateSubmission(ctx, &submission); err != nil {
		t.Fatalf("create submission: %v", err)
	}

	if err := store.DeleteQuiz(ctx, quizID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	questions, _ := store.ListQuestions(ctx, 0)
	choices, _ := store.ListChoices(ctx, 0)
	submissions, _ := store.ListSubmissions(ctx, app.SubmissionFilter{})
	if len(questions) != 0 || len(choices) != 0 || len(submissions) != 0 {
		t.Fatalf("expected cascade delete, got %d questions %d choices %d submissions",
			len(questions), len(choices), len(submissions))
	}
}

func TestStoreUniqueUsername(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.CreateUser(ctx, &domain.User{Username: "alice"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateUser(ctx, &domain.User{Username: "alice"}); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}
}
