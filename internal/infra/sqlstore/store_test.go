package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

type seed struct {
	teacher  domain.User
	student  domain.User
	quiz     domain.Quiz
	question domain.Question
	wrong    domain.Choice
	right    domain.Choice
}

func seedStore(t *testing.T, store *Store) seed {
	t.Helper()
	ctx := context.Background()
	var s seed

	s.teacher = domain.User{Username: "teacher", PasswordHash: "x", IsStaff: true, CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, &s.teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	s.student = domain.User{Username: "student", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	if err := store.CreateUser(ctx, &s.student); err != nil {
		t.Fatalf("create student: %v", err)
	}
	s.quiz = domain.Quiz{Title: "Arithmetic", CreatedBy: s.teacher.ID, CreatedAt: time.Now().UTC()}
	if err := store.CreateQuiz(ctx, &s.quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	s.question = domain.Question{QuizID: s.quiz.ID, Text: "What is 2 + 2?"}
	if err := store.CreateQuestion(ctx, &s.question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	s.wrong = domain.Choice{QuestionID: s.question.ID, Text: "3"}
	if err := store.CreateChoice(ctx, &s.wrong); err != nil {
		t.Fatalf("create choice: %v", err)
	}
	s.right = domain.Choice{QuestionID: s.question.ID, Text: "4", IsCorrect: true}
	if err := store.CreateChoice(ctx, &s.right); err != nil {
		t.Fatalf("create choice: %v", err)
	}
	return s
}

func TestStoreLoadsQuizContent(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)

	quiz, err := store.LoadQuizContent(context.Background(), s.quiz.ID)
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	if quiz.Title != "Arithmetic" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	choices := quiz.Questions[0].Choices
	if len(choices) != 2 || choices[0].Text != "3" || !choices[1].IsCorrect {
		t.Fatalf("unexpected choices %+v", choices)
	}

	if _, err := store.LoadQuizContent(context.Background(), 9999); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestStoreScopedLookups(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()

	if _, err := store.FindQuestionInQuiz(ctx, s.question.ID, s.quiz.ID+100); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := store.FindChoiceInQuestion(ctx, s.right.ID, s.question.ID+100); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected choice not found, got %v", err)
	}
	choice, err := store.FindChoiceInQuestion(ctx, s.right.ID, s.question.ID)
	if err != nil || !choice.IsCorrect {
		t.Fatalf("expected correct choice, got %+v (%v)", choice, err)
	}
}

func TestStoreRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()

	again := domain.User{Username: "student", PasswordHash: "y", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, &again); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected username taken, got %v", err)
	}

	first := domain.Submission{UserID: s.student.ID, QuizID: s.quiz.ID, SubmittedAt: time.Now()}
	if err := store.CreateSubmission(ctx, &first); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	second := domain.Submission{UserID: s.student.ID, QuizID: s.quiz.ID, SubmittedAt: time.Now()}
	if err := store.CreateSubmission(ctx, &second); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}
	exists, err := store.HasSubmission(ctx, s.student.ID, s.quiz.ID)
	if err != nil || !exists {
		t.Fatalf("expected submission to exist, got %v (%v)", exists, err)
	}
}

func TestStoreRollsBackFailedTx(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, repo app.Repository) error {
		question := domain.Question{QuizID: s.quiz.ID, Text: "never stored"}
		if err := repo.CreateQuestion(ctx, &question); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected tx error, got %v", err)
	}
	count, err := store.CountQuestions(ctx, s.quiz.ID)
	if err != nil {
		t.Fatalf("count questions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 question after rollback, got %d", count)
	}
}

func TestStoreListsSubmissionsWithAnswers(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()

	service := app.NewSubmissionService(store, nil, nil)
	result, err := service.Submit(ctx, s.quiz.ID, s.student, []domain.AnswerSubmission{
		{QuestionID: s.question.ID, ChoiceID: s.right.ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalQuestions != 1 || result.Percentage != 100 {
		t.Fatalf("unexpected result %+v", result)
	}

	submissions, err := store.ListSubmissions(ctx, app.SubmissionFilter{QuizID: s.quiz.ID})
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(submissions))
	}
	got := submissions[0]
	if got.Username != "student" || got.QuizTitle != "Arithmetic" || got.Score != 1 {
		t.Fatalf("unexpected submission %+v", got)
	}
	if len(got.Answers) != 1 || got.Answers[0].QuestionText != "What is 2 + 2?" || got.Answers[0].ChoiceText != "4" {
		t.Fatalf("unexpected answers %+v", got.Answers)
	}

	none, err := store.ListSubmissions(ctx, app.SubmissionFilter{UserID: s.teacher.ID})
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no submissions for teacher, got %d", len(none))
	}
}

func TestStoreDeleteQuizCascades(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()

	submission := domain.Submission{UserID: s.student.ID, QuizID: s.quiz.ID, SubmittedAt: time.Now()}
	if err := store.CreateSubmission(ctx, &submission); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	answer := domain.Answer{SubmissionID: submission.ID, QuestionID: s.question.ID, ChoiceID: s.right.ID}
	if err := store.CreateAnswer(ctx, &answer); err != nil {
		t.Fatalf("create answer: %v", err)
	}

	if err := store.DeleteQuiz(ctx, s.quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := store.FindQuestion(ctx, s.question.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question to be removed, got %v", err)
	}
	if _, err := store.FindChoice(ctx, s.right.ID); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected choice to be removed, got %v", err)
	}
	submissions, _ := store.ListSubmissions(ctx, app.SubmissionFilter{})
	if len(submissions) != 0 {
		t.Fatalf("expected submissions to be removed, got %d", len(submissions))
	}
	if err := store.DeleteQuiz(ctx, s.quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestStoreUpdates(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()

	s.quiz.Title = "Math"
	if err := store.UpdateQuiz(ctx, s.quiz); err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	s.right.Text = "four"
	if err := store.UpdateChoice(ctx, s.right); err != nil {
		t.Fatalf("update choice: %v", err)
	}

	quiz, _ := store.FindQuiz(ctx, s.quiz.ID)
	choice, _ := store.FindChoice(ctx, s.right.ID)
	if quiz.Title != "Math" || choice.Text != "four" || !choice.IsCorrect {
		t.Fatalf("updates not persisted: %+v %+v", quiz, choice)
	}
	if err := store.UpdateQuestion(ctx, domain.Question{ID: 9999, Text: "x"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestConcurrentSubmitsHitUniqueConstraint(t *testing.T) {
	store := newTestStore(t)
	s := seedStore(t, store)
	ctx := context.Background()
	service := app.NewSubmissionService(store, nil, nil)

	const attempts = 6
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Submit(ctx, s.quiz.ID, s.student, []domain.AnswerSubmission{
				{QuestionID: s.question.ID, ChoiceID: s.right.ID},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, domain.ErrAlreadySubmitted):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful submit, got %d", succeeded)
	}
	submissions, err := store.ListSubmissions(ctx, app.SubmissionFilter{UserID: s.student.ID})
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(submissions) != 1 || len(submissions[0].Answers) != 1 {
		t.Fatalf("expected one submission with one answer, got %+v", submissions)
	}
}
