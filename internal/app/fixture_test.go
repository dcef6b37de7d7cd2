package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
)

type fixture struct {
	store   *memory.Store
	teacher domain.User
	student domain.User
	quiz    domain.Quiz
	// correct[i] and wrong[i] are choices of questions[i].
	questions []domain.Question
	correct   []domain.Choice
	wrong     []domain.Choice
}

func newFixture(t *testing.T, questionCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memory.NewStore()}

	f.teacher = domain.User{Username: "teacher", IsStaff: true}
	if err := f.store.CreateUser(ctx, &f.teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	f.student = domain.User{Username: "student"}
	if err := f.store.CreateUser(ctx, &f.student); err != nil {
		t.Fatalf("create student: %v", err)
	}

	f.quiz = domain.Quiz{Title: "General knowledge", CreatedBy: f.teacher.ID, CreatedAt: time.Now()}
	if err := f.store.CreateQuiz(ctx, &f.quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i := 0; i < questionCount; i++ {
		question := domain.Question{QuizID: f.quiz.ID, Text: fmt.Sprintf("Question %d", i+1)}
		if err := f.store.CreateQuestion(ctx, &question); err != nil {
			t.Fatalf("create question: %v", err)
		}
		right := domain.Choice{QuestionID: question.ID, Text: "right", IsCorrect: true}
		if err := f.store.CreateChoice(ctx, &right); err != nil {
			t.Fatalf("create choice: %v", err)
		}
		wrong := domain.Choice{QuestionID: question.ID, Text: "wrong"}
		if err := f.store.CreateChoice(ctx, &wrong); err != nil {
			t.Fatalf("create choice: %v", err)
		}
		f.questions = append(f.questions, question)
		f.correct = append(f.correct, right)
		f.wrong = append(f.wrong, wrong)
	}
	return f
}

func (f *fixture) answer(i int, correct bool) domain.AnswerSubmission {
	choice := f.wrong[i]
	if correct {
		choice = f.correct[i]
	}
	return domain.AnswerSubmission{QuestionID: f.questions[i].ID, ChoiceID: choice.ID}
}
