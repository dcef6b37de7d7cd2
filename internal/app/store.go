package app

import (
	"context"

	"quizmaster-service/internal/domain"
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUser(ctx context.Context, id int64) (domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// ContentRepository stores quizzes, questions and choices.
// Lookups return the domain not-found errors when nothing matches.
type ContentRepository interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	FindQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error
	CountQuestions(ctx context.Context, quizID int64) (int, error)
	LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error)

	CreateQuestion(ctx context.Context, question *domain.Question) error
	FindQuestion(ctx context.Context, id int64) (domain.Question, error)
	FindQuestionInQuiz(ctx context.Context, questionID, quizID int64) (domain.Question, error)
	// ListQuestions lists questions of one quiz, or all questions when quizID is 0.
	ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, question domain.Question) error
	DeleteQuestion(ctx context.Context, id int64) error

	CreateChoice(ctx context.Context, choice *domain.Choice) error
	FindChoice(ctx context.Context, id int64) (domain.Choice, error)
	FindChoiceInQuestion(ctx context.Context, choiceID, questionID int64) (domain.Choice, error)
	// ListChoices lists choices of one question, or all choices when questionID is 0.
	ListChoices(ctx context.Context, questionID int64) ([]domain.Choice, error)
	UpdateChoice(ctx context.Context, choice domain.Choice) error
	DeleteChoice(ctx context.Context, id int64) error
}

// SubmissionFilter narrows ListSubmissions; zero fields match everything.
type SubmissionFilter struct {
	UserID int64
	QuizID int64
}

// SubmissionRepository stores submissions and their answers.
type SubmissionRepository interface {
	HasSubmission(ctx context.Context, userID, quizID int64) (bool, error)
	// CreateSubmission returns domain.ErrAlreadySubmitted when (user, quiz) already exists.
	CreateSubmission(ctx context.Context, submission *domain.Submission) error
	CreateAnswer(ctx context.Context, answer *domain.Answer) error
	UpdateSubmissionScore(ctx context.Context, submissionID int64, score int) error
	// ListSubmissions returns submissions ordered by submission time, with answers attached.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error)
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	UserRepository
	ContentRepository
	SubmissionRepository
}

// Store is a Repository that can run a function atomically.
// Inside fn only the repository passed to fn may be used.
type Store interface {
	Repository
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// ContentLoader loads a quiz together with its questions and choices.
type ContentLoader interface {
	LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// ContentCache serves quiz content for read paths and drops it on writes.
type ContentCache interface {
	GetQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// Publisher forwards committed submissions to an external channel.
type Publisher interface {
	PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error
}

// FeedRegistry abstracts where per-quiz submission feeds live (in-memory, Redis, etc).
// Broadcast delivers an event to every local feed of the quiz that the registry reaches,
// which for a shared registry includes feeds held by other instances.
type FeedRegistry interface {
	GetOrCreate(quizID int64) *Feed
	Get(quizID int64) (*Feed, bool)
	DeleteIfEmpty(quizID int64)
	Broadcast(ctx context.Context, event domain.SubmissionEvent) error
}
