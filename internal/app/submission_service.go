package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"quizmaster-service/internal/domain"
)

// SubmissionService contains the quiz-taking use cases.
type SubmissionService struct {
	store      Store
	feeds      FeedRegistry
	publishers []Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewSubmissionService wires the service. feeds may be nil when live feeds are disabled.
func NewSubmissionService(store Store, feeds FeedRegistry, logger *slog.Logger, publishers ...Publisher) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		store:      store,
		feeds:      feeds,
		publishers: publishers,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit validates and scores a student's answers and persists them atomically.
func (s *SubmissionService) Submit(ctx context.Context, quizID int64, user domain.User, answers []domain.AnswerSubmission) (domain.SubmissionResult, error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	submitted, err := s.store.HasSubmission(ctx, user.ID, quiz.ID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if submitted {
		return domain.SubmissionResult{}, domain.ErrAlreadySubmitted
	}
	if quiz.OwnedBy(user) {
		return domain.SubmissionResult{}, domain.ErrCreatorCannotSubmit
	}
	if len(answers) == 0 {
		return domain.SubmissionResult{}, domain.ErrNoAnswers
	}

	submission := domain.Submission{
		UserID:      user.ID,
		Username:    user.Username,
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		SubmittedAt: s.now().UTC(),
	}
	var result domain.SubmissionResult

	err = s.store.RunInTx(ctx, func(ctx context.Context, repo Repository) error {
		chosen, err := resolveAnswers(ctx, repo, quiz.ID, answers)
		if err != nil {
			return err
		}

		// The unique (user, quiz) constraint settles races that passed the check above.
		if err := repo.CreateSubmission(ctx, &submission); err != nil {
			return err
		}

		score := 0
		for _, choice := range chosen {
			answer := domain.Answer{
				SubmissionID: submission.ID,
				QuestionID:   choice.QuestionID,
				ChoiceID:     choice.ID,
			}
			if err := repo.CreateAnswer(ctx, &answer); err != nil {
				return err
			}
			if choice.IsCorrect {
				score++
			}
		}
		if err := repo.UpdateSubmissionScore(ctx, submission.ID, score); err != nil {
			return err
		}
		submission.Score = score

		total, err := repo.CountQuestions(ctx, quiz.ID)
		if err != nil {
			return err
		}
		result = domain.SubmissionResult{
			SubmissionID:   submission.ID,
			Score:          score,
			TotalQuestions: total,
			Percentage:     Percentage(score, total),
		}
		return nil
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	s.logger.Info("quiz submitted",
		"quiz_id", quiz.ID,
		"user_id", user.ID,
		"submission_id", result.SubmissionID,
		"score", result.Score,
		"total_questions", result.TotalQuestions,
	)
	s.publish(ctx, domain.SubmissionEvent{
		SubmissionID:   submission.ID,
		QuizID:         quiz.ID,
		UserID:         user.ID,
		Username:       user.Username,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Percentage,
		SubmittedAt:    submission.SubmittedAt,
	})
	return result, nil
}

// ListForUser returns every submission made by the user.
func (s *SubmissionService) ListForUser(ctx context.Context, user domain.User) ([]domain.Submission, error) {
	return s.store.ListSubmissions(ctx, SubmissionFilter{UserID: user.ID})
}

// ListForQuiz returns the submissions of a quiz to its creator.
func (s *SubmissionService) ListForQuiz(ctx context.Context, quizID int64, user domain.User) ([]domain.Submission, error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.OwnedBy(user) {
		return nil, domain.ErrNotQuizOwner
	}
	return s.store.ListSubmissions(ctx, SubmissionFilter{QuizID: quiz.ID})
}

// Subscribe returns a channel of new submissions for a quiz owned by user.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SubmissionService) Subscribe(ctx context.Context, quizID int64, user domain.User) (<-chan domain.SubmissionEvent, func(), error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if !quiz.OwnedBy(user) {
		return nil, nil, domain.ErrNotQuizOwner
	}
	if s.feeds == nil {
		return nil, nil, domain.ErrFeedsUnavailable
	}

	for {
		feed := s.feeds.GetOrCreate(quiz.ID)
		ch, cancel := feed.Subscribe()
		// The registry may have dropped an empty feed between the two calls.
		if current, ok := s.feeds.Get(quiz.ID); ok && current == feed {
			return ch, func() {
				cancel()
				s.feeds.DeleteIfEmpty(quiz.ID)
			}, nil
		}
		cancel()
	}
}

func (s *SubmissionService) publish(ctx context.Context, event domain.SubmissionEvent) {
	if s.feeds != nil {
		if err := s.feeds.Broadcast(ctx, event); err != nil {
			s.logger.Warn("broadcast submission failed",
				"submission_id", event.SubmissionID,
				"quiz_id", event.QuizID,
				"error", err,
			)
		}
	}
	for _, p := range s.publishers {
		if err := p.PublishSubmission(ctx, event); err != nil {
			s.logger.Warn("publish submission failed",
				"submission_id", event.SubmissionID,
				"error", err,
			)
		}
	}
}

// resolveAnswers checks every entry against the quiz before anything is written.
func resolveAnswers(ctx context.Context, repo ContentRepository, quizID int64, answers []domain.AnswerSubmission) ([]domain.Choice, error) {
	chosen := make([]domain.Choice, 0, len(answers))
	seen := make(map[int64]struct{}, len(answers))
	for i, answer := range answers {
		invalid := func(reason error) error {
			return &domain.InvalidAnswerError{
				Index:      i,
				QuestionID: answer.QuestionID,
				ChoiceID:   answer.ChoiceID,
				Reason:     reason,
			}
		}

		question, err := repo.FindQuestionInQuiz(ctx, answer.QuestionID, quizID)
		if err != nil {
			if isNotFound(err) {
				return nil, invalid(err)
			}
			return nil, err
		}
		if _, dup := seen[question.ID]; dup {
			return nil, invalid(domain.ErrDuplicateQuestion)
		}
		seen[question.ID] = struct{}{}

		choice, err := repo.FindChoiceInQuestion(ctx, answer.ChoiceID, question.ID)
		if err != nil {
			if isNotFound(err) {
				return nil, invalid(err)
			}
			return nil, err
		}
		chosen = append(chosen, choice)
	}
	return chosen, nil
}

// Percentage returns score/total*100 rounded to two decimals, or 0 for an empty quiz.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(score)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2).
		InexactFloat64()
}
