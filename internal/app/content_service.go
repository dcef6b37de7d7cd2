package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quizmaster-service/internal/domain"
)

// ContentService manages quizzes, questions and choices.
// Reads are open to every authenticated user; writes need the quiz owner or a staff user.
type ContentService struct {
	store  Store
	cache  ContentCache
	logger *slog.Logger
	now    func() time.Time
}

// NewContentService wires the service. cache may be nil, in which case content is read from the store.
func NewContentService(store Store, cache ContentCache, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{store: store, cache: cache, logger: logger, now: time.Now}
}

// CreateQuiz creates a quiz owned by a staff user.
func (s *ContentService) CreateQuiz(ctx context.Context, user domain.User, title, description string) (domain.Quiz, error) {
	if !user.IsStaff {
		return domain.Quiz{}, domain.ErrStaffRequired
	}
	if strings.TrimSpace(title) == "" {
		return domain.Quiz{}, domain.ErrInvalidInput
	}
	quiz := domain.Quiz{
		Title:       title,
		Description: description,
		CreatedBy:   user.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// GetQuiz returns the quiz with its questions and choices. Correct flags are
// only visible to the quiz owner.
func (s *ContentService) GetQuiz(ctx context.Context, quizID int64, viewer domain.User) (domain.Quiz, error) {
	quiz, err := s.loadContent(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnedBy(viewer) {
		return quiz, nil
	}
	return redactQuiz(quiz), nil
}

func (s *ContentService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *ContentService) UpdateQuiz(ctx context.Context, quizID int64, user domain.User, title, description string) (domain.Quiz, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Quiz{}, domain.ErrInvalidInput
	}
	quiz, err := s.authorizeQuiz(ctx, quizID, user)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Title = title
	quiz.Description = description
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// DeleteQuiz removes the quiz together with its questions, choices and submissions.
func (s *ContentService) DeleteQuiz(ctx context.Context, quizID int64, user domain.User) error {
	quiz, err := s.authorizeQuiz(ctx, quizID, user)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quiz.ID); err != nil {
		return err
	}
	s.invalidate(ctx, quiz.ID)
	return nil
}

func (s *ContentService) CreateQuestion(ctx context.Context, user domain.User, quizID int64, text string) (domain.Question, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Question{}, domain.ErrInvalidInput
	}
	quiz, err := s.authorizeQuiz(ctx, quizID, user)
	if err != nil {
		return domain.Question{}, err
	}
	question := domain.Question{QuizID: quiz.ID, Text: text}
	if err := s.store.CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return question, nil
}

// GetQuestion returns the question with its choices.
func (s *ContentService) GetQuestion(ctx context.Context, questionID int64, viewer domain.User) (domain.Question, error) {
	question, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	quiz, err := s.store.FindQuiz(ctx, question.QuizID)
	if err != nil {
		return domain.Question{}, err
	}
	if question.Choices, err = s.store.ListChoices(ctx, question.ID); err != nil {
		return domain.Question{}, err
	}
	if !quiz.OwnedBy(viewer) {
		question.Choices = redactChoices(question.Choices)
	}
	return question, nil
}

// ListQuestions returns questions with their choices, optionally limited to one quiz.
func (s *ContentService) ListQuestions(ctx context.Context, quizID int64, viewer domain.User) ([]domain.Question, error) {
	if quizID != 0 {
		if _, err := s.store.FindQuiz(ctx, quizID); err != nil {
			return nil, err
		}
	}
	questions, err := s.store.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	owners := make(map[int64]bool)
	for i := range questions {
		owned, ok := owners[questions[i].QuizID]
		if !ok {
			quiz, err := s.store.FindQuiz(ctx, questions[i].QuizID)
			if err != nil {
				return nil, err
			}
			owned = quiz.OwnedBy(viewer)
			owners[quiz.ID] = owned
		}
		choices, err := s.store.ListChoices(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		if !owned {
			choices = redactChoices(choices)
		}
		questions[i].Choices = choices
	}
	return questions, nil
}

func (s *ContentService) UpdateQuestion(ctx context.Context, questionID int64, user domain.User, text string) (domain.Question, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Question{}, domain.ErrInvalidInput
	}
	question, err := s.authorizeQuestion(ctx, questionID, user)
	if err != nil {
		return domain.Question{}, err
	}
	question.Text = text
	if err := s.store.UpdateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return question, nil
}

func (s *ContentService) DeleteQuestion(ctx context.Context, questionID int64, user domain.User) error {
	question, err := s.authorizeQuestion(ctx, questionID, user)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, question.ID); err != nil {
		return err
	}
	s.invalidate(ctx, question.QuizID)
	return nil
}

func (s *ContentService) CreateChoice(ctx context.Context, user domain.User, questionID int64, text string, isCorrect bool) (domain.Choice, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Choice{}, domain.ErrInvalidInput
	}
	question, err := s.authorizeQuestion(ctx, questionID, user)
	if err != nil {
		return domain.Choice{}, err
	}
	choice := domain.Choice{QuestionID: question.ID, Text: text, IsCorrect: isCorrect}
	if err := s.store.CreateChoice(ctx, &choice); err != nil {
		return domain.Choice{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return choice, nil
}

func (s *ContentService) GetChoice(ctx context.Context, choiceID int64, viewer domain.User) (domain.Choice, error) {
	choice, err := s.store.FindChoice(ctx, choiceID)
	if err != nil {
		return domain.Choice{}, err
	}
	owned, err := s.ownsQuestion(ctx, choice.QuestionID, viewer)
	if err != nil {
		return domain.Choice{}, err
	}
	if !owned {
		choice = hideCorrect(choice)
	}
	return choice, nil
}

// ListChoices returns choices, optionally limited to one question.
func (s *ContentService) ListChoices(ctx context.Context, questionID int64, viewer domain.User) ([]domain.Choice, error) {
	if questionID != 0 {
		if _, err := s.store.FindQuestion(ctx, questionID); err != nil {
			return nil, err
		}
	}
	choices, err := s.store.ListChoices(ctx, questionID)
	if err != nil {
		return nil, err
	}
	owners := make(map[int64]bool)
	for i := range choices {
		owned, ok := owners[choices[i].QuestionID]
		if !ok {
			if owned, err = s.ownsQuestion(ctx, choices[i].QuestionID, viewer); err != nil {
				return nil, err
			}
			owners[choices[i].QuestionID] = owned
		}
		if !owned {
			choices[i] = hideCorrect(choices[i])
		}
	}
	return choices, nil
}

func (s *ContentService) UpdateChoice(ctx context.Context, choiceID int64, user domain.User, text string, isCorrect bool) (domain.Choice, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Choice{}, domain.ErrInvalidInput
	}
	choice, err := s.store.FindChoice(ctx, choiceID)
	if err != nil {
		return domain.Choice{}, err
	}
	question, err := s.authorizeQuestion(ctx, choice.QuestionID, user)
	if err != nil {
		return domain.Choice{}, err
	}
	choice.Text = text
	choice.IsCorrect = isCorrect
	if err := s.store.UpdateChoice(ctx, choice); err != nil {
		return domain.Choice{}, err
	}
	s.invalidate(ctx, question.QuizID)
	return choice, nil
}

func (s *ContentService) DeleteChoice(ctx context.Context, choiceID int64, user domain.User) error {
	choice, err := s.store.FindChoice(ctx, choiceID)
	if err != nil {
		return err
	}
	question, err := s.authorizeQuestion(ctx, choice.QuestionID, user)
	if err != nil {
		return err
	}
	if err := s.store.DeleteChoice(ctx, choice.ID); err != nil {
		return err
	}
	s.invalidate(ctx, question.QuizID)
	return nil
}

// BulkAdd creates questions and their choices for a quiz owned by user.
// Every spec is validated first and all rows are written in one transaction.
func (s *ContentService) BulkAdd(ctx context.Context, quizID int64, user domain.User, specs []domain.QuestionSpec) (int, error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	if !quiz.OwnedBy(user) {
		return 0, domain.ErrNotQuizOwner
	}
	if len(specs) == 0 {
		return 0, domain.ErrNoQuestions
	}
	for i, spec := range specs {
		if err := validateQuestionSpec(i, spec); err != nil {
			return 0, err
		}
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, spec := range specs {
			question := domain.Question{QuizID: quiz.ID, Text: spec.Text}
			if err := repo.CreateQuestion(ctx, &question); err != nil {
				return err
			}
			if err := createChoices(ctx, repo, question.ID, spec.Choices); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, quiz.ID)
	s.logger.Info("questions added", "quiz_id", quiz.ID, "user_id", user.ID, "count", len(specs))
	return len(specs), nil
}

// BulkAddChoices appends choices to a question of a quiz owned by user.
func (s *ContentService) BulkAddChoices(ctx context.Context, questionID int64, user domain.User, specs []domain.ChoiceSpec) (int, error) {
	question, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	quiz, err := s.store.FindQuiz(ctx, question.QuizID)
	if err != nil {
		return 0, err
	}
	if !quiz.OwnedBy(user) {
		return 0, domain.ErrNotQuizOwner
	}
	if len(specs) == 0 {
		return 0, domain.ErrNoChoices
	}
	for i, spec := range specs {
		if strings.TrimSpace(spec.Text) == "" {
			return 0, &domain.InvalidQuestionSpecError{Index: i, Reason: "choice text is required"}
		}
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, repo Repository) error {
		return createChoices(ctx, repo, question.ID, specs)
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, quiz.ID)
	return len(specs), nil
}

func (s *ContentService) loadContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if s.cache != nil {
		return s.cache.GetQuizContent(ctx, quizID)
	}
	return s.store.LoadQuizContent(ctx, quizID)
}

func (s *ContentService) invalidate(ctx context.Context, quizID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		s.logger.Warn("invalidate quiz content failed", "quiz_id", quizID, "error", err)
	}
}

func (s *ContentService) authorizeQuiz(ctx context.Context, quizID int64, user domain.User) (domain.Quiz, error) {
	quiz, err := s.store.FindQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !canEdit(quiz, user) {
		return domain.Quiz{}, domain.ErrNotQuizOwner
	}
	return quiz, nil
}

func (s *ContentService) authorizeQuestion(ctx context.Context, questionID int64, user domain.User) (domain.Question, error) {
	question, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if _, err := s.authorizeQuiz(ctx, question.QuizID, user); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *ContentService) ownsQuestion(ctx context.Context, questionID int64, user domain.User) (bool, error) {
	question, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return false, err
	}
	quiz, err := s.store.FindQuiz(ctx, question.QuizID)
	if err != nil {
		return false, err
	}
	return quiz.OwnedBy(user), nil
}

func canEdit(quiz domain.Quiz, user domain.User) bool {
	return user.IsStaff || quiz.OwnedBy(user)
}

func validateQuestionSpec(index int, spec domain.QuestionSpec) error {
	if strings.TrimSpace(spec.Text) == "" {
		return &domain.InvalidQuestionSpecError{Index: index, Reason: "question text is required"}
	}
	if len(spec.Choices) == 0 {
		return &domain.InvalidQuestionSpecError{Index: index, Reason: "each question must have at least one choice"}
	}
	for _, choice := range spec.Choices {
		if strings.TrimSpace(choice.Text) == "" {
			return &domain.InvalidQuestionSpecError{Index: index, Reason: "choice text is required"}
		}
	}
	return nil
}

func createChoices(ctx context.Context, repo ContentRepository, questionID int64, specs []domain.ChoiceSpec) error {
	for _, spec := range specs {
		choice := domain.Choice{QuestionID: questionID, Text: spec.Text, IsCorrect: spec.IsCorrect}
		if err := repo.CreateChoice(ctx, &choice); err != nil {
			return err
		}
	}
	return nil
}

// redactQuiz copies the quiz with every correct flag cleared; cached content is shared.
func redactQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.Choices = redactChoices(q.Choices)
		questions[i] = q
	}
	quiz.Questions = questions
	return quiz
}

func redactChoices(choices []domain.Choice) []domain.Choice {
	out := make([]domain.Choice, len(choices))
	for i, c := range choices {
		out[i] = hideCorrect(c)
	}
	return out
}

func hideCorrect(c domain.Choice) domain.Choice {
	c.IsCorrect = false
	c.Hidden = true
	return c
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrQuizNotFound) ||
		errors.Is(err, domain.ErrQuestionNotFound) ||
		errors.Is(err, domain.ErrChoiceNotFound)
}
