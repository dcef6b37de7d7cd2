package memory

import (
	"context"
	"sort"
	"sync"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
)

// Store is an in-memory implementation of app.Store.
// Transactions run on a copy of the data that replaces the original on success.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type state struct {
	lastID      int64
	users       map[int64]domain.User
	quizzes     map[int64]domain.Quiz
	questions   map[int64]domain.Question
	choices     map[int64]domain.Choice
	submissions map[int64]domain.Submission
	answers     map[int64]domain.Answer
}

func newState() *state {
	return &state{
		users:       make(map[int64]domain.User),
		quizzes:     make(map[int64]domain.Quiz),
		questions:   make(map[int64]domain.Question),
		choices:     make(map[int64]domain.Choice),
		submissions: make(map[int64]domain.Submission),
		answers:     make(map[int64]domain.Answer),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.lastID = s.lastID
	copyMap(c.users, s.users)
	copyMap(c.quizzes, s.quizzes)
	copyMap(c.questions, s.questions)
	copyMap(c.choices, s.choices)
	copyMap(c.submissions, s.submissions)
	copyMap(c.answers, s.answers)
	return c
}

func copyMap[V any](dst, src map[int64]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (s *state) nextID() int64 {
	s.lastID++
	return s.lastID
}

// RunInTx runs fn against a snapshot and commits it when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repo app.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &txRepo{st: snapshot}); err != nil {
		return err
	}
	s.st = snapshot
	return nil
}

func (s *Store) do(fn func(r *txRepo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txRepo{st: s.st})
}

func get[T any](s *Store, fn func(r *txRepo) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txRepo{st: s.st})
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.do(func(r *txRepo) error { return r.CreateUser(ctx, user) })
}

func (s *Store) FindUser(ctx context.Context, id int64) (domain.User, error) {
	return get(s, func(r *txRepo) (domain.User, error) { return r.FindUser(ctx, id) })
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return get(s, func(r *txRepo) (domain.User, error) { return r.FindUserByUsername(ctx, username) })
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	return s.do(func(r *txRepo) error { return r.CreateQuiz(ctx, quiz) })
}

func (s *Store) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	return get(s, func(r *txRepo) (domain.Quiz, error) { return r.FindQuiz(ctx, id) })
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return get(s, func(r *txRepo) ([]domain.Quiz, error) { return r.ListQuizzes(ctx) })
}

func (s *Store) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.do(func(r *txRepo) error { return r.UpdateQuiz(ctx, quiz) })
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	return s.do(func(r *txRepo) error { return r.DeleteQuiz(ctx, id) })
}

func (s *Store) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	return get(s, func(r *txRepo) (int, error) { return r.CountQuestions(ctx, quizID) })
}

func (s *Store) LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return get(s, func(r *txRepo) (domain.Quiz, error) { return r.LoadQuizContent(ctx, quizID) })
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	return s.do(func(r *txRepo) error { return r.CreateQuestion(ctx, question) })
}

func (s *Store) FindQuestion(ctx context.Context, id int64) (domain.Question, error) {
	return get(s, func(r *txRepo) (domain.Question, error) { return r.FindQuestion(ctx, id) })
}

func (s *Store) FindQuestionInQuiz(ctx context.Context, questionID, quizID int64) (domain.Question, error) {
	return get(s, func(r *txRepo) (domain.Question, error) { return r.FindQuestionInQuiz(ctx, questionID, quizID) })
}

func (s *Store) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	return get(s, func(r *txRepo) ([]domain.Question, error) { return r.ListQuestions(ctx, quizID) })
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) error {
	return s.do(func(r *txRepo) error { return r.UpdateQuestion(ctx, question) })
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	return s.do(func(r *txRepo) error { return r.DeleteQuestion(ctx, id) })
}

func (s *Store) CreateChoice(ctx context.Context, choice *domain.Choice) error {
	return s.do(func(r *txRepo) error { return r.CreateChoice(ctx, choice) })
}

func (s *Store) FindChoice(ctx context.Context, id int64) (domain.Choice, error) {
	return get(s, func(r *txRepo) (domain.Choice, error) { return r.FindChoice(ctx, id) })
}

func (s *Store) FindChoiceInQuestion(ctx context.Context, choiceID, questionID int64) (domain.Choice, error) {
	return get(s, func(r *txRepo) (domain.Choice, error) { return r.FindChoiceInQuestion(ctx, choiceID, questionID) })
}

func (s *Store) ListChoices(ctx context.Context, questionID int64) ([]domain.Choice, error) {
	return get(s, func(r *txRepo) ([]domain.Choice, error) { return r.ListChoices(ctx, questionID) })
}

func (s *Store) UpdateChoice(ctx context.Context, choice domain.Choice) error {
	return s.do(func(r *txRepo) error { return r.UpdateChoice(ctx, choice) })
}

func (s *Store) DeleteChoice(ctx context.Context, id int64) error {
	return s.do(func(r *txRepo) error { return r.DeleteChoice(ctx, id) })
}

func (s *Store) HasSubmission(ctx context.Context, userID, quizID int64) (bool, error) {
	return get(s, func(r *txRepo) (bool, error) { return r.HasSubmission(ctx, userID, quizID) })
}

func (s *Store) CreateSubmission(ctx context.Context, submission *domain.Submission) error {
	return s.do(func(r *txRepo) error { return r.CreateSubmission(ctx, submission) })
}

func (s *Store) CreateAnswer(ctx context.Context, answer *domain.Answer) error {
	return s.do(func(r *txRepo) error { return r.CreateAnswer(ctx, answer) })
}

func (s *Store) UpdateSubmissionScore(ctx context.Context, submissionID int64, score int) error {
	return s.do(func(r *txRepo) error { return r.UpdateSubmissionScore(ctx, submissionID, score) })
}

func (s *Store) ListSubmissions(ctx context.Context, filter app.SubmissionFilter) ([]domain.Submission, error) {
	return get(s, func(r *txRepo) ([]domain.Submission, error) { return r.ListSubmissions(ctx, filter) })
}

// txRepo operates on one state without locking; the Store holds the lock.
type txRepo struct {
	st *state
}

func (r *txRepo) CreateUser(_ context.Context, user *domain.User) error {
	for _, existing := range r.st.users {
		if existing.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = r.st.nextID()
	r.st.users[user.ID] = *user
	return nil
}

func (r *txRepo) FindUser(_ context.Context, id int64) (domain.User, error) {
	user, ok := r.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *txRepo) FindUserByUsername(_ context.Context, username string) (domain.User, error) {
	for _, user := range r.st.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *txRepo) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	if _, ok := r.st.users[quiz.CreatedBy]; !ok {
		return domain.ErrUserNotFound
	}
	quiz.ID = r.st.nextID()
	stored := *quiz
	stored.Questions = nil
	r.st.quizzes[quiz.ID] = stored
	return nil
}

func (r *txRepo) FindQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	quiz, ok := r.st.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (r *txRepo) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	return sortedValues(r.st.quizzes, func(q domain.Quiz) bool { return true }), nil
}

func (r *txRepo) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	existing, ok := r.st.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	existing.Title = quiz.Title
	existing.Description = quiz.Description
	r.st.quizzes[quiz.ID] = existing
	return nil
}

func (r *txRepo) DeleteQuiz(_ context.Context, id int64) error {
	if _, ok := r.st.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.st.quizzes, id)
	for qid, question := range r.st.questions {
		if question.QuizID == id {
			r.deleteQuestion(qid)
		}
	}
	for sid, submission := range r.st.submissions {
		if submission.QuizID == id {
			delete(r.st.submissions, sid)
			for aid, answer := range r.st.answers {
				if answer.SubmissionID == sid {
					delete(r.st.answers, aid)
				}
			}
		}
	}
	return nil
}

func (r *txRepo) CountQuestions(_ context.Context, quizID int64) (int, error) {
	count := 0
	for _, question := range r.st.questions {
		if question.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (r *txRepo) LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := r.FindQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, _ := r.ListQuestions(ctx, quizID)
	for i := range questions {
		questions[i].Choices, _ = r.ListChoices(ctx, questions[i].ID)
	}
	quiz.Questions = questions
	return quiz, nil
}

func (r *txRepo) CreateQuestion(_ context.Context, question *domain.Question) error {
	if _, ok := r.st.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.ID = r.st.nextID()
	stored := *question
	stored.Choices = nil
	r.st.questions[question.ID] = stored
	return nil
}

func (r *txRepo) FindQuestion(_ context.Context, id int64) (domain.Question, error) {
	question, ok := r.st.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (r *txRepo) FindQuestionInQuiz(_ context.Context, questionID, quizID int64) (domain.Question, error) {
	question, ok := r.st.questions[questionID]
	if !ok || question.QuizID != quizID {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (r *txRepo) ListQuestions(_ context.Context, quizID int64) ([]domain.Question, error) {
	return sortedValues(r.st.questions, func(q domain.Question) bool {
		return quizID == 0 || q.QuizID == quizID
	}), nil
}

func (r *txRepo) UpdateQuestion(_ context.Context, question domain.Question) error {
	existing, ok := r.st.questions[question.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	existing.Text = question.Text
	r.st.questions[question.ID] = existing
	return nil
}

func (r *txRepo) DeleteQuestion(_ context.Context, id int64) error {
	if _, ok := r.st.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	r.deleteQuestion(id)
	return nil
}

func (r *txRepo) deleteQuestion(id int64) {
	delete(r.st.questions, id)
	for cid, choice := range r.st.choices {
		if choice.QuestionID == id {
			r.deleteChoice(cid)
		}
	}
	for aid, answer := range r.st.answers {
		if answer.QuestionID == id {
			delete(r.st.answers, aid)
		}
	}
}

func (r *txRepo) CreateChoice(_ context.Context, choice *domain.Choice) error {
	if _, ok := r.st.questions[choice.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	choice.ID = r.st.nextID()
	r.st.choices[choice.ID] = *choice
	return nil
}

func (r *txRepo) FindChoice(_ context.Context, id int64) (domain.Choice, error) {
	choice, ok := r.st.choices[id]
	if !ok {
		return domain.Choice{}, domain.ErrChoiceNotFound
	}
	return choice, nil
}

func (r *txRepo) FindChoiceInQuestion(_ context.Context, choiceID, questionID int64) (domain.Choice, error) {
	choice, ok := r.st.choices[choiceID]
	if !ok || choice.QuestionID != questionID {
		return domain.Choice{}, domain.ErrChoiceNotFound
	}
	return choice, nil
}

func (r *txRepo) ListChoices(_ context.Context, questionID int64) ([]domain.Choice, error) {
	return sortedValues(r.st.choices, func(c domain.Choice) bool {
		return questionID == 0 || c.QuestionID == questionID
	}), nil
}

func (r *txRepo) UpdateChoice(_ context.Context, choice domain.Choice) error {
	existing, ok := r.st.choices[choice.ID]
	if !ok {
		return domain.ErrChoiceNotFound
	}
	existing.Text = choice.Text
	existing.IsCorrect = choice.IsCorrect
	r.st.choices[choice.ID] = existing
	return nil
}

func (r *txRepo) DeleteChoice(_ context.Context, id int64) error {
	if _, ok := r.st.choices[id]; !ok {
		return domain.ErrChoiceNotFound
	}
	r.deleteChoice(id)
	return nil
}

func (r *txRepo) deleteChoice(id int64) {
	delete(r.st.choices, id)
	for aid, answer := range r.st.answers {
		if answer.ChoiceID == id {
			delete(r.st.answers, aid)
		}
	}
}

func (r *txRepo) HasSubmission(_ context.Context, userID, quizID int64) (bool, error) {
	for _, submission := range r.st.submissions {
		if submission.UserID == userID && submission.QuizID == quizID {
			return true, nil
		}
	}
	return false, nil
}

func (r *txRepo) CreateSubmission(ctx context.Context, submission *domain.Submission) error {
	if exists, _ := r.HasSubmission(ctx, submission.UserID, submission.QuizID); exists {
		return domain.ErrAlreadySubmitted
	}
	if _, ok := r.st.quizzes[submission.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if _, ok := r.st.users[submission.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	submission.ID = r.st.nextID()
	stored := *submission
	stored.Answers = nil
	r.st.submissions[submission.ID] = stored
	return nil
}

func (r *txRepo) CreateAnswer(_ context.Context, answer *domain.Answer) error {
	if _, ok := r.st.submissions[answer.SubmissionID]; !ok {
		return domain.ErrSubmissionNotFound
	}
	answer.ID = r.st.nextID()
	r.st.answers[answer.ID] = *answer
	return nil
}

func (r *txRepo) UpdateSubmissionScore(_ context.Context, submissionID int64, score int) error {
	submission, ok := r.st.submissions[submissionID]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	submission.Score = score
	r.st.submissions[submissionID] = submission
	return nil
}

func (r *txRepo) ListSubmissions(_ context.Context, filter app.SubmissionFilter) ([]domain.Submission, error) {
	out := make([]domain.Submission, 0)
	for _, submission := range r.st.submissions {
		if filter.UserID != 0 && submission.UserID != filter.UserID {
			continue
		}
		if filter.QuizID != 0 && submission.QuizID != filter.QuizID {
			continue
		}
		submission.Username = r.st.users[submission.UserID].Username
		submission.QuizTitle = r.st.quizzes[submission.QuizID].Title
		submission.Answers = r.answersOf(submission.ID)
		out = append(out, submission)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *txRepo) answersOf(submissionID int64) []domain.Answer {
	answers := sortedValues(r.st.answers, func(a domain.Answer) bool {
		return a.SubmissionID == submissionID
	})
	for i := range answers {
		answers[i].QuestionText = r.st.questions[answers[i].QuestionID].Text
		answers[i].ChoiceText = r.st.choices[answers[i].ChoiceID].Text
	}
	return answers
}

// sortedValues returns matching values ordered by key, which follows insertion order.
func sortedValues[V any](m map[int64]V, keep func(V) bool) []V {
	keys := make([]int64, 0, len(m))
	for k, v := range m {
		if keep(v) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
