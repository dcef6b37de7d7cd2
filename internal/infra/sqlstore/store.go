package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/sqlstore/models"
)

// Store implements app.Store on top of bun.
type Store struct {
	repo
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{repo: repo{db: db}, db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repo app.Repository) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &repo{db: tx})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// repo runs queries against either the database or an open transaction.
type repo struct {
	db bun.IDB
}

func (r *repo) CreateUser(ctx context.Context, user *domain.User) error {
	m := models.User{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		IsStaff:      user.IsStaff,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = m.ID
	return nil
}

func (r *repo) FindUser(ctx context.Context, id int64) (domain.User, error) {
	var m models.User
	err := r.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return userFromModel(m), nil
}

func (r *repo) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var m models.User
	err := r.db.NewSelect().Model(&m).Where("username = ?", username).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return userFromModel(m), nil
}

func (r *repo) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	m := models.Quiz{
		Title:       quiz.Title,
		Description: quiz.Description,
		CreatedBy:   quiz.CreatedBy,
		CreatedAt:   quiz.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	quiz.ID = m.ID
	return nil
}

func (r *repo) FindQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var m models.Quiz
	err := r.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound)
	}
	return quizFromModel(m), nil
}

func (r *repo) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var rows []models.Quiz
	if err := r.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, m := range rows {
		out = append(out, quizFromModel(m))
	}
	return out, nil
}

func (r *repo) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	res, err := r.db.NewUpdate().
		Model((*models.Quiz)(nil)).
		Set("title = ?", quiz.Title).
		Set("description = ?", quiz.Description).
		Where("id = ?", quiz.ID).
		Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound)
}

func (r *repo) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*models.Quiz)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound)
}

func (r *repo) CountQuestions(ctx context.Context, quizID int64) (int, error) {
	return r.db.NewSelect().Model((*models.Question)(nil)).Where("quiz_id = ?", quizID).Count(ctx)
}

func (r *repo) LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := r.FindQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := r.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(questions) == 0 {
		return quiz, nil
	}

	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	var choices []models.Choice
	err = r.db.NewSelect().
		Model(&choices).
		Where("question_id IN (?)", bun.In(ids)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load choices: %w", err)
	}
	byQuestion := make(map[int64][]domain.Choice, len(questions))
	for _, m := range choices {
		byQuestion[m.QuestionID] = append(byQuestion[m.QuestionID], choiceFromModel(m))
	}
	for i := range questions {
		questions[i].Choices = byQuestion[questions[i].ID]
	}
	quiz.Questions = questions
	return quiz, nil
}

func (r *repo) CreateQuestion(ctx context.Context, question *domain.Question) error {
	m := models.Question{QuizID: question.QuizID, Text: question.Text}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	question.ID = m.ID
	return nil
}

func (r *repo) FindQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var m models.Question
	err := r.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	return questionFromModel(m), nil
}

func (r *repo) FindQuestionInQuiz(ctx context.Context, questionID, quizID int64) (domain.Question, error) {
	var m models.Question
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", questionID).
		Where("quiz_id = ?", quizID).
		Scan(ctx)
	if err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	return questionFromModel(m), nil
}

func (r *repo) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []models.Question
	q := r.db.NewSelect().Model(&rows).OrderExpr("id ASC")
	if quizID != 0 {
		q = q.Where("quiz_id = ?", quizID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, m := range rows {
		out = append(out, questionFromModel(m))
	}
	return out, nil
}

func (r *repo) UpdateQuestion(ctx context.Context, question domain.Question) error {
	res, err := r.db.NewUpdate().
		Model((*models.Question)(nil)).
		Set("text = ?", question.Text).
		Where("id = ?", question.ID).
		Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound)
}

func (r *repo) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*models.Question)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound)
}

func (r *repo) CreateChoice(ctx context.Context, choice *domain.Choice) error {
	m := models.Choice{QuestionID: choice.QuestionID, Text: choice.Text, IsCorrect: choice.IsCorrect}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert choice: %w", err)
	}
	choice.ID = m.ID
	return nil
}

func (r *repo) FindChoice(ctx context.Context, id int64) (domain.Choice, error) {
	var m models.Choice
	err := r.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.Choice{}, notFound(err, domain.ErrChoiceNotFound)
	}
	return choiceFromModel(m), nil
}

func (r *repo) FindChoiceInQuestion(ctx context.Context, choiceID, questionID int64) (domain.Choice, error) {
	var m models.Choice
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", choiceID).
		Where("question_id = ?", questionID).
		Scan(ctx)
	if err != nil {
		return domain.Choice{}, notFound(err, domain.ErrChoiceNotFound)
	}
	return choiceFromModel(m), nil
}

func (r *repo) ListChoices(ctx context.Context, questionID int64) ([]domain.Choice, error) {
	var rows []models.Choice
	q := r.db.NewSelect().Model(&rows).OrderExpr("id ASC")
	if questionID != 0 {
		q = q.Where("question_id = ?", questionID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	out := make([]domain.Choice, 0, len(rows))
	for _, m := range rows {
		out = append(out, choiceFromModel(m))
	}
	return out, nil
}

func (r *repo) UpdateChoice(ctx context.Context, choice domain.Choice) error {
	res, err := r.db.NewUpdate().
		Model((*models.Choice)(nil)).
		Set("text = ?", choice.Text).
		Set("is_correct = ?", choice.IsCorrect).
		Where("id = ?", choice.ID).
		Exec(ctx)
	return affected(res, err, domain.ErrChoiceNotFound)
}

func (r *repo) DeleteChoice(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*models.Choice)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrChoiceNotFound)
}

func (r *repo) HasSubmission(ctx context.Context, userID, quizID int64) (bool, error) {
	return r.db.NewSelect().
		Model((*models.Submission)(nil)).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Exists(ctx)
}

func (r *repo) CreateSubmission(ctx context.Context, submission *domain.Submission) error {
	m := models.Submission{
		UserID:      submission.UserID,
		QuizID:      submission.QuizID,
		Score:       submission.Score,
		SubmittedAt: submission.SubmittedAt,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadySubmitted
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	submission.ID = m.ID
	return nil
}

func (r *repo) CreateAnswer(ctx context.Context, answer *domain.Answer) error {
	m := models.Answer{
		SubmissionID: answer.SubmissionID,
		QuestionID:   answer.QuestionID,
		ChoiceID:     answer.ChoiceID,
	}
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	answer.ID = m.ID
	return nil
}

func (r *repo) UpdateSubmissionScore(ctx context.Context, submissionID int64, score int) error {
	res, err := r.db.NewUpdate().
		Model((*models.Submission)(nil)).
		Set("score = ?", score).
		Where("id = ?", submissionID).
		Exec(ctx)
	return affected(res, err, domain.ErrSubmissionNotFound)
}

type submissionRow struct {
	ID          int64     `bun:"id"`
	UserID      int64     `bun:"user_id"`
	Username    string    `bun:"username"`
	QuizID      int64     `bun:"quiz_id"`
	QuizTitle   string    `bun:"quiz_title"`
	Score       int       `bun:"score"`
	SubmittedAt time.Time `bun:"submitted_at"`
}

type answerRow struct {
	ID           int64  `bun:"id"`
	SubmissionID int64  `bun:"submission_id"`
	QuestionID   int64  `bun:"question_id"`
	ChoiceID     int64  `bun:"choice_id"`
	QuestionText string `bun:"question_text"`
	ChoiceText   string `bun:"choice_text"`
}

func (r *repo) ListSubmissions(ctx context.Context, filter app.SubmissionFilter) ([]domain.Submission, error) {
	var rows []submissionRow
	q := r.db.NewSelect().
		TableExpr("submissions AS s").
		ColumnExpr("s.id, s.user_id, s.quiz_id, s.score, s.submitted_at").
		ColumnExpr("u.username").
		ColumnExpr("qz.title AS quiz_title").
		Join("JOIN users AS u ON u.id = s.user_id").
		Join("JOIN quizzes AS qz ON qz.id = s.quiz_id").
		OrderExpr("s.submitted_at ASC, s.id ASC")
	if filter.UserID != 0 {
		q = q.Where("s.user_id = ?", filter.UserID)
	}
	if filter.QuizID != 0 {
		q = q.Where("s.quiz_id = ?", filter.QuizID)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]domain.Submission, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var answers []answerRow
	err := r.db.NewSelect().
		TableExpr("answers AS a").
		ColumnExpr("a.id, a.submission_id, a.question_id, a.choice_id").
		ColumnExpr("q.text AS question_text").
		ColumnExpr("c.text AS choice_text").
		Join("JOIN questions AS q ON q.id = a.question_id").
		Join("JOIN choices AS c ON c.id = a.choice_id").
		Where("a.submission_id IN (?)", bun.In(ids)).
		OrderExpr("a.id ASC").
		Scan(ctx, &answers)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	bySubmission := make(map[int64][]domain.Answer, len(rows))
	for _, a := range answers {
		bySubmission[a.SubmissionID] = append(bySubmission[a.SubmissionID], domain.Answer{
			ID:           a.ID,
			SubmissionID: a.SubmissionID,
			QuestionID:   a.QuestionID,
			ChoiceID:     a.ChoiceID,
			QuestionText: a.QuestionText,
			ChoiceText:   a.ChoiceText,
		})
	}

	for _, row := range rows {
		answers := bySubmission[row.ID]
		if answers == nil {
			answers = []domain.Answer{}
		}
		out = append(out, domain.Submission{
			ID:          row.ID,
			UserID:      row.UserID,
			Username:    row.Username,
			QuizID:      row.QuizID,
			QuizTitle:   row.QuizTitle,
			Score:       row.Score,
			SubmittedAt: row.SubmittedAt,
			Answers:     answers,
		})
	}
	return out, nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func affected(res sql.Result, err, sentinel error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func userFromModel(m models.User) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		IsStaff:      m.IsStaff,
		CreatedAt:    m.CreatedAt,
	}
}

func quizFromModel(m models.Quiz) domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

func questionFromModel(m models.Question) domain.Question {
	return domain.Question{ID: m.ID, QuizID: m.QuizID, Text: m.Text}
}

func choiceFromModel(m models.Choice) domain.Choice {
	return domain.Choice{ID: m.ID, QuestionID: m.QuestionID, Text: m.Text, IsCorrect: m.IsCorrect}
}
