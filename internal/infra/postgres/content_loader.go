package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quizmaster-service/internal/domain"
)

// ContentLoader reads a quiz with its questions and choices in a single query.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

const contentQuery = `
SELECT qz.id, qz.title, qz.description, qz.created_by, qz.created_at,
       q.id, q.text,
       c.id, c.text, c.is_correct
FROM quizzes qz
LEFT JOIN questions q ON q.quiz_id = qz.id
LEFT JOIN choices c ON c.question_id = q.id
WHERE qz.id = $1
ORDER BY q.id, c.id`

func (l *ContentLoader) LoadQuizContent(ctx context.Context, quizID int64) (domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, contentQuery, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	defer rows.Close()

	var (
		quiz  domain.Quiz
		found bool
	)
	for rows.Next() {
		var (
			questionID   sql.NullInt64
			questionText sql.NullString
			choiceID     sql.NullInt64
			choiceText   sql.NullString
			isCorrect    sql.NullBool
		)
		if err := rows.Scan(
			&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CreatedBy, &quiz.CreatedAt,
			&questionID, &questionText,
			&choiceID, &choiceText, &isCorrect,
		); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
		}
		found = true

		if !questionID.Valid {
			continue
		}
		n := len(quiz.Questions)
		if n == 0 || quiz.Questions[n-1].ID != questionID.Int64 {
			quiz.Questions = append(quiz.Questions, domain.Question{
				ID:     questionID.Int64,
				QuizID: quiz.ID,
				Text:   questionText.String,
			})
			n++
		}
		if choiceID.Valid {
			quiz.Questions[n-1].Choices = append(quiz.Questions[n-1].Choices, domain.Choice{
				ID:         choiceID.Int64,
				QuestionID: questionID.Int64,
				Text:       choiceText.String,
				IsCorrect:  isCorrect.Bool,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if !found {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}
