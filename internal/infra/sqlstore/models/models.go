package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsStaff      bool      `bun:"is_staff,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedBy   int64     `bun:"created_by,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID     int64  `bun:"id,pk,autoincrement"`
	QuizID int64  `bun:"quiz_id,notnull"`
	Text   string `bun:"text,notnull"`
}

type Choice struct {
	bun.BaseModel `bun:"table:choices,alias:c"`

	ID         int64  `bun:"id,pk,autoincrement"`
	QuestionID int64  `bun:"question_id,notnull"`
	Text       string `bun:"text,notnull"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

// Submission is unique per (user, quiz).
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull,unique:submissions_user_quiz"`
	QuizID      int64     `bun:"quiz_id,notnull,unique:submissions_user_quiz"`
	Score       int       `bun:"score,notnull"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
}

type Answer struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID           int64 `bun:"id,pk,autoincrement"`
	SubmissionID int64 `bun:"submission_id,notnull"`
	QuestionID   int64 `bun:"question_id,notnull"`
	ChoiceID     int64 `bun:"choice_id,notnull"`
}
