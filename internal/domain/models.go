package domain

import "time"

// User is an authenticated account. Staff users may create quizzes.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
}

// Choice is a possible answer for a question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	// Hidden marks a copy whose IsCorrect was withheld from the viewer.
	Hidden bool `json:"-"`
}

// Question belongs to exactly one quiz.
type Question struct {
	ID      int64    `json:"id"`
	QuizID  int64    `json:"quiz"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices,omitempty"`
}

// Quiz is a collection of questions owned by its creator.
// Questions is only populated by content loads.
type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions,omitempty"`
}

// OwnedBy reports whether the user created the quiz.
func (q Quiz) OwnedBy(user User) bool {
	return q.CreatedBy == user.ID
}

// Submission is one user's single attempt at a quiz.
type Submission struct {
	ID          int64
	UserID      int64
	Username    string
	QuizID      int64
	QuizTitle   string
	Score       int
	SubmittedAt time.Time
	Answers     []Answer
}

// Answer is one recorded (question, choice) pair within a submission.
type Answer struct {
	ID           int64
	SubmissionID int64
	QuestionID   int64
	ChoiceID     int64
	QuestionText string
	ChoiceText   string
}

// AnswerSubmission is a single (question, choice) pair sent by a student.
type AnswerSubmission struct {
	QuestionID int64
	ChoiceID   int64
}

// SubmissionResult summarizes a scored submission.
type SubmissionResult struct {
	SubmissionID   int64
	Score          int
	TotalQuestions int
	Percentage     float64
}

// SubmissionEvent is emitted after a submission is committed.
type SubmissionEvent struct {
	SubmissionID   int64     `json:"submission_id"`
	QuizID         int64     `json:"quiz_id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Percentage     float64   `json:"percentage"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// QuestionSpec describes a question with its choices for bulk creation.
type QuestionSpec struct {
	Text    string
	Choices []ChoiceSpec
}

// ChoiceSpec describes one choice for bulk creation.
type ChoiceSpec struct {
	Text      string
	IsCorrect bool
}
