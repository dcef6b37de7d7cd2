package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound is returned when a quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound is returned when a question does not exist or belongs to another quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrChoiceNotFound is returned when a choice does not exist or belongs to another question.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound       = errors.New("user not found")
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrAlreadySubmitted is returned on a second submission for the same (user, quiz).
	ErrAlreadySubmitted = errors.New("you have already submitted this quiz")
	ErrUsernameTaken    = errors.New("username already taken")

	// ErrCreatorCannotSubmit prevents quiz creators from taking their own quiz.
	ErrCreatorCannotSubmit = errors.New("quiz creators cannot take their own quiz")
	// ErrNotQuizOwner is returned when an owner-only action is attempted by someone else.
	ErrNotQuizOwner  = errors.New("only the quiz creator may perform this action")
	ErrStaffRequired = errors.New("only staff users may perform this action")

	ErrNoAnswers   = errors.New("no answers provided")
	ErrNoQuestions = errors.New("no questions provided")
	ErrNoChoices   = errors.New("no choices provided")
	// ErrDuplicateQuestion rejects a submission that answers one question twice.
	ErrDuplicateQuestion = errors.New("question answered more than once")
	// ErrInvalidAnswer marks a submitted (question, choice) pair that does not fit the quiz.
	ErrInvalidAnswer = errors.New("invalid answer data")
	// ErrInvalidQuestionSpec marks a bulk question entry that cannot be created.
	ErrInvalidQuestionSpec = errors.New("invalid question data")
	ErrInvalidInput        = errors.New("invalid input")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrFeedsUnavailable is returned when the server runs without live submission feeds.
	ErrFeedsUnavailable = errors.New("live submission feeds are not enabled")
)

// InvalidAnswerError identifies the offending entry of a rejected submission.
type InvalidAnswerError struct {
	Index      int
	QuestionID int64
	ChoiceID   int64
	Reason     error
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer data at index %d (question=%d, selected_choice=%d): %v",
		e.Index, e.QuestionID, e.ChoiceID, e.Reason)
}

func (e *InvalidAnswerError) Unwrap() []error {
	return []error{ErrInvalidAnswer, e.Reason}
}

// InvalidQuestionSpecError identifies the first bulk entry that failed validation.
type InvalidQuestionSpecError struct {
	Index  int
	Reason string
}

func (e *InvalidQuestionSpecError) Error() string {
	return fmt.Sprintf("question at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidQuestionSpecError) Unwrap() error {
	return ErrInvalidQuestionSpec
}
