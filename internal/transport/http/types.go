package http

import (
	"time"

	"quizmaster-service/internal/domain"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type quizRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
}

type questionRequest struct {
	Quiz int64  `json:"quiz" validate:"required,gt=0"`
	Text string `json:"text" validate:"required"`
}

type questionUpdateRequest struct {
	Text string `json:"text" validate:"required"`
}

type choiceRequest struct {
	Question  int64  `json:"question" validate:"required,gt=0"`
	Text      string `json:"text" validate:"required,max=200"`
	IsCorrect bool   `json:"is_correct"`
}

type choiceUpdateRequest struct {
	Text      string `json:"text" validate:"required,max=200"`
	IsCorrect bool   `json:"is_correct"`
}

// Answer and bulk bodies are checked by the services so their errors keep
// the not-found/forbidden precedence.
type submitRequest struct {
	Answers []answerRequest `json:"answers"`
}

type answerRequest struct {
	Question       int64 `json:"question"`
	SelectedChoice int64 `json:"selected_choice"`
}

type choiceSpecRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type questionSpecRequest struct {
	Text    string              `json:"text"`
	Choices []choiceSpecRequest `json:"choices"`
}

type bulkAddRequest struct {
	Questions []questionSpecRequest `json:"questions"`
}

type bulkAddChoicesRequest struct {
	Choices []choiceSpecRequest `json:"choices"`
}

type submitResponse struct {
	Message        string  `json:"message"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Percentage     float64 `json:"percentage"`
}

type bulkAddResponse struct {
	Message string `json:"message"`
	Created int    `json:"created"`
}

type choiceResponse struct {
	ID        int64  `json:"id"`
	Question  int64  `json:"question"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type questionResponse struct {
	ID      int64            `json:"id"`
	Quiz    int64            `json:"quiz"`
	Text    string           `json:"text"`
	Choices []choiceResponse `json:"choices"`
}

type quizResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	CreatedBy   int64              `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	Questions   []questionResponse `json:"questions,omitempty"`
}

type answerResponse struct {
	ID                 int64  `json:"id"`
	Question           int64  `json:"question"`
	QuestionText       string `json:"question_text"`
	SelectedChoice     int64  `json:"selected_choice"`
	SelectedChoiceText string `json:"selected_choice_text"`
}

type submissionResponse struct {
	ID          int64            `json:"id"`
	User        int64            `json:"user"`
	Username    string           `json:"username"`
	Quiz        int64            `json:"quiz"`
	QuizTitle   string           `json:"quiz_title"`
	Score       int              `json:"score"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Answers     []answerResponse `json:"answers"`
}

func toChoiceResponse(c domain.Choice) choiceResponse {
	resp := choiceResponse{ID: c.ID, Question: c.QuestionID, Text: c.Text}
	if !c.Hidden {
		correct := c.IsCorrect
		resp.IsCorrect = &correct
	}
	return resp
}

func toChoiceResponses(choices []domain.Choice) []choiceResponse {
	out := make([]choiceResponse, 0, len(choices))
	for _, c := range choices {
		out = append(out, toChoiceResponse(c))
	}
	return out
}

func toQuestionResponse(q domain.Question) questionResponse {
	return questionResponse{ID: q.ID, Quiz: q.QuizID, Text: q.Text, Choices: toChoiceResponses(q.Choices)}
}

func toQuestionResponses(questions []domain.Question) []questionResponse {
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionResponse(q))
	}
	return out
}

func toQuizResponse(q domain.Quiz) quizResponse {
	resp := quizResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
	}
	if q.Questions != nil {
		resp.Questions = toQuestionResponses(q.Questions)
	}
	return resp
}

func toSubmissionResponses(submissions []domain.Submission) []submissionResponse {
	out := make([]submissionResponse, 0, len(submissions))
	for _, s := range submissions {
		answers := make([]answerResponse, 0, len(s.Answers))
		for _, a := range s.Answers {
			answers = append(answers, answerResponse{
				ID:                 a.ID,
				Question:           a.QuestionID,
				QuestionText:       a.QuestionText,
				SelectedChoice:     a.ChoiceID,
				SelectedChoiceText: a.ChoiceText,
			})
		}
		out = append(out, submissionResponse{
			ID:          s.ID,
			User:        s.UserID,
			Username:    s.Username,
			Quiz:        s.QuizID,
			QuizTitle:   s.QuizTitle,
			Score:       s.Score,
			SubmittedAt: s.SubmittedAt,
			Answers:     answers,
		})
	}
	return out
}
