package http

import (
	"net/http"

	"quizmaster-service/internal/domain"
)

func (a *API) HandleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.content.ListQuizzes(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	out := make([]quizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, toQuizResponse(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) HandleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var req quizRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	quiz, err := a.content.CreateQuiz(r.Context(), user, req.Title, req.Description)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuizResponse(quiz))
}

func (a *API) HandleGetQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	quiz, err := a.content.GetQuiz(r.Context(), id, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizResponse(quiz))
}

func (a *API) HandleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req quizRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	quiz, err := a.content.UpdateQuiz(r.Context(), id, user, req.Title, req.Description)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuizResponse(quiz))
}

func (a *API) HandleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.content.DeleteQuiz(r.Context(), id, user); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req submitRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	answers := make([]domain.AnswerSubmission, 0, len(req.Answers))
	for _, ans := range req.Answers {
		answers = append(answers, domain.AnswerSubmission{QuestionID: ans.Question, ChoiceID: ans.SelectedChoice})
	}

	result, err := a.submissions.Submit(r.Context(), id, user, answers)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message:        "Quiz submitted successfully",
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Percentage,
	})
}

func (a *API) HandleQuizSubmissions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	submissions, err := a.submissions.ListForQuiz(r.Context(), id, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

func (a *API) HandleMySubmissions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	submissions, err := a.submissions.ListForUser(r.Context(), user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

func (a *API) HandleBulkAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req bulkAddRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	specs := make([]domain.QuestionSpec, 0, len(req.Questions))
	for _, q := range req.Questions {
		specs = append(specs, domain.QuestionSpec{Text: q.Text, Choices: toChoiceSpecs(q.Choices)})
	}

	created, err := a.content.BulkAdd(r.Context(), id, user, specs)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkAddResponse{Message: "Questions and choices added successfully", Created: created})
}

func toChoiceSpecs(choices []choiceSpecRequest) []domain.ChoiceSpec {
	specs := make([]domain.ChoiceSpec, 0, len(choices))
	for _, c := range choices {
		specs = append(specs, domain.ChoiceSpec{Text: c.Text, IsCorrect: c.IsCorrect})
	}
	return specs
}
