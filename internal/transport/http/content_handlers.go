package http

import (
	"net/http"
)

func (a *API) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	quizID, err := queryID(r, "quiz")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	questions, err := a.content.ListQuestions(r.Context(), quizID, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionResponses(questions))
}

func (a *API) HandleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var req questionRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	question, err := a.content.CreateQuestion(r.Context(), user, req.Quiz, req.Text)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionResponse(question))
}

func (a *API) HandleGetQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	question, err := a.content.GetQuestion(r.Context(), id, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionResponse(question))
}

func (a *API) HandleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req questionUpdateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	question, err := a.content.UpdateQuestion(r.Context(), id, user, req.Text)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionResponse(question))
}

func (a *API) HandleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.content.DeleteQuestion(r.Context(), id, user); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleBulkAddChoices(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req bulkAddChoicesRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	created, err := a.content.BulkAddChoices(r.Context(), id, user, toChoiceSpecs(req.Choices))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkAddResponse{Message: "Choices added successfully", Created: created})
}

func (a *API) HandleListChoices(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	questionID, err := queryID(r, "question")
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	choices, err := a.content.ListChoices(r.Context(), questionID, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChoiceResponses(choices))
}

func (a *API) HandleCreateChoice(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var req choiceRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	choice, err := a.content.CreateChoice(r.Context(), user, req.Question, req.Text, req.IsCorrect)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChoiceResponse(choice))
}

func (a *API) HandleGetChoice(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	choice, err := a.content.GetChoice(r.Context(), id, user)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChoiceResponse(choice))
}

func (a *API) HandleUpdateChoice(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	var req choiceUpdateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	choice, err := a.content.UpdateChoice(r.Context(), id, user, req.Text, req.IsCorrect)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toChoiceResponse(choice))
}

func (a *API) HandleDeleteChoice(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	if err := a.content.DeleteChoice(r.Context(), id, user); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
