package http

import (
	"log/slog"
	"net/http"
)

// NewRouter wires every route. Paths keep their trailing slashes.
func NewRouter(api *API, ws *WSHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/token/{$}", api.HandleToken)
	mux.HandleFunc("POST /api/token/refresh/{$}", api.HandleTokenRefresh)

	mux.HandleFunc("GET /quizzes/{$}", api.authenticated(api.HandleListQuizzes))
	mux.HandleFunc("POST /quizzes/{$}", api.authenticated(api.HandleCreateQuiz))
	mux.HandleFunc("GET /quizzes/{id}/{$}", api.authenticated(api.HandleGetQuiz))
	mux.HandleFunc("PUT /quizzes/{id}/{$}", api.authenticated(api.HandleUpdateQuiz))
	mux.HandleFunc("DELETE /quizzes/{id}/{$}", api.authenticated(api.HandleDeleteQuiz))
	mux.HandleFunc("POST /quizzes/{id}/submit_quiz/{$}", api.authenticated(api.HandleSubmitQuiz))
	mux.HandleFunc("GET /quizzes/{id}/quiz_submissions/{$}", api.authenticated(api.HandleQuizSubmissions))
	mux.HandleFunc("POST /quizzes/{id}/bulk_add/{$}", api.authenticated(api.HandleBulkAdd))
	mux.HandleFunc("GET /quizzes/{id}/submissions/ws", api.authenticated(ws.ServeWS))

	mux.HandleFunc("GET /questions/{$}", api.authenticated(api.HandleListQuestions))
	mux.HandleFunc("POST /questions/{$}", api.authenticated(api.HandleCreateQuestion))
	mux.HandleFunc("GET /questions/{id}/{$}", api.authenticated(api.HandleGetQuestion))
	mux.HandleFunc("PUT /questions/{id}/{$}", api.authenticated(api.HandleUpdateQuestion))
	mux.HandleFunc("DELETE /questions/{id}/{$}", api.authenticated(api.HandleDeleteQuestion))
	mux.HandleFunc("POST /questions/{id}/bulk_add_choices/{$}", api.authenticated(api.HandleBulkAddChoices))

	mux.HandleFunc("GET /choices/{$}", api.authenticated(api.HandleListChoices))
	mux.HandleFunc("POST /choices/{$}", api.authenticated(api.HandleCreateChoice))
	mux.HandleFunc("GET /choices/{id}/{$}", api.authenticated(api.HandleGetChoice))
	mux.HandleFunc("PUT /choices/{id}/{$}", api.authenticated(api.HandleUpdateChoice))
	mux.HandleFunc("DELETE /choices/{id}/{$}", api.authenticated(api.HandleDeleteChoice))

	mux.HandleFunc("GET /submissions/my_submissions/{$}", api.authenticated(api.HandleMySubmissions))

	return logRequests(logger, mux)
}
