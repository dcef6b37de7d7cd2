package http

import (
	"net/http"
)

func (a *API) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	pair, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) HandleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	pair, err := a.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}
