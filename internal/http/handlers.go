package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	q, err := s.parseListQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := s.query.List(r.Context(), user.ID, q.Filter, q.Limit, q.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildPage(page))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	params, err := parseCreateForm(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := s.mutations.Add(r.Context(), user.ID, params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, buildCreate(res))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	params, err := parseUpdateForm(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := s.mutations.Update(r.Context(), user.ID, id, params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildUpdate(res))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	res, err := s.mutations.Delete(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildDelete(res))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	categories, err := s.categories.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": buildCategories(categories)})
}

func transactionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return 0, false
	}
	return id, true
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
