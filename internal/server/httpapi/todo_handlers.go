package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/server/todos"
	"github.com/copypaster/server/internal/shared"
	"github.com/gorilla/mux"
)

// TodoHandler exposes the owner-scoped todo operations over HTTP. The owner
// is always the authenticated user from the request context.
type TodoHandler struct {
	todos *todos.Service
}

func NewTodoHandler(todos *todos.Service) *TodoHandler {
	return &TodoHandler{todos: todos}
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.todos.List(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	todo, err := h.todos.Get(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req todos.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, shared.ErrorValidation)
		return
	}

	todo, err := h.todos.Create(r.Context(), UserIDFromContext(r.Context()), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, shared.ErrorValidation)
		return
	}

	id := mux.Vars(r)["id"]
	todo, err := h.todos.Update(r.Context(), id, UserIDFromContext(r.Context()), &patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.todos.Delete(r.Context(), id, UserIDFromContext(r.Context())); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
