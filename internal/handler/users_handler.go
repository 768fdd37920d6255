package handler

import (
	"context"
	"net/http"

	"school-admin/internal/model"
)

type userLister interface {
	List(ctx context.Context) ([]model.AuthUser, error)
}

type UsersHandler struct {
	users userLister
}

func NewUsersHandler(users userLister) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, nil)
}
