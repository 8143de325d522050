package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/types"
)

// UserHandler provides the administrative user-management endpoints. Every
// route requires a superuser.
type UserHandler struct {
	userService *services.UserService
	logger      logrus.FieldLogger
}

func NewUserHandler(userService *services.UserService, logger logrus.FieldLogger) *UserHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserHandler{userService: userService, logger: logger}
}

// UserRouter registers user-management routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, gates *Gatekeeper) {
	r.Use(gates.RequireSuperuser)

	r.Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
		r.Post("/toggle-active", handler.ToggleActive)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.userService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd types.UserUpdate
	if err := decodeStrict(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.userService.UpdateUser(r.Context(), actor, id, upd)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
}

func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.ToggleActive(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update user")
		return
	}

	message := "user deactivated"
	if user.IsActive {
		message = "user activated"
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}
