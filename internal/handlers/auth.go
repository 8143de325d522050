package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/types"
)

const maxFormMemory = 1 << 20

// AuthHandler provides registration, login and self-service endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *auth.SessionIssuer
	gates       *Gatekeeper
	logger      logrus.FieldLogger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *auth.SessionIssuer, gates *Gatekeeper, logger logrus.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		gates:       gates,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(handler.gates.RequireActive).Get("/me", handler.Me)
	r.With(handler.gates.RequireActive).Put("/me", handler.UpdateMe)
}

type RegisterRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Password string  `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileUpdateRequest lists the fields a user may change on their own
// account. Any other field in the body is rejected.
type ProfileUpdateRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and returns a bearer token. It accepts the
// OAuth2 password form as well as a JSON body.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseLoginRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	token, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "incorrect username or password")
		case errors.Is(err, auth.ErrAccountDisabled):
			writeError(w, http.StatusBadRequest, "inactive user")
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies an allow-listed update to the current user.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req ProfileUpdateRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user, types.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func parseLoginRequest(r *http.Request) (LoginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return LoginRequest{}, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return LoginRequest{}, err
		}
	default:
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return LoginRequest{}, err
		}
		return req, nil
	}

	return LoginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}, nil
}
