package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/types"
)

// Gatekeeper adapts the authorization chain to chi middleware. Each
// middleware resolves the bearer token and stops at its own stage, leaving
// the resolved user in the request context.
type Gatekeeper struct {
	authz  *auth.Authorizer
	logger logrus.FieldLogger
}

func NewGatekeeper(authz *auth.Authorizer, logger logrus.FieldLogger) *Gatekeeper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gatekeeper{authz: authz, logger: logger}
}

// RequireIdentity admits any request carrying a valid token for an existing user.
func (g *Gatekeeper) RequireIdentity(next http.Handler) http.Handler {
	return g.gate(next, nil)
}

// RequireActive additionally rejects inactive users.
func (g *Gatekeeper) RequireActive(next http.Handler) http.Handler {
	return g.gate(next, auth.RequireActive)
}

// RequireSuperuser additionally rejects users without the superuser flag.
func (g *Gatekeeper) RequireSuperuser(next http.Handler) http.Handler {
	return g.gate(next, auth.RequireSuperuser)
}

func (g *Gatekeeper) gate(next http.Handler, check func(types.User) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			g.writeAuthError(w, r, auth.ErrUnauthenticated)
			return
		}

		user, err := g.authz.CurrentUser(r.Context(), token)
		if err != nil {
			g.writeAuthError(w, r, err)
			return
		}

		if check != nil {
			if err := check(user); err != nil {
				g.writeAuthError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
	})
}

func (g *Gatekeeper) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	log := g.logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	})

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		log.WithError(err).Debug("request rejected: unauthenticated")
		writeUnauthorized(w, "could not validate credentials")
	case errors.Is(err, auth.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, "inactive user")
	case errors.Is(err, auth.ErrInsufficientPrivilege):
		writeError(w, http.StatusForbidden, "superuser privileges required")
	default:
		log.WithError(err).Error("failed to resolve current user")
		writeError(w, http.StatusInternalServerError, "failed to load user")
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}

// currentUser returns the user placed in the context by a Gatekeeper
// middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "could not validate credentials")
		return types.User{}, false
	}
	return user, true
}
