package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/store"
)

// writeServiceError maps user-service failures to responses. Unexpected
// errors are logged and reported with the generic fallback message.
func writeServiceError(w http.ResponseWriter, logger logrus.FieldLogger, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAccountExists),
		errors.Is(err, services.ErrSelfDelete),
		errors.Is(err, services.ErrSelfDeactivate),
		errors.Is(err, services.ErrEmptyPassword),
		errors.Is(err, services.ErrEmptyIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(err).Error(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
