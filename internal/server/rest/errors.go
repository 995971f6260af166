package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/logging"
)

// writeError maps service errors to status codes. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidFile):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrMissingAssertion):
		respondError(w, http.StatusBadRequest, common.ErrMissingAssertion.Error())
	case errors.Is(err, common.ErrInvalidOAuthState):
		respondError(w, http.StatusBadRequest, common.ErrInvalidOAuthState.Error())
	case errors.Is(err, common.ErrConflictAlreadyRegistered):
		respondError(w, http.StatusConflict, common.ErrConflictAlreadyRegistered.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, common.ErrInvalidCredentials.Error())
	case errors.Is(err, common.ErrMissingCredentials),
		errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, common.ErrUnauthorized.Error())
	case errors.Is(err, common.ErrProviderNotEnabled):
		respondError(w, http.StatusServiceUnavailable, common.ErrProviderNotEnabled.Error())
	default:
		if errors.Is(err, common.ErrRegistrationFailed) {
			log.Error(r.Context(), "registration failed", "error", err)
		} else {
			log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		respondError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
