package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"docvault/internal/domain"
	"docvault/internal/httputil"
)

// handleError maps domain errors to HTTP responses. Typed errors carry
// their own status via the HTTPError interface; anything else collapses
// to a 500 without leaking internals.
func handleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidReference):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrBranchExists):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransient):
		// Safe to retry: the transaction rolled back cleanly
		httputil.RespondError(w, http.StatusServiceUnavailable, "operation timed out on a lock, retry")
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		logger.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
