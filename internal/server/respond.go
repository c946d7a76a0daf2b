package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"talespin/internal/app"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError translates app sentinels to HTTP statuses. Unrecognized
// errors become opaque 500s so internals never leak.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrMissingFields), errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrStoryNotFound),
		errors.Is(err, app.ErrIllustrationNotFound),
		errors.Is(err, app.ErrNoStoriesForUser):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrGeneration):
		details := strings.TrimSpace(strings.TrimPrefix(err.Error(), app.ErrGeneration.Error()+":"))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Generation failed",
			"details": details,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
