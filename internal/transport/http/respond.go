package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyTopic),
		errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidPage),
		errors.Is(err, domain.ErrNegativeXP),
		errors.Is(err, domain.ErrInvalidReminderTime):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrCourseLimitReached):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCourseNotFound),
		errors.Is(err, domain.ErrLessonNotFound),
		errors.Is(err, domain.ErrChallengeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActiveCourseLimit),
		errors.Is(err, domain.ErrChallengeCompleted),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicMessage is the error text a client may see; server faults are masked.
func publicMessage(err error) (string, int) {
	status := statusFor(err)
	if status >= 500 {
		return http.StatusText(status), status
	}
	return err.Error(), status
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	msg, status := publicMessage(err)
	entry := logrus.WithField("component", "http").WithField("path", r.URL.Path)
	switch {
	case status >= 500:
		entry.WithError(err).Error("request failed")
	case status == http.StatusConflict || status == http.StatusPaymentRequired:
		entry.WithError(err).Info("request rejected")
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return false
	}
	return true
}
