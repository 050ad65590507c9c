package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"couple-journal/auth"
	"couple-journal/journal"
	"couple-journal/storage"
	"couple-journal/upload"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var errBadRequest = errors.New("bad request")

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, msg string) {
	respondWithJSON(w, code, map[string]string{"error": msg})
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalid),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, upload.ErrNoFiles),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, journal.ErrReadOnly), errors.Is(err, upload.ErrNotAllowed), errors.Is(err, upload.ErrForeignPath):
		return http.StatusForbidden
	case errors.Is(err, journal.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrAlreadyRegistered), errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, upload.ErrBatchFailed):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err with the status its kind maps to. Server errors are logged
// and their details withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondWithError(w, code, "internal server error")
		return
	}

	var batch *upload.BatchError
	if errors.As(err, &batch) {
		respondWithJSON(w, code, map[string]any{"error": batch.Error(), "files": batch.Results})
		return
	}
	respondWithError(w, code, err.Error())
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func viewer(r *http.Request) journal.Viewer {
	v, _ := ViewerFrom(r.Context())
	return v
}
