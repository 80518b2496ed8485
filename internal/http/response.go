package httpapp

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/app"
	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/http/dto"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  dto.ToResponse(errs),
		Fields: dto.ToMap(errs),
	})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, constants.MaxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.New("invalid request payload")
	}
	return nil
}

// errorStatus maps service errors onto HTTP statuses. Credential problems
// are checked before sync failures since a failed sync often wraps one.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrInvalidEntry), errors.Is(err, domain.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoCredential):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTokenExpired), httpclient.IsAuthFailure(err):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrSyncFailed), httpclient.IsUnavailable(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
