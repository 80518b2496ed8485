package httpapp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/mediasync/internal/constants"
)

type userKey struct{}

// RequireUser rejects requests without a user id header. Authentication
// happens in front of this service.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(constants.UserIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+constants.UserIDHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the id set by RequireUser.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

// LogRequests writes one structured line per request through the handler
// logger. Server errors log at error level.
func (h *Handler) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			attrs = append(attrs, "request_id", id)
		}
		if status >= http.StatusInternalServerError {
			h.Logger.Error("Request served", attrs...)
			return
		}
		h.Logger.Info("Request served", attrs...)
	})
}
