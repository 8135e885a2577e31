package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/electwix/db-catalogue/internal/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// NewRouter mounts the API routes on a chi mux.
func NewRouter(h *Handlers, logger logging.Logger) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Recoverer,
		requestID(logger),
		accessLog,
		middleware.SetHeader("Content-Type", "application/json"),
	)

	r.Post("/schema", h.PostSchema)
	r.Get("/catalogue", h.ListTables)
	r.Post("/catalogue", h.PostCatalogue)
	r.Get("/catalogue/{name}", h.GetTable)
	r.Post("/data", h.PostData)
	r.Get("/data/{name}", h.GetRows)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Status: statusError, Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Status: statusError, Message: "Method not allowed"})
	})
	return r
}

// requestID echoes or assigns X-Request-ID and stores a request-scoped logger
// in the context.
func requestID(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := logging.WithContext(r.Context(), logger.With("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLog records one line per request on the request-scoped logger.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.FromContext(r.Context()).Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
