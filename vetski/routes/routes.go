package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"vetski/vetski/controllers"
	"vetski/vetski/middlewares"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware is the auth chain applied to user-facing routes.
type Middleware = func(http.Handler) http.Handler

const requestTimeout = 60 * time.Second

func timeout() Middleware {
	return middleware.Timeout(requestTimeout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps controller errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, controllers.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, controllers.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, controllers.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logging.ErrorLogger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			if status == 0 {
				status = statusFor(err)
			}
			writeError(w, r, status, err)
			return
		}
		writeJSON(w, status, res)
	}
}

func fail(err error) (any, int, error) {
	return nil, statusFor(err), err
}

func currentUser(r *http.Request) (uuid.UUID, error) {
	id, ok := middlewares.UserID(r.Context())
	if !ok {
		return uuid.Nil, errors.New("unauthorized")
	}
	return id, nil
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", controllers.ErrBadRequest, name)
	}
	return id, nil
}

// withUserAndID resolves the caller and the {id} URL parameter.
func withUserAndID(fn func(r *http.Request, userID, id uuid.UUID) (any, int, error)) http.HandlerFunc {
	return handleJSON(func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		id, err := idParam(r, "id")
		if err != nil {
			return fail(err)
		}
		return fn(r, userID, id)
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", controllers.ErrBadRequest)
	}
	return nil
}

// streamSSE relays deltas as data frames and ends with [DONE]. The channel
// is drained even after the client disconnects.
func streamSSE(w http.ResponseWriter, ch <-chan string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	broken := false
	for delta := range ch {
		if broken {
			continue
		}
		data, err := json.Marshal(types.StreamChunk{Content: delta})
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			broken = true
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if broken {
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

// streamOrError starts a stream, answering with a JSON error when the
// upstream fails before the first byte.
func streamOrError(w http.ResponseWriter, r *http.Request, ch <-chan string, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logging.ErrorLogger.Error("chat upstream failed",
				zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	streamSSE(w, ch)
}
