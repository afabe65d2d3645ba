package routes

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"vetski/vetski/controllers"
	"vetski/vetski/middlewares"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
)

const (
	maxChunkBytes   = 50 << 20
	maxWebhookBytes = 5 << 20
)

func TranscriptionRoutes(ctrl *controllers.TranscriptionController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth, timeout())

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
		handleJSON(submitChunk(ctrl)).ServeHTTP(w, r)
	})

	return r
}

func submitChunk(ctrl *controllers.TranscriptionController) func(r *http.Request) (any, int, error) {
	return func(r *http.Request) (any, int, error) {
		userID, err := currentUser(r)
		if err != nil {
			return nil, http.StatusUnauthorized, err
		}
		req, err := parseChunkForm(r)
		if err != nil {
			return fail(err)
		}
		res, err := ctrl.Submit(r.Context(), userID, *req)
		if err != nil {
			return fail(err)
		}
		return res, http.StatusOK, nil
	}
}

// WebhookRoutes serves provider callbacks: no auth, any origin.
func WebhookRoutes(ctrl *controllers.TranscriptionController) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.AnyOrigin(), timeout())

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
			return
		}
		res, status := ctrl.HandleWebhook(r.Context(), r.Header, body)
		if status != http.StatusOK {
			writeJSON(w, status, map[string]string{"error": res.Error})
			return
		}
		writeJSON(w, status, res)
	})

	return r
}

func parseChunkForm(r *http.Request) (*types.SubmitChunkRequest, error) {
	if err := r.ParseMultipartForm(maxChunkBytes); err != nil {
		return nil, fmt.Errorf("%w: expected multipart form with a file", controllers.ErrBadRequest)
	}
	req := &types.SubmitChunkRequest{
		ConsultationID: strings.TrimSpace(r.FormValue("consultationId")),
		AnimalID:       strings.TrimSpace(r.FormValue("animalId")),
		Language:       strings.TrimSpace(r.FormValue("language")),
		Vocabulary:     strings.TrimSpace(r.FormValue("vocabulary")),
	}
	if s := strings.TrimSpace(r.FormValue("speakers")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: speakers must be a non-negative integer", controllers.ErrBadRequest)
		}
		req.Speakers = n
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return req, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable file", controllers.ErrBadRequest)
	}
	req.Data = data
	req.Filename = hdr.Filename
	req.ContentType = hdr.Header.Get("Content-Type")
	return req, nil
}
