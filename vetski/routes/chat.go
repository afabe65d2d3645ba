package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"vetski/vetski/controllers"
	"vetski/vetski/utils/types"

	"github.com/go-chi/chi/v5"
)

const maxChatFormBytes = 32 << 20

// ChatRoutes exposes the stateless proxy; history lives with the client.
func ChatRoutes(ctrl *controllers.ChatController, auth Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		req, images, err := parseChatRequest(w, r)
		if err != nil {
			writeError(w, r, statusFor(err), err)
			return
		}
		ch, err := ctrl.Proxy(r.Context(), req, images)
		streamOrError(w, r, ch, err)
	})

	return r
}

// parseChatRequest accepts JSON, or multipart with a JSON "messages" field
// and image files under any field starting with "files".
func parseChatRequest(w http.ResponseWriter, r *http.Request) (types.ProxyChatRequest, []controllers.ImageFile, error) {
	var req types.ProxyChatRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := decodeJSON(r, &req); err != nil {
			return req, nil, err
		}
		return req, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChatFormBytes)
	if err := r.ParseMultipartForm(maxChatFormBytes); err != nil {
		return req, nil, fmt.Errorf("%w: invalid multipart form", controllers.ErrBadRequest)
	}
	if err := json.Unmarshal([]byte(r.FormValue("messages")), &req.Messages); err != nil {
		return req, nil, fmt.Errorf("%w: messages must be a JSON array", controllers.ErrBadRequest)
	}
	req.Transcription = r.FormValue("transcription")

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		if strings.HasPrefix(field, "files") {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	var images []controllers.ImageFile
	for _, field := range fields {
		for _, hdr := range r.MultipartForm.File[field] {
			f, err := hdr.Open()
			if err != nil {
				return req, nil, fmt.Errorf("%w: unreadable file %s", controllers.ErrBadRequest, hdr.Filename)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return req, nil, fmt.Errorf("%w: unreadable file %s", controllers.ErrBadRequest, hdr.Filename)
			}
			ct := hdr.Header.Get("Content-Type")
			if ct == "" || ct == "application/octet-stream" {
				ct = http.DetectContentType(data)
			}
			if !strings.HasPrefix(ct, "image/") {
				return req, nil, fmt.Errorf("%w: %s is not an image", controllers.ErrBadRequest, hdr.Filename)
			}
			images = append(images, controllers.ImageFile{Data: data, ContentType: ct})
		}
	}
	return req, images, nil
}
