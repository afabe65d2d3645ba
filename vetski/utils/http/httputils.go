package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// DefaultClient has no overall timeout so streams can run; callers bound
// requests with their context.
var DefaultClient = &http.Client{Transport: http.DefaultTransport}

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %d %s", e.StatusCode, e.Body)
}

func newRequest(ctx context.Context, url, token string, body interface{}) (*http.Request, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func checkStatus(r *http.Response) error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
	return &StatusError{StatusCode: r.StatusCode, Body: string(b)}
}

// PostJSON posts body as JSON with an optional bearer token and decodes the reply into resp.
func PostJSON(ctx context.Context, url, token string, body interface{}, resp interface{}) error {
	req, err := newRequest(ctx, url, token, body)
	if err != nil {
		return err
	}
	r, err := DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if err := checkStatus(r); err != nil {
		return err
	}
	if resp != nil {
		return json.NewDecoder(r.Body).Decode(resp)
	}
	return nil
}

// PostStream posts body as JSON and hands back the open response body.
func PostStream(ctx context.Context, url, token string, body interface{}) (io.ReadCloser, error) {
	req, err := newRequest(ctx, url, token, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	r, err := DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		r.Body.Close()
		return nil, err
	}
	return r.Body, nil
}

// FilePart is one file field of a multipart form.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// PostMultipart sends fields and files as multipart/form-data.
func PostMultipart(ctx context.Context, url, token string, fields map[string]string, files []FilePart, resp interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range files {
		part, err := createFilePart(w, f)
		if err != nil {
			return err
		}
		if _, err := part.Write(f.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r, err := DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if err := checkStatus(r); err != nil {
		return err
	}
	if resp != nil {
		return json.NewDecoder(r.Body).Decode(resp)
	}
	return nil
}

func createFilePart(w *multipart.Writer, f FilePart) (io.Writer, error) {
	if f.ContentType == "" {
		return w.CreateFormFile(f.Field, f.Filename)
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, f.Filename)}
	h["Content-Type"] = []string{f.ContentType}
	return w.CreatePart(h)
}

// WithTimeout is a small helper for one-off calls outside a request.
func WithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
