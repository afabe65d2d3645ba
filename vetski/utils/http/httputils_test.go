package httputils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSONSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	var out map[string]string
	if err := PostJSON(context.Background(), srv.URL, "tok", map[string]string{"q": "hi"}, &out); err != nil {
		t.Fatal(err)
	}
	if out["echo"] != "hi" {
		t.Errorf("unexpected reply %v", out)
	}

	err := PostJSON(context.Background(), srv.URL, "", map[string]string{}, &out)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 status error, got %v", err)
	}
}

func TestPostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{
			"name": hdr.Filename, "type": hdr.Header.Get("Content-Type"),
			"data": string(data), "lang": r.FormValue("language"),
		})
	}))
	defer srv.Close()

	var out map[string]string
	err := PostMultipart(context.Background(), srv.URL, "", map[string]string{"language": "en"},
		[]FilePart{{Field: "file", Filename: "c.webm", ContentType: "audio/webm", Data: []byte("abc")}}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out["name"] != "c.webm" || out["type"] != "audio/webm" || out["data"] != "abc" || out["lang"] != "en" {
		t.Errorf("unexpected echo %v", out)
	}
}
