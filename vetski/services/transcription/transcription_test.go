package transcription

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
	"vetski/vetski/config"
)

func TestCreatePredictionUsesVersionAndWebhook(t *testing.T) {
	var got createRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"starting"}`))
	}))
	defer srv.Close()

	c := NewReplicateClient(config.Config{
		TranscriptionBaseURL:      srv.URL,
		TranscriptionModelVersion: "v123",
		PublicBaseURL:             "https://api.example.com",
	})
	p, err := c.CreatePrediction(context.Background(), Input{Audio: "https://x/a.webm", ConsultationID: "c1", NumSpeakers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "p1" || p.Status != "starting" {
		t.Errorf("unexpected prediction %+v", p)
	}
	if path != "/predictions" || got.Version != "v123" {
		t.Errorf("unexpected request path=%s version=%s", path, got.Version)
	}
	if got.Webhook != "https://api.example.com/transcriptions/webhook" || len(got.WebhookEventsFilter) != 1 || got.WebhookEventsFilter[0] != "completed" {
		t.Errorf("unexpected webhook settings %+v", got)
	}
	if got.Input.ConsultationID != "c1" {
		t.Errorf("consultation id not forwarded")
	}
}

func TestCreatePredictionDeployment(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"id":"p2","status":"starting"}`))
	}))
	defer srv.Close()

	c := NewReplicateClient(config.Config{TranscriptionBaseURL: srv.URL, TranscriptionDeployment: "vetski/whisper"})
	if _, err := c.CreatePrediction(context.Background(), Input{ConsultationID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if path != "/deployments/vetski/whisper/predictions" {
		t.Errorf("unexpected path %s", path)
	}
}

func TestPayloadDecoding(t *testing.T) {
	body := `{"id":"p1","status":"succeeded","input":{"consultationId":"c1"},
		"output":{"segments":[{"speaker":"SPEAKER_00","text":" Hello ","start":0,"end":1.5},{"speaker":"SPEAKER_01","text":"  "}]},
		"error":null}`
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatal(err)
	}
	segs := p.Segments()
	if len(segs) != 1 || segs[0].Text != "Hello" {
		t.Errorf("unexpected segments %+v", segs)
	}
	if p.ErrorText() != "" {
		t.Errorf("expected empty error, got %q", p.ErrorText())
	}

	var failed Payload
	json.Unmarshal([]byte(`{"id":"p2","status":"failed","error":"CUDA out of memory"}`), &failed)
	if failed.ErrorText() != "CUDA out of memory" {
		t.Errorf("unexpected error text %q", failed.ErrorText())
	}
}

func TestVerifySignature(t *testing.T) {
	key := []byte("super-secret-key")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(key)
	body := []byte(`{"id":"p1"}`)
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)

	h := http.Header{}
	h.Set("webhook-id", "msg_1")
	h.Set("webhook-timestamp", ts)
	h.Set("webhook-signature", "v1,bogus v1,"+Sign(key, "msg_1", ts, body))

	if err := VerifySignature(secret, h, body, now); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
	if err := VerifySignature(secret, h, []byte(`{"id":"p2"}`), now); err != ErrBadSignature {
		t.Errorf("expected mismatch, got %v", err)
	}
	if err := VerifySignature(secret, h, body, now.Add(10*time.Minute)); err != ErrStaleTimestamp {
		t.Errorf("expected stale timestamp, got %v", err)
	}
	if err := VerifySignature(secret, http.Header{}, body, now); err != ErrMissingSignature {
		t.Errorf("expected missing signature, got %v", err)
	}
}
