package transcription

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"vetski/vetski/sources/psql/models"
)

// Payload is the prediction object the provider posts on completion.
type Payload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Model  string `json:"model"`
	Input  struct {
		ConsultationID string `json:"consultationId"`
		AnimalID       string `json:"animalId"`
	} `json:"input"`
	Output    *Output         `json:"output"`
	Error     json.RawMessage `json:"error"`
	CreatedAt string          `json:"created_at"`
}

type Output struct {
	Segments []models.Segment `json:"segments"`
}

// ErrorText flattens the provider error, which may be a string or an object.
func (p Payload) ErrorText() string {
	if len(p.Error) == 0 || string(p.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Error, &s); err == nil {
		return s
	}
	return string(p.Error)
}

// Segments drops entries with no text.
func (p Payload) Segments() []models.Segment {
	if p.Output == nil {
		return nil
	}
	out := make([]models.Segment, 0, len(p.Output.Segments))
	for _, s := range p.Output.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

var (
	ErrMissingSignature = errors.New("missing webhook signature headers")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	ErrBadSignature     = errors.New("webhook signature mismatch")
)

const SignatureTolerance = 5 * time.Minute

// VerifySignature checks a Standard Webhooks signature. secret may carry
// the "whsec_" prefix.
func VerifySignature(secret string, h http.Header, body []byte, now time.Time) error {
	id := h.Get("webhook-id")
	ts := h.Get("webhook-timestamp")
	sigs := h.Get("webhook-signature")
	if id == "" || ts == "" || sigs == "" {
		return ErrMissingSignature
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrMissingSignature
	}
	delta := now.Sub(time.Unix(sec, 0))
	if delta > SignatureTolerance || delta < -SignatureTolerance {
		return ErrStaleTimestamp
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return err
	}
	expected := Sign(key, id, ts, body)
	for _, s := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(s, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the base64 v1 signature of id.timestamp.body.
func Sign(key []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
