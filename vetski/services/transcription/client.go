// Package transcription creates speech-to-text predictions at a
// Replicate-compatible provider and decodes its completion callbacks.
package transcription

import (
	"context"
	"fmt"
	"strings"
	"vetski/vetski/config"
	httputils "vetski/vetski/utils/http"
	"vetski/vetski/utils/logging"
)

// Input is what the diarization model receives for one chunk.
type Input struct {
	Audio          string `json:"audio"`
	Language       string `json:"language,omitempty"`
	Vocabulary     string `json:"vocabulary,omitempty"`
	NumSpeakers    int    `json:"num_speakers,omitempty"`
	ConsultationID string `json:"consultationId"`
	AnimalID       string `json:"animalId,omitempty"`
}

// Prediction is the provider's immediate reply to a create call.
type Prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Provider starts transcription jobs; results arrive later by webhook.
type Provider interface {
	CreatePrediction(ctx context.Context, in Input) (*Prediction, error)
}

type ReplicateClient struct {
	token      string
	baseURL    string
	version    string
	deployment string
	webhookURL string
}

func NewReplicateClient(cfg config.Config) *ReplicateClient {
	if cfg.TranscriptionToken == "" {
		logging.AppLogger.Warn("REPLICATE_API_TOKEN is empty, transcription submissions will fail")
	}
	return &ReplicateClient{
		token:      cfg.TranscriptionToken,
		baseURL:    strings.TrimRight(cfg.TranscriptionBaseURL, "/"),
		version:    cfg.TranscriptionModelVersion,
		deployment: cfg.TranscriptionDeployment,
		webhookURL: cfg.WebhookURL(),
	}
}

type createRequest struct {
	Version             string   `json:"version,omitempty"`
	Input               Input    `json:"input"`
	Webhook             string   `json:"webhook"`
	WebhookEventsFilter []string `json:"webhook_events_filter"`
}

// CreatePrediction posts to a deployment when one is configured and to the
// versioned predictions endpoint otherwise. It does not wait for the result.
func (c *ReplicateClient) CreatePrediction(ctx context.Context, in Input) (*Prediction, error) {
	defer logging.LogDuration(ctx, "transcription_create_prediction")()

	req := createRequest{
		Input:               in,
		Webhook:             c.webhookURL,
		WebhookEventsFilter: []string{"completed"},
	}
	url := c.baseURL + "/predictions"
	if c.deployment != "" {
		url = c.baseURL + "/deployments/" + c.deployment + "/predictions"
	} else {
		if c.version == "" {
			return nil, fmt.Errorf("no transcription model version or deployment configured")
		}
		req.Version = c.version
	}

	var p Prediction
	if err := httputils.PostJSON(ctx, url, c.token, req, &p); err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("create prediction: provider returned no id")
	}
	return &p, nil
}
