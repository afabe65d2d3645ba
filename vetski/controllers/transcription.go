package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
	"vetski/vetski/services/events"
	"vetski/vetski/services/transcription"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/sources/storage"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChunkURLExpiry bounds how long the provider may take to fetch a chunk.
const ChunkURLExpiry = time.Hour

type TranscriptionController struct {
	consultations *dao.ConsultationDAO
	jobs          *dao.TranscriptionJobDAO
	store         storage.ObjectStore
	provider      transcription.Provider
	bus           events.Bus
	webhookSecret string
}

func NewTranscriptionController(consultations *dao.ConsultationDAO, jobs *dao.TranscriptionJobDAO, store storage.ObjectStore, provider transcription.Provider, bus events.Bus, webhookSecret string) *TranscriptionController {
	return &TranscriptionController{
		consultations: consultations,
		jobs:          jobs,
		store:         store,
		provider:      provider,
		bus:           bus,
		webhookSecret: webhookSecret,
	}
}

// Submit stores a chunk, starts a provider job for it and records the job
// as pending. Nothing deduplicates submissions.
func (c *TranscriptionController) Submit(ctx context.Context, userID uuid.UUID, req types.SubmitChunkRequest) (*types.SubmitChunkResponse, error) {
	defer logging.LogDuration(ctx, "transcription_submit")()

	if len(req.Data) == 0 {
		return nil, badRequest("file is required")
	}
	if req.ConsultationID == "" {
		return nil, badRequest("consultationId is required")
	}
	consultationID, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		return nil, badRequest("consultationId must be a uuid")
	}
	animalID, err := parseOptionalID("animalId", &req.AnimalID)
	if err != nil {
		return nil, err
	}
	consultation, err := loadOwnedConsultation(ctx, c.consultations, userID, consultationID)
	if err != nil {
		return nil, err
	}
	if animalID == nil {
		animalID = consultation.AnimalID
	}

	name := path.Base(strings.ReplaceAll(req.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "chunk.webm"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}
	key := storage.UserKey(userID.String(), fmt.Sprintf("%s/%d-%s", consultationID, time.Now().UnixMilli(), name))
	if err := c.store.Put(ctx, storage.BucketConsultationAudio, key, contentType, req.Data); err != nil {
		return nil, fmt.Errorf("store chunk: %w", err)
	}
	audioURL, err := c.store.PresignedDownload(ctx, storage.BucketConsultationAudio, key, ChunkURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign chunk url: %w", err)
	}

	in := transcription.Input{
		Audio:          audioURL,
		Language:       req.Language,
		Vocabulary:     req.Vocabulary,
		NumSpeakers:    req.Speakers,
		ConsultationID: consultationID.String(),
	}
	if animalID != nil {
		in.AnimalID = animalID.String()
	}
	prediction, err := c.provider.CreatePrediction(ctx, in)
	if err != nil {
		return nil, err
	}

	job := &models.TranscriptionJob{
		ID:             prediction.ID,
		ConsultationID: consultationID,
		AnimalID:       animalID,
		Status:         models.JobPending,
		Model:          prediction.Model,
		ChunkKey:       key,
	}
	if err := c.jobs.CreatePendingJob(ctx, job); err != nil {
		return nil, fmt.Errorf("record job: %w", err)
	}
	logging.AppLogger.Info("transcription job submitted",
		zap.String("consultation_id", consultationID.String()),
		zap.String("job_id", prediction.ID))
	return &types.SubmitChunkResponse{ID: prediction.ID, Status: models.JobPending}, nil
}

// HandleWebhook applies one provider callback. Payloads that cannot be
// attributed to a consultation are acknowledged with received=false and
// change nothing, so the provider does not retry them.
func (c *TranscriptionController) HandleWebhook(ctx context.Context, header http.Header, body []byte) (types.WebhookResponse, int) {
	if c.webhookSecret != "" {
		if err := transcription.VerifySignature(c.webhookSecret, header, body, time.Now()); err != nil {
			logging.ErrorLogger.Warn("webhook signature rejected", zap.Error(err))
			return types.WebhookResponse{Error: "invalid signature"}, http.StatusUnauthorized
		}
	}

	var p transcription.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return types.WebhookResponse{Error: "invalid JSON body"}, http.StatusBadRequest
	}
	if p.ID == "" || p.Input.ConsultationID == "" {
		logging.ErrorLogger.Error("webhook without job or consultation id",
			zap.String("job_id", p.ID), zap.String("status", p.Status))
		return types.WebhookResponse{Received: false, Error: "missing consultationId"}, http.StatusOK
	}
	consultationID, err := uuid.Parse(p.Input.ConsultationID)
	if err != nil {
		logging.ErrorLogger.Error("webhook with malformed consultation id",
			zap.String("job_id", p.ID), zap.String("consultation_id", p.Input.ConsultationID))
		return types.WebhookResponse{Received: false, Error: "invalid consultationId"}, http.StatusOK
	}

	consultation, err := c.consultations.GetConsultationByID(ctx, consultationID)
	if err != nil {
		logging.ErrorLogger.Error("failed to load webhook consultation", zap.String("job_id", p.ID), zap.Error(err))
		return types.WebhookResponse{Error: "internal server error"}, http.StatusInternalServerError
	}
	if consultation == nil {
		logging.ErrorLogger.Error("webhook for unknown consultation",
			zap.String("job_id", p.ID), zap.String("consultation_id", p.Input.ConsultationID))
		return types.WebhookResponse{Received: false, Error: "unknown consultationId"}, http.StatusOK
	}

	job, applied, err := c.jobs.CompleteJob(ctx, dao.JobResult{
		ID:             p.ID,
		ConsultationID: consultationID,
		Status:         p.Status,
		Segments:       p.Segments(),
		Error:          p.ErrorText(),
		Model:          p.Model,
	})
	if err != nil {
		logging.ErrorLogger.Error("failed to store webhook result", zap.String("job_id", p.ID), zap.Error(err))
		return types.WebhookResponse{Error: "internal server error"}, http.StatusInternalServerError
	}
	if !applied {
		logging.AppLogger.Info("webhook for finished job ignored", zap.String("job_id", p.ID), zap.String("stored_status", job.Status))
		return types.WebhookResponse{Received: true}, http.StatusOK
	}

	if models.IsTerminalStatus(job.Status) && c.bus != nil {
		evt := events.TranscriptionCompleted{
			ConsultationID: job.ConsultationID.String(),
			JobID:          job.ID,
			Status:         job.Status,
			SegmentCount:   len(job.Segments()),
		}
		if job.CompletedAt != nil {
			evt.CompletedAt = *job.CompletedAt
		}
		if err := c.bus.PublishTranscription(evt); err != nil {
			logging.ErrorLogger.Error("failed to publish transcription event", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return types.WebhookResponse{Received: true}, http.StatusOK
}
