package controllers

import (
	"context"
	"strings"
	"time"
	"vetski/vetski/services/transcript"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
)

type ConsultationController struct {
	consultations *dao.ConsultationDAO
	jobs          *dao.TranscriptionJobDAO
	animals       *dao.AnimalDAO
	profiles      *dao.ProfileDAO
	injector      *transcript.Injector
}

func NewConsultationController(consultations *dao.ConsultationDAO, jobs *dao.TranscriptionJobDAO, animals *dao.AnimalDAO, profiles *dao.ProfileDAO, injector *transcript.Injector) *ConsultationController {
	return &ConsultationController{
		consultations: consultations,
		jobs:          jobs,
		animals:       animals,
		profiles:      profiles,
		injector:      injector,
	}
}

func loadOwnedConsultation(ctx context.Context, consultations *dao.ConsultationDAO, userID, id uuid.UUID) (*models.Consultation, error) {
	c, err := consultations.GetConsultationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.OwnerID != userID {
		return nil, ErrForbidden
	}
	return c, nil
}

// Create opens a consultation and its chat. Vets may attach any animal;
// owners only their own.
func (c *ConsultationController) Create(ctx context.Context, userID uuid.UUID, req types.CreateConsultationRequest) (*models.Consultation, error) {
	animalID, err := parseOptionalID("animal_id", req.AnimalID)
	if err != nil {
		return nil, err
	}
	if animalID != nil {
		a, err := c.animals.GetAnimalByID(ctx, *animalID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, ErrNotFound
		}
		if a.OwnerID != userID {
			p, err := c.profiles.GetProfileByID(ctx, userID)
			if err != nil {
				return nil, err
			}
			if p == nil || p.Role != models.RoleVet {
				return nil, ErrForbidden
			}
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Consultation " + time.Now().UTC().Format("2006-01-02 15:04")
	}
	consultation := &models.Consultation{OwnerID: userID, AnimalID: animalID, Title: title}
	if err := c.consultations.CreateConsultation(ctx, consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

func (c *ConsultationController) List(ctx context.Context, userID uuid.UUID) ([]models.Consultation, error) {
	return c.consultations.ListConsultations(ctx, userID)
}

func (c *ConsultationController) Get(ctx context.Context, userID, id uuid.UUID) (*models.Consultation, error) {
	return loadOwnedConsultation(ctx, c.consultations, userID, id)
}

// Consent records when recording consent was given; the first call wins.
func (c *ConsultationController) Consent(ctx context.Context, userID, id uuid.UUID) (*models.Consultation, error) {
	consultation, err := loadOwnedConsultation(ctx, c.consultations, userID, id)
	if err != nil {
		return nil, err
	}
	if consultation.ConsentAt != nil {
		return consultation, nil
	}
	if err := c.consultations.UpdateConsultation(ctx, id, map[string]interface{}{"consent_at": time.Now().UTC()}); err != nil {
		return nil, err
	}
	return c.consultations.GetConsultationByID(ctx, id)
}

// Transcript renders every completed job, regardless of sync state.
func (c *ConsultationController) Transcript(ctx context.Context, userID, id uuid.UUID) (*types.TranscriptResponse, error) {
	consultation, err := loadOwnedConsultation(ctx, c.consultations, userID, id)
	if err != nil {
		return nil, err
	}
	jobs, err := c.jobs.GetJobsByConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &types.TranscriptResponse{
		ConsultationID: id.String(),
		Text:           transcript.Text(jobs),
		Jobs:           make([]types.TranscriptJob, 0, len(jobs)),
		SyncedJobID:    consultation.TranscriptSyncedJobID,
	}
	for _, j := range jobs {
		tj := types.TranscriptJob{ID: j.ID, Status: j.Status, Error: j.Error}
		if j.CompletedAt != nil {
			at := j.CompletedAt.UTC().Format(time.RFC3339)
			tj.CompletedAt = &at
			tj.Synced = j.Status == models.JobSucceeded && j.SyncedAt != nil
		}
		resp.Jobs = append(resp.Jobs, tj)
	}
	return resp, nil
}

func (c *ConsultationController) Sync(ctx context.Context, userID, id uuid.UUID) (*transcript.SyncResult, error) {
	if _, err := loadOwnedConsultation(ctx, c.consultations, userID, id); err != nil {
		return nil, err
	}
	res, err := c.injector.Sync(ctx, id)
	if err == transcript.ErrConsultationNotFound {
		return nil, ErrNotFound
	}
	return res, err
}
