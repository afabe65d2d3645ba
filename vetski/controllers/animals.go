package controllers

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"vetski/vetski/services/synthesis"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
)

type AnimalController struct {
	animals *dao.AnimalDAO
	synth   *synthesis.Synthesizer
}

func NewAnimalController(animals *dao.AnimalDAO, synth *synthesis.Synthesizer) *AnimalController {
	return &AnimalController{animals: animals, synth: synth}
}

func (c *AnimalController) loadOwned(ctx context.Context, userID, id uuid.UUID) (*models.Animal, error) {
	a, err := c.animals.GetAnimalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.OwnerID != userID {
		return nil, ErrForbidden
	}
	return a, nil
}

func validBirthYear(y *int) bool {
	return y == nil || (*y > 1900 && *y <= time.Now().Year())
}

func (c *AnimalController) Create(ctx context.Context, userID uuid.UUID, req types.CreateAnimalRequest) (*models.Animal, error) {
	name := strings.TrimSpace(req.Name)
	species := strings.TrimSpace(req.Species)
	if name == "" || species == "" {
		return nil, badRequest("name and species are required")
	}
	if !validBirthYear(req.BirthYear) {
		return nil, badRequest("birth_year is out of range")
	}
	if req.AvatarPath != nil && !ownsPath(userID, *req.AvatarPath) {
		return nil, ErrForbidden
	}
	a := &models.Animal{
		OwnerID:    userID,
		Name:       name,
		Species:    species,
		Breed:      strings.TrimSpace(req.Breed),
		BirthYear:  req.BirthYear,
		AvatarPath: req.AvatarPath,
	}
	if err := c.animals.CreateAnimal(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *AnimalController) List(ctx context.Context, userID uuid.UUID) ([]models.Animal, error) {
	return c.animals.GetAllAnimalsByOwner(ctx, userID)
}

func (c *AnimalController) Get(ctx context.Context, userID, id uuid.UUID) (*models.Animal, error) {
	return c.loadOwned(ctx, userID, id)
}

func (c *AnimalController) Update(ctx context.Context, userID, id uuid.UUID, req types.UpdateAnimalRequest) (*models.Animal, error) {
	if _, err := c.loadOwned(ctx, userID, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, badRequest("name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Species != nil {
		if strings.TrimSpace(*req.Species) == "" {
			return nil, badRequest("species cannot be empty")
		}
		updates["species"] = strings.TrimSpace(*req.Species)
	}
	if req.Breed != nil {
		updates["breed"] = strings.TrimSpace(*req.Breed)
	}
	if req.BirthYear != nil {
		if !validBirthYear(req.BirthYear) {
			return nil, badRequest("birth_year is out of range")
		}
		updates["birth_year"] = *req.BirthYear
	}
	if req.AvatarPath != nil {
		if *req.AvatarPath != "" && !ownsPath(userID, *req.AvatarPath) {
			return nil, ErrForbidden
		}
		updates["avatar_path"] = *req.AvatarPath
	}
	if len(updates) > 0 {
		if err := c.animals.UpdateAnimal(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return c.animals.GetAnimalByID(ctx, id)
}

func (c *AnimalController) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := c.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	return c.animals.DeleteAnimal(ctx, id)
}

func insightsResponse(animalID uuid.UUID, d *models.AnimalSynthesizedData, refreshed bool) *types.InsightsResponse {
	resp := &types.InsightsResponse{AnimalID: animalID.String(), Refreshed: refreshed}
	if d == nil {
		return resp
	}
	var data interface{}
	if err := json.Unmarshal(d.Data, &data); err == nil {
		resp.Data = data
	}
	at := d.UpdatedAt.UTC().Format(time.RFC3339)
	resp.UpdatedAt = &at
	return resp
}

func (c *AnimalController) Insights(ctx context.Context, userID, id uuid.UUID) (*types.InsightsResponse, error) {
	if _, err := c.loadOwned(ctx, userID, id); err != nil {
		return nil, err
	}
	d, err := c.animals.GetSynthesizedData(ctx, id)
	if err != nil {
		return nil, err
	}
	return insightsResponse(id, d, false), nil
}

// RefreshInsights runs the synthesizer now; it is still a no-op when the
// stored profile is younger than a day.
func (c *AnimalController) RefreshInsights(ctx context.Context, userID, id uuid.UUID) (*types.InsightsResponse, error) {
	a, err := c.loadOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	d, refreshed, err := c.synth.Refresh(ctx, a)
	if err != nil {
		return nil, err
	}
	return insightsResponse(id, d, refreshed), nil
}
