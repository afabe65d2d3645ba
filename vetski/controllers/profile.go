package controllers

import (
	"context"
	"strings"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
)

type ProfileController struct {
	dao *dao.ProfileDAO
}

func NewProfileController(dao *dao.ProfileDAO) *ProfileController {
	return &ProfileController{dao: dao}
}

func (c *ProfileController) GetMe(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := c.dao.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (c *ProfileController) UpdateMe(ctx context.Context, userID uuid.UUID, req types.UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		if *req.Role != models.RoleOwner && *req.Role != models.RoleVet {
			return nil, badRequest("role must be %q or %q", models.RoleOwner, models.RoleVet)
		}
		updates["role"] = *req.Role
	}
	if req.AvatarPath != nil {
		if *req.AvatarPath != "" && !ownsPath(userID, *req.AvatarPath) {
			return nil, ErrForbidden
		}
		updates["avatar_path"] = *req.AvatarPath
	}
	p, err := c.dao.UpdateProfile(ctx, userID, updates)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}
