package controllers

import (
	"context"
	"strings"
	"vetski/vetski/sources/cache"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
)

type ConversationController struct {
	conversations *dao.ConversationDAO
	animals       *dao.AnimalDAO
	cache         *cache.MessageCache
}

func NewConversationController(conversations *dao.ConversationDAO, animals *dao.AnimalDAO, c *cache.MessageCache) *ConversationController {
	return &ConversationController{conversations: conversations, animals: animals, cache: c}
}

func loadOwnedConversation(ctx context.Context, conversations *dao.ConversationDAO, userID, id uuid.UUID) (*models.Conversation, error) {
	conv, err := conversations.GetConversationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	if conv.OwnerID != userID {
		return nil, ErrForbidden
	}
	return conv, nil
}

func (c *ConversationController) Create(ctx context.Context, userID uuid.UUID, req types.CreateConversationRequest) (*models.Conversation, error) {
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
			return nil, ErrForbidden
		}
	}
	conv := &models.Conversation{
		OwnerID:  userID,
		AnimalID: animalID,
		Kind:     models.ConversationChat,
		Title:    strings.TrimSpace(req.Title),
	}
	if err := c.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (c *ConversationController) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return c.conversations.ListConversations(ctx, userID)
}

// Messages returns what the user sees; injected transcript context is omitted.
func (c *ConversationController) Messages(ctx context.Context, userID, id uuid.UUID) ([]models.ConversationMessage, error) {
	if _, err := loadOwnedConversation(ctx, c.conversations, userID, id); err != nil {
		return nil, err
	}
	return c.conversations.GetMessages(ctx, id, false)
}

// Delete removes a chat conversation. Consultation conversations live and
// die with their consultation.
func (c *ConversationController) Delete(ctx context.Context, userID, id uuid.UUID) error {
	conv, err := loadOwnedConversation(ctx, c.conversations, userID, id)
	if err != nil {
		return err
	}
	if conv.Kind != models.ConversationChat {
		return badRequest("consultation conversations cannot be deleted")
	}
	if err := c.conversations.DeleteConversation(ctx, id); err != nil {
		return err
	}
	c.cache.Invalidate(ctx, id.String())
	return nil
}
