package dao

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"vetski/vetski/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversationDAO struct {
	DB *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{DB: db}
}

func (dao *ConversationDAO) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return dao.DB.WithContext(ctx).Create(conv).Error
}

func (dao *ConversationDAO) GetConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := dao.DB.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the owner's plain chats, newest activity first.
func (dao *ConversationDAO) ListConversations(ctx context.Context, ownerID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := dao.DB.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, models.ConversationChat).
		Order("updated_at desc").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (dao *ConversationDAO) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.ConversationMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Conversation{}).Error
	})
}

// SaveMessage appends one message and bumps the conversation's updated_at.
func (dao *ConversationDAO) SaveMessage(ctx context.Context, conversationID uuid.UUID, role, content string, attachments []string, hidden bool) (*models.ConversationMessage, error) {
	msg := models.ConversationMessage{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Hidden:         hidden,
		CreatedAt:      time.Now().UTC(),
	}
	if len(attachments) > 0 {
		raw, err := json.Marshal(attachments)
		if err != nil {
			return nil, err
		}
		msg.Attachments = datatypes.JSON(raw)
	}
	err := dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages returns the conversation in append order. Hidden messages are
// included only when withHidden is set.
func (dao *ConversationDAO) GetMessages(ctx context.Context, conversationID uuid.UUID, withHidden bool) ([]models.ConversationMessage, error) {
	var msgs []models.ConversationMessage
	db := dao.DB.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if !withHidden {
		db = db.Where("hidden = ?", false)
	}
	err := db.Order("created_at asc").Order("id asc").Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetRecentMessagesForAnimal returns up to limit visible messages across every
// conversation about the animal, oldest first.
func (dao *ConversationDAO) GetRecentMessagesForAnimal(ctx context.Context, animalID uuid.UUID, limit int) ([]models.ConversationMessage, error) {
	var msgs []models.ConversationMessage
	err := dao.DB.WithContext(ctx).
		Joins("JOIN conversations ON conversations.id = conversation_messages.conversation_id").
		Where("conversations.animal_id = ? AND conversation_messages.hidden = ?", animalID, false).
		Order("conversation_messages.created_at desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
