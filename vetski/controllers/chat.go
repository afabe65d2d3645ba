package controllers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
	"vetski/vetski/config"
	"vetski/vetski/services/llm"
	"vetski/vetski/services/synthesis"
	"vetski/vetski/services/transcript"
	"vetski/vetski/sources/cache"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/sources/storage"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImageFile is an uploaded image attached to a stateless chat request.
type ImageFile struct {
	Data        []byte
	ContentType string
}

type ChatController struct {
	conversations *dao.ConversationDAO
	consultations *dao.ConsultationDAO
	animals       *dao.AnimalDAO
	cache         *cache.MessageCache
	llm           llm.Client
	store         storage.ObjectStore
	injector      *transcript.Injector
	synth         *synthesis.Synthesizer
	prompts       *config.Prompts
	chatModel     string
	visionModel   string
}

type ChatDeps struct {
	Conversations *dao.ConversationDAO
	Consultations *dao.ConsultationDAO
	Animals       *dao.AnimalDAO
	Cache         *cache.MessageCache
	LLM           llm.Client
	Store         storage.ObjectStore
	Injector      *transcript.Injector
	Synth         *synthesis.Synthesizer
	Prompts       *config.Prompts
	ChatModel     string
	VisionModel   string
}

func NewChatController(d ChatDeps) *ChatController {
	return &ChatController{
		conversations: d.Conversations,
		consultations: d.Consultations,
		animals:       d.Animals,
		cache:         d.Cache,
		llm:           d.LLM,
		store:         d.Store,
		injector:      d.Injector,
		synth:         d.Synth,
		prompts:       d.Prompts,
		chatModel:     d.ChatModel,
		visionModel:   d.VisionModel,
	}
}

func dataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (c *ChatController) model(msgs []llm.Message) string {
	if llm.HasImages(msgs) && c.visionModel != "" {
		return c.visionModel
	}
	return c.chatModel
}

// Proxy forwards a client-held conversation, in order and including the
// client's own system turns, after the fixed system prompt. Images are
// attached to the last user message as data URIs.
func (c *ChatController) Proxy(ctx context.Context, req types.ProxyChatRequest, images []ImageFile) (<-chan string, error) {
	if len(req.Messages) == 0 {
		return nil, badRequest("messages are required")
	}
	msgs := make([]llm.Message, 0, len(req.Messages)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: c.prompts.ChatSystem})
	msgs = append(msgs, req.Messages...)
	if len(images) > 0 {
		last := -1
		for i := range msgs {
			if msgs[i].Role == "user" {
				last = i
			}
		}
		if last < 0 {
			return nil, badRequest("images need a user message")
		}
		m := &msgs[last]
		if len(m.Parts) == 0 {
			m.Parts = []llm.ContentPart{llm.TextPart(m.Content)}
			m.Content = ""
		}
		for _, img := range images {
			m.Parts = append(m.Parts, llm.ImagePart(dataURI(img.ContentType, img.Data)))
		}
	}
	if t := strings.TrimSpace(req.Transcription); t != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: c.prompts.TranscriptPrefix + "\n" + t})
	}

	return c.llm.RunStream(ctx, llm.ChatRequest{Model: c.model(msgs), Messages: msgs})
}

// ConversationTurn appends a user turn to a stored chat and streams the reply.
func (c *ChatController) ConversationTurn(ctx context.Context, userID, conversationID uuid.UUID, req types.ChatTurnRequest) (<-chan string, error) {
	conv, err := loadOwnedConversation(ctx, c.conversations, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Kind != models.ConversationChat {
		return nil, badRequest("use the consultation chat endpoint for this conversation")
	}
	return c.turn(ctx, userID, conv, c.prompts.ChatSystem, req)
}

// ConsultationTurn merges any new transcript into the chat before the
// user's message, then streams the reply.
func (c *ChatController) ConsultationTurn(ctx context.Context, userID, consultationID uuid.UUID, req types.ChatTurnRequest) (<-chan string, error) {
	consultation, err := loadOwnedConsultation(ctx, c.consultations, userID, consultationID)
	if err != nil {
		return nil, err
	}
	if _, err := c.injector.Sync(ctx, consultationID); err != nil {
		logging.ErrorLogger.Error("transcript sync before chat failed",
			zap.String("consultation_id", consultationID.String()), zap.Error(err))
	}
	conv, err := c.conversations.GetConversationByID(ctx, consultation.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrNotFound
	}
	return c.turn(ctx, userID, conv, c.prompts.ConsultationSystem, req)
}

func (c *ChatController) history(ctx context.Context, conversationID uuid.UUID) ([]models.ConversationMessage, error) {
	key := conversationID.String()
	if msgs, ok := c.cache.History(ctx, key); ok {
		return msgs, nil
	}
	msgs, err := c.conversations.GetMessages(ctx, conversationID, true)
	if err != nil {
		return nil, err
	}
	c.cache.Fill(ctx, key, msgs)
	return msgs, nil
}

func (c *ChatController) resolveImages(ctx context.Context, userID uuid.UUID, paths []string) ([]llm.ContentPart, error) {
	parts := make([]llm.ContentPart, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, "data:") {
			parts = append(parts, llm.ImagePart(p))
			continue
		}
		if !ownsPath(userID, p) {
			return nil, ErrForbidden
		}
		data, contentType, err := c.store.Get(ctx, storage.BucketChatImages, strings.TrimLeft(p, "/"))
		if err != nil {
			return nil, fmt.Errorf("load image %q: %w", p, err)
		}
		parts = append(parts, llm.ImagePart(dataURI(contentType, data)))
	}
	return parts, nil
}

func (c *ChatController) animalContext(ctx context.Context, animalID *uuid.UUID) string {
	if animalID == nil {
		return ""
	}
	a, err := c.animals.GetAnimalByID(ctx, *animalID)
	if err != nil || a == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The conversation is about %s, a %s", a.Name, a.Species)
	if a.Breed != "" {
		fmt.Fprintf(&b, " (%s)", a.Breed)
	}
	if a.BirthYear != nil {
		fmt.Fprintf(&b, " born in %d", *a.BirthYear)
	}
	b.WriteString(".")
	if d, err := c.animals.GetSynthesizedData(ctx, a.ID); err == nil && d != nil && len(d.Data) > 0 {
		b.WriteString("\nKnown health profile: ")
		b.Write(d.Data)
	}
	return b.String()
}

func (c *ChatController) turn(ctx context.Context, userID uuid.UUID, conv *models.Conversation, system string, req types.ChatTurnRequest) (<-chan string, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.ImagePaths) == 0 {
		return nil, badRequest("content is required")
	}
	images, err := c.resolveImages(ctx, userID, req.ImagePaths)
	if err != nil {
		return nil, err
	}
	past, err := c.history(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	msgs := make([]llm.Message, 0, len(past)+3)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	if animal := c.animalContext(ctx, conv.AnimalID); animal != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: animal})
	}
	for _, m := range past {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	userMsg := llm.Message{Role: "user", Content: content}
	if len(images) > 0 {
		userMsg.Parts = append([]llm.ContentPart{llm.TextPart(content)}, images...)
	}
	msgs = append(msgs, userMsg)

	saved, err := c.conversations.SaveMessage(ctx, conv.ID, "user", content, req.ImagePaths, false)
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	c.cache.Append(ctx, conv.ID.String(), *saved)

	upstream, err := c.llm.RunStream(ctx, llm.ChatRequest{Model: c.model(msgs), Messages: msgs})
	if err != nil {
		return nil, err
	}
	return c.relay(ctx, conv, upstream), nil
}

// relay forwards deltas and stores the full reply once the upstream ends.
// A client that goes away stops receiving but the reply is still saved.
func (c *ChatController) relay(ctx context.Context, conv *models.Conversation, upstream <-chan string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		var sb strings.Builder
		for delta := range upstream {
			sb.WriteString(delta)
			if ctx.Err() != nil {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
			}
		}
		if sb.Len() == 0 {
			return
		}

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		msg, err := c.conversations.SaveMessage(saveCtx, conv.ID, "assistant", sb.String(), nil, false)
		if err != nil {
			logging.ErrorLogger.Error("failed to save assistant reply",
				zap.String("conversation_id", conv.ID.String()), zap.Error(err))
			return
		}
		c.cache.Append(saveCtx, conv.ID.String(), *msg)
		if conv.AnimalID != nil && c.synth != nil {
			c.synth.Schedule(*conv.AnimalID)
		}
	}()
	return out
}
