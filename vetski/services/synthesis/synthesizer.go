// Package synthesis maintains the LLM-derived health profile of each animal.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"vetski/vetski/services/llm"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/jsonutils"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxAge       = 24 * time.Hour
	HistoryLimit = 50
)

type Synthesizer struct {
	animals       *dao.AnimalDAO
	conversations *dao.ConversationDAO
	llm           llm.Client
	model         string
	system        string
	queue         *queue.Queue
	now           func() time.Time
}

func NewSynthesizer(animals *dao.AnimalDAO, conversations *dao.ConversationDAO, client llm.Client, model, system string, q *queue.Queue) *Synthesizer {
	return &Synthesizer{
		animals:       animals,
		conversations: conversations,
		llm:           client,
		model:         model,
		system:        system,
		queue:         q,
		now:           time.Now,
	}
}

// Refresh regenerates the profile unless the stored one is younger than
// MaxAge or there is nothing to summarise. refreshed reports whether the
// LLM was called and the row replaced.
func (s *Synthesizer) Refresh(ctx context.Context, animal *models.Animal) (data *models.AnimalSynthesizedData, refreshed bool, err error) {
	defer logging.LogDuration(ctx, "synthesis_refresh")()

	existing, err := s.animals.GetSynthesizedData(ctx, animal.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load synthesized data: %w", err)
	}
	if existing != nil && s.now().Sub(existing.UpdatedAt) < MaxAge {
		return existing, false, nil
	}

	msgs, err := s.conversations.GetRecentMessagesForAnimal(ctx, animal.ID, HistoryLimit)
	if err != nil {
		return nil, false, fmt.Errorf("load animal history: %w", err)
	}
	if len(msgs) == 0 {
		return existing, false, nil
	}

	temp := 0.2
	reply, err := s.llm.Run(ctx, llm.ChatRequest{
		Model:       s.model,
		Temperature: &temp,
		Messages: []llm.Message{
			{Role: "system", Content: s.system},
			{Role: "user", Content: buildPrompt(animal, existing, msgs)},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("synthesis completion: %w", err)
	}

	obj, err := jsonutils.DecodeObject(reply)
	if err != nil {
		logging.ErrorLogger.Error("synthesis returned invalid JSON",
			zap.String("animal_id", animal.ID.String()), zap.String("reply", reply))
		return nil, false, err
	}
	blob, err := json.Marshal(obj)
	if err != nil {
		return nil, false, err
	}
	data, err = s.animals.UpsertSynthesizedData(ctx, animal.ID, blob)
	if err != nil {
		return nil, false, fmt.Errorf("store synthesized data: %w", err)
	}
	return data, true, nil
}

// Schedule queues a background refresh for the animal.
func (s *Synthesizer) Schedule(animalID uuid.UUID) bool {
	if s.queue == nil {
		return false
	}
	return s.queue.EnqueueKey("synthesis:"+animalID.String(), func(ctx context.Context) error {
		animal, err := s.animals.GetAnimalByID(ctx, animalID)
		if err != nil || animal == nil {
			return err
		}
		_, _, err = s.Refresh(ctx, animal)
		return err
	})
}

func buildPrompt(animal *models.Animal, existing *models.AnimalSynthesizedData, msgs []models.ConversationMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Animal: %s, species %s", animal.Name, animal.Species)
	if animal.Breed != "" {
		fmt.Fprintf(&b, ", breed %s", animal.Breed)
	}
	if animal.BirthYear != nil {
		fmt.Fprintf(&b, ", born %d", *animal.BirthYear)
	}
	b.WriteString("\n\n")
	if existing != nil && len(existing.Data) > 0 {
		b.WriteString("Current profile:\n")
		b.Write(existing.Data)
		b.WriteString("\n\n")
	}
	b.WriteString("Recent conversation:\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, strings.TrimSpace(m.Content))
	}
	return b.String()
}
