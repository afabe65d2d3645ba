package transcript

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"vetski/vetski/sources/cache"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrConsultationNotFound = errors.New("consultation not found")

type SyncResult struct {
	Appended  bool      `json:"appended"`
	Text      string    `json:"text,omitempty"`
	JobIDs    []string  `json:"job_ids"`
	Watermark Watermark `json:"watermark"`
}

// Injector appends unsynced transcript text to a consultation's chat as a
// hidden system message and then advances the consultation's watermark.
type Injector struct {
	consultations *dao.ConsultationDAO
	jobs          *dao.TranscriptionJobDAO
	conversations *dao.ConversationDAO
	cache         *cache.MessageCache
	prefix        string

	// OnSynced, when set, is called after text was appended.
	OnSynced func(consultationID uuid.UUID, res SyncResult)

	locks sync.Map
}

func NewInjector(consultations *dao.ConsultationDAO, jobs *dao.TranscriptionJobDAO, conversations *dao.ConversationDAO, c *cache.MessageCache, prefix string) *Injector {
	if prefix == "" {
		prefix = "Transcript update:"
	}
	return &Injector{
		consultations: consultations,
		jobs:          jobs,
		conversations: conversations,
		cache:         c,
		prefix:        prefix,
	}
}

func (inj *Injector) lock(id uuid.UUID) func() {
	v, _ := inj.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Sync is safe to call at any time; with nothing new it does nothing. Runs
// for the same consultation are serialized within this process, and each
// job's text is appended at most once across processes.
func (inj *Injector) Sync(ctx context.Context, consultationID uuid.UUID) (*SyncResult, error) {
	defer logging.LogDuration(ctx, "transcript_sync")()
	unlock := inj.lock(consultationID)
	defer unlock()

	c, err := inj.consultations.GetConsultationByID(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("load consultation: %w", err)
	}
	if c == nil {
		return nil, ErrConsultationNotFound
	}
	jobs, err := inj.jobs.GetJobsByConsultation(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("load transcription jobs: %w", err)
	}

	wm := Watermark{Seq: c.TranscriptSyncedSeq, JobID: c.TranscriptSyncedJobID}
	res := Format(jobs, wm)
	out := &SyncResult{JobIDs: []string{}, Watermark: wm}
	if !res.HasUnsynced() {
		return out, nil
	}

	// Claiming the jobs and appending their text commit together, so a job
	// is merged exactly once even when another process syncs concurrently.
	var saved *models.ConversationMessage
	err = inj.jobs.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := dao.NewTranscriptionJobDAO(tx).ClaimForSync(ctx, res.UnsyncedIDs, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		mine := make(map[string]bool, len(claimed))
		for _, id := range claimed {
			mine[id] = true
		}
		pending := make([]models.TranscriptionJob, 0, len(claimed))
		for _, j := range jobs {
			if mine[j.ID] {
				pending = append(pending, j)
			}
		}
		res = Format(pending, wm)
		out.JobIDs = res.UnsyncedIDs
		if res.Text == "" {
			return nil
		}
		saved, err = dao.NewConversationDAO(tx).SaveMessage(ctx, c.ConversationID, "system", inj.prefix+"\n"+res.Text, nil, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("append transcript message: %w", err)
	}
	if len(out.JobIDs) == 0 {
		return out, nil
	}
	if saved != nil {
		inj.cache.Append(ctx, c.ConversationID.String(), *saved)
		out.Appended = true
		out.Text = res.Text
	}

	moved, err := inj.consultations.AdvanceWatermark(ctx, consultationID, res.Next.Seq, res.Next.JobID)
	if err != nil {
		return nil, fmt.Errorf("advance watermark: %w", err)
	}
	if moved {
		out.Watermark = res.Next
	} else {
		logging.AppLogger.Info("watermark already past this sync",
			zap.String("consultation_id", consultationID.String()),
			zap.String("job_id", res.Next.JobID))
	}

	if out.Appended && inj.OnSynced != nil {
		inj.OnSynced(consultationID, *out)
	}
	return out, nil
}
