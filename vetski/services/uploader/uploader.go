// Package uploader sends recorded audio chunks to the transcription gateway.
package uploader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	httputils "vetski/vetski/utils/http"
	"vetski/vetski/utils/logging"

	"go.uber.org/zap"
)

// Chunk is one slice of consultation audio.
type Chunk struct {
	Data           []byte
	Filename       string
	ContentType    string
	ConsultationID string
	AnimalID       string
	Language       string
	Vocabulary     string
	Speakers       int
}

type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Stats struct {
	Sent   int64
	Failed int64
}

// Uploader submits chunks without retrying; a failed chunk is logged,
// counted and lost.
type Uploader struct {
	endpoint string
	token    string

	wg      sync.WaitGroup
	stopped atomic.Bool
	sent    atomic.Int64
	failed  atomic.Int64

	// OnResult, when set, sees every submission outcome.
	OnResult func(c Chunk, resp *SubmitResponse, err error)
}

func New(serverURL, token string) *Uploader {
	return &Uploader{
		endpoint: strings.TrimRight(serverURL, "/") + "/transcriptions",
		token:    token,
	}
}

// Submit posts one chunk and waits for the gateway's reply.
func (u *Uploader) Submit(ctx context.Context, c Chunk) (*SubmitResponse, error) {
	if c.ConsultationID == "" {
		return nil, fmt.Errorf("chunk %q has no consultation id", c.Filename)
	}
	if len(c.Data) == 0 {
		return nil, fmt.Errorf("chunk %q is empty", c.Filename)
	}

	fields := map[string]string{"consultationId": c.ConsultationID}
	if c.AnimalID != "" {
		fields["animalId"] = c.AnimalID
	}
	if c.Language != "" {
		fields["language"] = c.Language
	}
	if c.Vocabulary != "" {
		fields["vocabulary"] = c.Vocabulary
	}
	if c.Speakers > 0 {
		fields["speakers"] = strconv.Itoa(c.Speakers)
	}

	var resp SubmitResponse
	err := httputils.PostMultipart(ctx, u.endpoint, u.token, fields, []httputils.FilePart{{
		Field:       "file",
		Filename:    c.Filename,
		ContentType: c.ContentType,
		Data:        c.Data,
	}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("submit chunk %q: %w", c.Filename, err)
	}
	return &resp, nil
}

// Dispatch submits c in the background. It returns false once Stop was called.
func (u *Uploader) Dispatch(ctx context.Context, c Chunk) bool {
	if u.stopped.Load() {
		return false
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		resp, err := u.Submit(ctx, c)
		if err != nil {
			u.failed.Add(1)
			logging.ErrorLogger.Error("chunk upload failed",
				zap.String("consultation_id", c.ConsultationID),
				zap.String("file", c.Filename),
				zap.Error(err))
		} else {
			u.sent.Add(1)
			logging.AppLogger.Info("chunk submitted",
				zap.String("consultation_id", c.ConsultationID),
				zap.String("file", c.Filename),
				zap.String("job_id", resp.ID))
		}
		if u.OnResult != nil {
			u.OnResult(c, resp, err)
		}
	}()
	return true
}

// Stop rejects further dispatches. Submissions already in flight finish.
func (u *Uploader) Stop() {
	u.stopped.Store(true)
}

// Wait blocks until every dispatched chunk has been answered.
func (u *Uploader) Wait() Stats {
	u.wg.Wait()
	return u.Stats()
}

func (u *Uploader) Stats() Stats {
	return Stats{Sent: u.sent.Load(), Failed: u.failed.Load()}
}
