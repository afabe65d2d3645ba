// Package transcript turns stored transcription jobs into chat context.
package transcript

import (
	"sort"
	"strings"
	"vetski/vetski/sources/psql/models"
)

// Watermark identifies the newest job merged into a chat, by completion
// sequence and job id. Jobs carry their own synced mark; the watermark only
// records progress and never moves backward.
type Watermark struct {
	Seq   int64  `json:"seq"`
	JobID string `json:"job_id"`
}

// Before reports whether w is ordered before the job at (seq, id).
func (w Watermark) Before(seq int64, id string) bool {
	if seq != w.Seq {
		return w.Seq < seq
	}
	return w.JobID < id
}

type Result struct {
	Text        string    `json:"text"`
	SyncedIDs   []string  `json:"synced_ids"`
	UnsyncedIDs []string  `json:"unsynced_ids"`
	Next        Watermark `json:"next"`
}

// HasUnsynced is true when at least one succeeded job is not yet synced.
func (r Result) HasUnsynced() bool {
	return len(r.UnsyncedIDs) > 0
}

// Format renders the segments of every succeeded job not yet synced as
// "[speaker] text" lines, in completion order. Next is the newest unsynced
// job when it is past wm, otherwise wm.
func Format(jobs []models.TranscriptionJob, wm Watermark) Result {
	res := Result{SyncedIDs: []string{}, UnsyncedIDs: []string{}, Next: wm}
	var lines []string
	for _, j := range completed(jobs) {
		if j.SyncedAt != nil {
			res.SyncedIDs = append(res.SyncedIDs, j.ID)
			continue
		}
		res.UnsyncedIDs = append(res.UnsyncedIDs, j.ID)
		if res.Next.Before(j.CompletedSeq, j.ID) {
			res.Next = Watermark{Seq: j.CompletedSeq, JobID: j.ID}
		}
		lines = appendLines(lines, j)
	}
	res.Text = strings.Join(lines, "\n")
	return res
}

// Text renders every succeeded job, synced or not, in completion order.
func Text(jobs []models.TranscriptionJob) string {
	var lines []string
	for _, j := range completed(jobs) {
		lines = appendLines(lines, j)
	}
	return strings.Join(lines, "\n")
}

// completed returns the succeeded jobs ordered by (completion seq, id).
func completed(jobs []models.TranscriptionJob) []models.TranscriptionJob {
	done := make([]models.TranscriptionJob, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != models.JobSucceeded || j.CompletedAt == nil {
			continue
		}
		done = append(done, j)
	}
	sort.Slice(done, func(a, b int) bool {
		if done[a].CompletedSeq != done[b].CompletedSeq {
			return done[a].CompletedSeq < done[b].CompletedSeq
		}
		return done[a].ID < done[b].ID
	})
	return done
}

func appendLines(lines []string, j models.TranscriptionJob) []string {
	for _, s := range j.Segments() {
		if line := formatLine(s); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func formatLine(s models.Segment) string {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return ""
	}
	speaker := strings.TrimSpace(s.Speaker)
	if speaker == "" {
		speaker = "Unknown"
	}
	return "[" + speaker + "] " + text
}
