package transcript

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"
	"time"
	"vetski/vetski/sources/psql/models"
)

func job(id string, seq int64, status string, segs ...models.Segment) models.TranscriptionJob {
	j := models.TranscriptionJob{ID: id, Status: status, CompletedSeq: seq}
	if status == models.JobSucceeded || status == models.JobFailed {
		at := time.Unix(0, seq)
		j.CompletedAt = &at
	}
	if len(segs) > 0 {
		raw, _ := json.Marshal(segs)
		j.Output = raw
	}
	return j
}

// synced marks the named jobs as already merged into chat.
func synced(jobs []models.TranscriptionJob, ids ...string) []models.TranscriptionJob {
	at := time.Unix(1, 0)
	out := append([]models.TranscriptionJob(nil), jobs...)
	for i := range out {
		for _, id := range ids {
			if out[i].ID == id {
				out[i].SyncedAt = &at
			}
		}
	}
	return out
}

func seg(speaker, text string) models.Segment {
	return models.Segment{Speaker: speaker, Text: text}
}

func sampleJobs() []models.TranscriptionJob {
	return []models.TranscriptionJob{
		job("b", 200, models.JobSucceeded, seg("SPEAKER_00", "second chunk")),
		job("a", 100, models.JobSucceeded, seg("SPEAKER_00", "hello"), seg("SPEAKER_01", "hi doctor")),
		job("p", 0, models.JobPending),
		job("f", 150, models.JobFailed),
		job("c", 200, models.JobSucceeded, seg("", "tie on seq")),
	}
}

func TestFormatOrdersByCompletion(t *testing.T) {
	res := Format(sampleJobs(), Watermark{})
	want := strings.Join([]string{
		"[SPEAKER_00] hello",
		"[SPEAKER_01] hi doctor",
		"[SPEAKER_00] second chunk",
		"[Unknown] tie on seq",
	}, "\n")
	if res.Text != want {
		t.Errorf("unexpected text:\n%s", res.Text)
	}
	if strings.Join(res.UnsyncedIDs, ",") != "a,b,c" {
		t.Errorf("unexpected unsynced ids %v", res.UnsyncedIDs)
	}
	if res.Next != (Watermark{Seq: 200, JobID: "c"}) {
		t.Errorf("unexpected next watermark %+v", res.Next)
	}
}

func TestFormatIsOrderStableAndIdempotent(t *testing.T) {
	jobs := synced(sampleJobs(), "a")
	first := Format(jobs, Watermark{Seq: 100, JobID: "a"})
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.TranscriptionJob(nil), jobs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Format(shuffled, Watermark{Seq: 100, JobID: "a"})
		if got.Text != first.Text || got.Next != first.Next ||
			strings.Join(got.SyncedIDs, ",") != strings.Join(first.SyncedIDs, ",") {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestFormatRespectsWatermark(t *testing.T) {
	res := Format(synced(sampleJobs(), "a", "b"), Watermark{Seq: 200, JobID: "b"})
	if res.Text != "[Unknown] tie on seq" {
		t.Errorf("unexpected text %q", res.Text)
	}
	if strings.Join(res.SyncedIDs, ",") != "a,b" {
		t.Errorf("unexpected synced ids %v", res.SyncedIDs)
	}

	all := Format(synced(sampleJobs(), "a", "b", "c"), Watermark{Seq: 200, JobID: "c"})
	if all.HasUnsynced() || all.Text != "" || all.Next != (Watermark{Seq: 200, JobID: "c"}) {
		t.Errorf("expected nothing unsynced, got %+v", all)
	}
}

func TestFormatLateOlderChunkStillUnsynced(t *testing.T) {
	// chunk 1 finished after chunk 2 was already synced
	jobs := []models.TranscriptionJob{
		job("chunk2", 100, models.JobSucceeded, seg("S0", "later words")),
		job("chunk1", 300, models.JobSucceeded, seg("S0", "earlier words")),
	}
	res := Format(synced(jobs, "chunk2"), Watermark{Seq: 100, JobID: "chunk2"})
	if res.Text != "[S0] earlier words" {
		t.Errorf("late chunk not reported: %q", res.Text)
	}
}

func TestFormatUnsyncedJobBehindWatermark(t *testing.T) {
	// job-a committed after job-b was synced, with an older completion seq
	jobs := []models.TranscriptionJob{
		job("job-b", 200, models.JobSucceeded, seg("S0", "b words")),
		job("job-a", 199, models.JobSucceeded, seg("S1", "a words")),
	}
	wm := Watermark{Seq: 200, JobID: "job-b"}
	res := Format(synced(jobs, "job-b"), wm)
	if res.Text != "[S1] a words" || strings.Join(res.UnsyncedIDs, ",") != "job-a" {
		t.Errorf("job behind the watermark was skipped: %+v", res)
	}
	if res.Next != wm {
		t.Errorf("watermark must not move backward, got %+v", res.Next)
	}
}

func TestTextIncludesSyncedJobs(t *testing.T) {
	got := Text(synced(sampleJobs(), "a", "b"))
	if !strings.HasPrefix(got, "[SPEAKER_00] hello\n") || !strings.HasSuffix(got, "[Unknown] tie on seq") {
		t.Errorf("unexpected full text %q", got)
	}
}
