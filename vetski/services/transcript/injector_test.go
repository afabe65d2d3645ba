package transcript

import (
	"context"
	"strings"
	"testing"
	"time"
	"vetski/vetski/sources/psql/dao"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/sources/psql/psqltest"

	"github.com/google/uuid"
)

type fixture struct {
	consultations *dao.ConsultationDAO
	jobs          *dao.TranscriptionJobDAO
	conversations *dao.ConversationDAO
	inj           *Injector
}

func newFixture(t *testing.T) *fixture {
	db := psqltest.NewDB(t)
	f := &fixture{
		consultations: dao.NewConsultationDAO(db),
		jobs:          dao.NewTranscriptionJobDAO(db),
		conversations: dao.NewConversationDAO(db),
	}
	f.inj = NewInjector(f.consultations, f.jobs, f.conversations, nil, "Transcript update:")
	return f
}

func (f *fixture) consultation(t *testing.T) *models.Consultation {
	c := &models.Consultation{OwnerID: uuid.New(), Title: "visit"}
	if err := f.consultations.CreateConsultation(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

func (f *fixture) deliver(t *testing.T, consultationID uuid.UUID, jobID string, segs ...models.Segment) {
	ctx := context.Background()
	if err := f.jobs.CreatePendingJob(ctx, &models.TranscriptionJob{ID: jobID, ConsultationID: consultationID}); err != nil {
		t.Fatal(err)
	}
	_, applied, err := f.jobs.CompleteJob(ctx, dao.JobResult{
		ID: jobID, ConsultationID: consultationID, Status: models.JobSucceeded, Segments: segs,
	})
	if err != nil || !applied {
		t.Fatalf("complete job: applied=%v err=%v", applied, err)
	}
}

func TestEndToEndTwoSegmentsScopedToConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.consultation(t)
	c2 := f.consultation(t)

	f.deliver(t, c1.ID, "job-1", seg("SPEAKER_00", "The dog is limping."), seg("SPEAKER_01", "Since when?"))

	jobs, err := f.jobs.GetJobsByConsultation(ctx, c1.ID)
	if err != nil {
		t.Fatal(err)
	}
	res := Format(jobs, Watermark{})
	lines := strings.Split(res.Text, "\n")
	if len(lines) != 2 || lines[0] != "[SPEAKER_00] The dog is limping." || lines[1] != "[SPEAKER_01] Since when?" {
		t.Errorf("unexpected lines %q", lines)
	}

	other, err := f.jobs.GetJobsByConsultation(ctx, c2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(other, Watermark{}); got.Text != "" || got.HasUnsynced() {
		t.Errorf("other consultation should have no transcript, got %+v", got)
	}
}

func TestSyncAppendsHiddenMessageOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.consultation(t)
	f.deliver(t, c.ID, "job-1", seg("SPEAKER_00", "Hello"))

	var notified int
	f.inj.OnSynced = func(id uuid.UUID, res SyncResult) { notified++ }

	res, err := f.inj.Sync(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Appended || res.Text != "[SPEAKER_00] Hello" || res.Watermark.JobID != "job-1" {
		t.Errorf("unexpected first sync %+v", res)
	}

	again, err := f.inj.Sync(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Appended {
		t.Errorf("second sync should be a no-op")
	}

	msgs, _ := f.conversations.GetMessages(ctx, c.ConversationID, true)
	if len(msgs) != 1 || !msgs[0].Hidden || msgs[0].Role != "system" ||
		msgs[0].Content != "Transcript update:\n[SPEAKER_00] Hello" {
		t.Errorf("unexpected messages %+v", msgs)
	}
	visible, _ := f.conversations.GetMessages(ctx, c.ConversationID, false)
	if len(visible) != 0 {
		t.Errorf("hidden message leaked into visible history")
	}
	if notified != 1 {
		t.Errorf("expected one notification, got %d", notified)
	}

	f.deliver(t, c.ID, "job-2", seg("SPEAKER_01", "Next"))
	third, err := f.inj.Sync(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if third.Text != "[SPEAKER_01] Next" {
		t.Errorf("only the new job should be injected, got %q", third.Text)
	}
}

func TestSyncMergesJobCommittedBehindWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.consultation(t)
	f.deliver(t, c.ID, "job-b", seg("SPEAKER_00", "B text"))
	if res, err := f.inj.Sync(ctx, c.ID); err != nil || !res.Appended {
		t.Fatalf("first sync: %+v %v", res, err)
	}

	b, _ := f.jobs.GetJobByID(ctx, "job-b")
	at := b.CompletedAt.Add(-time.Millisecond)
	late := &models.TranscriptionJob{
		ID: "job-a", ConsultationID: c.ID, Status: models.JobSucceeded,
		Output: []byte(`[{"speaker":"SPEAKER_01","text":"A text"}]`),
		CompletedAt: &at, CompletedSeq: b.CompletedSeq - int64(time.Millisecond),
	}
	if err := f.jobs.DB.Create(late).Error; err != nil {
		t.Fatal(err)
	}

	res, err := f.inj.Sync(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Appended || res.Text != "[SPEAKER_01] A text" {
		t.Errorf("late job not merged: %+v", res)
	}
	if res.Watermark.JobID != "job-b" {
		t.Errorf("watermark moved backward to %+v", res.Watermark)
	}
	got, _ := f.consultations.GetConsultationByID(ctx, c.ID)
	if got.TranscriptSyncedJobID != "job-b" {
		t.Errorf("stored watermark changed to %s", got.TranscriptSyncedJobID)
	}
}

func TestSyncSkipsJobsClaimedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.consultation(t)
	f.deliver(t, c.ID, "job-1", seg("SPEAKER_00", "Hello"))

	// another process already merged job-1
	claimed, err := f.jobs.ClaimForSync(ctx, []string{"job-1"}, time.Now())
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %v %v", claimed, err)
	}
	again, _ := f.jobs.ClaimForSync(ctx, []string{"job-1"}, time.Now())
	if len(again) != 0 {
		t.Errorf("a job must be claimed only once, got %v", again)
	}

	res, err := f.inj.Sync(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Appended {
		t.Errorf("claimed job appended twice: %+v", res)
	}
	msgs, _ := f.conversations.GetMessages(ctx, c.ConversationID, true)
	if len(msgs) != 0 {
		t.Errorf("expected no messages, got %d", len(msgs))
	}
}

func TestSyncUnknownConsultation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.inj.Sync(context.Background(), uuid.New()); err != ErrConsultationNotFound {
		t.Errorf("expected ErrConsultationNotFound, got %v", err)
	}
}
