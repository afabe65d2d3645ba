package dao

import (
	"context"
	"testing"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/sources/psql/psqltest"

	"github.com/google/uuid"
)

func seedConsultation(t *testing.T, d *ConsultationDAO) *models.Consultation {
	t.Helper()
	c := &models.Consultation{OwnerID: uuid.New(), Title: "Limping"}
	if err := d.CreateConsultation(context.Background(), c); err != nil {
		t.Fatalf("create consultation: %v", err)
	}
	return c
}

func TestCreateConsultationCreatesConversation(t *testing.T) {
	db := psqltest.NewDB(t)
	consultations := NewConsultationDAO(db)
	conversations := NewConversationDAO(db)

	c := seedConsultation(t, consultations)
	if c.ConversationID == uuid.Nil {
		t.Fatal("expected conversation id to be set")
	}
	conv, err := conversations.GetConversationByID(context.Background(), c.ConversationID)
	if err != nil || conv == nil {
		t.Fatalf("expected conversation, got %v, %v", conv, err)
	}
	if conv.Kind != models.ConversationConsultation {
		t.Errorf("expected consultation kind, got %q", conv.Kind)
	}
}

func TestAdvanceWatermarkIsMonotonic(t *testing.T) {
	ctx := context.Background()
	db := psqltest.NewDB(t)
	d := NewConsultationDAO(db)
	c := seedConsultation(t, d)

	moved, err := d.AdvanceWatermark(ctx, c.ID, 200, "job-b")
	if err != nil || !moved {
		t.Fatalf("expected first advance, got %v, %v", moved, err)
	}
	moved, err = d.AdvanceWatermark(ctx, c.ID, 100, "job-a")
	if err != nil {
		t.Fatal(err)
	}
	if moved {
		t.Error("stale advance must not move the watermark")
	}
	moved, _ = d.AdvanceWatermark(ctx, c.ID, 200, "job-b")
	if moved {
		t.Error("same watermark must be a no-op")
	}

	got, _ := d.GetConsultationByID(ctx, c.ID)
	if got.TranscriptSyncedSeq != 200 || got.TranscriptSyncedJobID != "job-b" {
		t.Errorf("unexpected watermark %d/%s", got.TranscriptSyncedSeq, got.TranscriptSyncedJobID)
	}
}

func TestCompleteJobAppliesOnce(t *testing.T) {
	ctx := context.Background()
	db := psqltest.NewDB(t)
	jobs := NewTranscriptionJobDAO(db)
	consultationID := uuid.New()

	if err := jobs.CreatePendingJob(ctx, &models.TranscriptionJob{ID: "p1", ConsultationID: consultationID}); err != nil {
		t.Fatal(err)
	}

	job, applied, err := jobs.CompleteJob(ctx, JobResult{
		ID: "p1", ConsultationID: consultationID, Status: models.JobSucceeded,
		Segments: []models.Segment{{Speaker: "SPEAKER_00", Text: "hello"}},
	})
	if err != nil || !applied {
		t.Fatalf("expected applied, got %v, %v", applied, err)
	}
	if job.CompletedAt == nil || job.CompletedSeq == 0 {
		t.Error("expected completion time to be stamped")
	}

	_, applied, err = jobs.CompleteJob(ctx, JobResult{ID: "p1", ConsultationID: consultationID, Status: models.JobFailed})
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Error("second callback must not mutate a terminal job")
	}

	stored, _ := jobs.GetJobByID(ctx, "p1")
	if stored.Status != models.JobSucceeded || len(stored.Segments()) != 1 {
		t.Errorf("unexpected stored job: %+v", stored)
	}
}

func TestCompleteJobBeforePendingInsert(t *testing.T) {
	ctx := context.Background()
	db := psqltest.NewDB(t)
	jobs := NewTranscriptionJobDAO(db)
	consultationID := uuid.New()

	if _, _, err := jobs.CompleteJob(ctx, JobResult{ID: "early", ConsultationID: consultationID, Status: models.JobSucceeded}); err != nil {
		t.Fatal(err)
	}
	if err := jobs.CreatePendingJob(ctx, &models.TranscriptionJob{ID: "early", ConsultationID: consultationID, ChunkKey: "k"}); err != nil {
		t.Fatal(err)
	}
	stored, _ := jobs.GetJobByID(ctx, "early")
	if stored.Status != models.JobSucceeded {
		t.Errorf("pending insert must not reset status, got %q", stored.Status)
	}
	if stored.ChunkKey != "k" {
		t.Errorf("expected chunk key to be recorded, got %q", stored.ChunkKey)
	}
}

func TestFailedJobStoresNoOutput(t *testing.T) {
	ctx := context.Background()
	jobs := NewTranscriptionJobDAO(psqltest.NewDB(t))
	job, _, err := jobs.CompleteJob(ctx, JobResult{
		ID: "f1", ConsultationID: uuid.New(), Status: models.JobFailed, Error: "boom",
		Segments: []models.Segment{{Speaker: "A", Text: "ignored"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(job.Segments()) != 0 {
		t.Errorf("failed job must not store segments")
	}
}

func TestConversationMessagesHiddenFilter(t *testing.T) {
	ctx := context.Background()
	d := NewConversationDAO(psqltest.NewDB(t))
	conv := &models.Conversation{OwnerID: uuid.New()}
	if err := d.CreateConversation(ctx, conv); err != nil {
		t.Fatal(err)
	}
	if _, err := d.SaveMessage(ctx, conv.ID, "system", "Transcript update:\n[A] hi", nil, true); err != nil {
		t.Fatal(err)
	}
	if _, err := d.SaveMessage(ctx, conv.ID, "user", "hello", []string{"u/1.png"}, false); err != nil {
		t.Fatal(err)
	}

	visible, _ := d.GetMessages(ctx, conv.ID, false)
	all, _ := d.GetMessages(ctx, conv.ID, true)
	if len(visible) != 1 || len(all) != 2 {
		t.Fatalf("expected 1 visible and 2 total, got %d/%d", len(visible), len(all))
	}
	if got := visible[0].AttachmentPaths(); len(got) != 1 || got[0] != "u/1.png" {
		t.Errorf("unexpected attachments %v", got)
	}
}

func TestUpsertSynthesizedDataKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	db := psqltest.NewDB(t)
	d := NewAnimalDAO(db)
	animal := &models.Animal{OwnerID: uuid.New(), Name: "Rex", Species: "dog"}
	if err := d.CreateAnimal(ctx, animal); err != nil {
		t.Fatal(err)
	}
	if _, err := d.UpsertSynthesizedData(ctx, animal.ID, []byte(`{"summary":"a"}`)); err != nil {
		t.Fatal(err)
	}
	got, err := d.UpsertSynthesizedData(ctx, animal.ID, []byte(`{"summary":"b"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Data) != `{"summary":"b"}` {
		t.Errorf("expected replaced blob, got %s", got.Data)
	}
	var count int64
	db.Model(&models.AnimalSynthesizedData{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}
