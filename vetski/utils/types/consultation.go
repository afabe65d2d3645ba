package types

type CreateConsultationRequest struct {
	AnimalID *string `json:"animal_id,omitempty"`
	Title    string  `json:"title"`
}

type TranscriptJob struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Synced      bool    `json:"synced"`
}

// TranscriptResponse is the full formatted transcript of a consultation.
type TranscriptResponse struct {
	ConsultationID string          `json:"consultation_id"`
	Text           string          `json:"text"`
	Jobs           []TranscriptJob `json:"jobs"`
	SyncedJobID    string          `json:"synced_job_id"`
}

// SubmitChunkRequest is the decoded multipart body of POST /transcriptions.
type SubmitChunkRequest struct {
	ConsultationID string
	AnimalID       string
	Language       string
	Vocabulary     string
	Speakers       int
	Filename       string
	ContentType    string
	Data           []byte
}

type SubmitChunkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Error    string `json:"error,omitempty"`
}

type SignedURLRequest struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	Long   bool   `json:"long,omitempty"`
}

type SignedURLResponse struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	ExpiresIn int    `json:"expires_in"`
}
