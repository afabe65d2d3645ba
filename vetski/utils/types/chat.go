package types

import "vetski/vetski/services/llm"

// ProxyChatRequest is the stateless chat body. Messages use the OpenAI
// shape; Transcription, when set, is appended as a system message.
type ProxyChatRequest struct {
	Messages      []llm.Message `json:"messages"`
	Transcription string        `json:"transcription,omitempty"`
}

// ChatTurnRequest adds one user turn to a stored conversation. ImagePaths
// point into the chat-images bucket under the caller's namespace.
type ChatTurnRequest struct {
	Content    string   `json:"content"`
	ImagePaths []string `json:"image_paths,omitempty"`
}

// StreamChunk is one SSE data frame.
type StreamChunk struct {
	Content string `json:"content"`
}

type CreateConversationRequest struct {
	AnimalID *string `json:"animal_id,omitempty"`
	Title    string  `json:"title"`
}
