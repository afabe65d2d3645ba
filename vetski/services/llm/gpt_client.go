package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	httputils "vetski/vetski/utils/http"
	"vetski/vetski/utils/logging"

	"go.uber.org/zap"
)

// GPTClient talks to OpenAI or any service exposing the same chat API.
type GPTClient struct {
	apiKey  string
	baseURL string
}

func NewGPTClient(apiKey, baseURL string) *GPTClient {
	if apiKey == "" {
		logging.AppLogger.Warn("OPENAI_API_KEY is empty, chat requests will fail")
	}
	return &GPTClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type gptResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type gptStreamResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GPTClient) url() string {
	return c.baseURL + "/chat/completions"
}

// Run executes a single completion request (non-streaming)
func (c *GPTClient) Run(ctx context.Context, req ChatRequest) (string, error) {
	defer logging.LogDuration(ctx, "gpt_service_run")()
	req.Stream = false

	var parsed gptResponse
	if err := httputils.PostJSON(ctx, c.url(), c.apiKey, req, &parsed); err != nil {
		return "", fmt.Errorf("GPT request failed: %w", err)
	}
	if len(parsed.Choices) > 0 {
		return parsed.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no content in GPT response")
}

// RunStream returns content deltas. The channel closes at [DONE], on
// upstream EOF or error, or when ctx is cancelled.
func (c *GPTClient) RunStream(ctx context.Context, req ChatRequest) (<-chan string, error) {
	defer logging.LogDuration(ctx, "gpt_service_run_stream")()
	req.Stream = true

	body, err := httputils.PostStream(ctx, c.url(), c.apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("GPT stream request failed: %w", err)
	}

	ch := make(chan string)
	go func() {
		defer func() {
			close(ch)
			body.Close()
		}()
		readSSE(ctx, body, ch)
	}()
	return ch, nil
}

func readSSE(ctx context.Context, body io.Reader, ch chan<- string) {
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err != io.EOF && ctx.Err() == nil {
				logging.ErrorLogger.Error("GPT stream read error", zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		// Skip comments and non-data lines
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return
		}

		var chunk gptStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			logging.ErrorLogger.Error("GPT stream JSON parse error",
				zap.Error(err), zap.String("raw_line", data))
			continue
		}
		if chunk.Error != nil {
			logging.ErrorLogger.Error("GPT stream error event", zap.String("message", chunk.Error.Message))
			return
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			select {
			case ch <- choice.Delta.Content:
			case <-ctx.Done():
				return
			}
		}
	}
}
