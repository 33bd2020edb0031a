package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"slices"
	"strings"

	"github.com/set-night/promptforge/internal/config"
	"github.com/set-night/promptforge/internal/domain"
)

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenRouter speaks the OpenAI-compatible chat completions API of
// openrouter.ai over plain HTTP.
type OpenRouter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *expiring[[]domain.AIModel]
}

func NewOpenRouter(apiKey, baseURL, model string) *OpenRouter {
	if baseURL == "" {
		baseURL = openRouterURL
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Streams may run for minutes; requests are bounded by ctx.
		httpClient: &http.Client{},
		cache:      newExpiring[[]domain.AIModel](config.ModelCacheDuration),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema map[string]any `json:"json_schema"`
}

type plugin struct {
	ID string `json:"id"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Plugins        []plugin        `json:"plugins,omitempty"`
}

type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

func (s *OpenRouter) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := s.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderOpenRouter, fmt.Errorf("read response: %w", err))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", transportError(ProviderOpenRouter, fmt.Errorf("parse response: %w", err))
	}
	if chatResp.Error != nil {
		return "", statusError(ProviderOpenRouter, errorStatus(chatResp.Error), errors.New(chatResp.Error.Message))
	}
	if len(chatResp.Choices) == 0 {
		return "", transportError(ProviderOpenRouter, errors.New("response has no choices"))
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (s *OpenRouter) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := s.post(ctx, req, true)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			// SSE comments (": OPENROUTER PROCESSING") keep the connection alive.
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk chatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", transportError(ProviderOpenRouter, fmt.Errorf("parse stream chunk: %w", err)))
				return
			}
			if chunk.Error != nil {
				yield("", statusError(ProviderOpenRouter, errorStatus(chunk.Error), errors.New(chunk.Error.Message)))
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", transportError(ProviderOpenRouter, fmt.Errorf("read stream: %w", err)))
		}
	}
}

func (s *OpenRouter) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(s.buildRequest(req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(ProviderOpenRouter, fmt.Errorf("chat request: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, statusError(ProviderOpenRouter, resp.StatusCode, errors.New(readErrorBody(resp.Body)))
	}
	return resp, nil
}

func (s *OpenRouter) buildRequest(req Request, stream bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == domain.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	chatReq := chatRequest{Model: s.model, Messages: messages, Stream: stream}
	switch {
	case req.Schema != nil:
		chatReq.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: map[string]any{
				"name":   req.Schema.Name,
				"strict": true,
				"schema": req.Schema.JSONSchema(),
			},
		}
	case req.WebSearch:
		chatReq.Plugins = []plugin{{ID: "web"}}
	}
	return chatReq
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(body) == 0 {
		return "empty error response"
	}
	var wrapped struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// errorStatus reads the numeric code OpenRouter puts into in-band errors.
func errorStatus(e *apiError) int {
	if code, ok := e.Code.(float64); ok {
		return int(code)
	}
	return 0
}

// ListModels returns the models available on OpenRouter, cached for
// config.ModelCacheDuration.
func (s *OpenRouter) ListModels(ctx context.Context) ([]domain.AIModel, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ProviderOpenRouter, fmt.Errorf("fetch models: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(ProviderOpenRouter, resp.StatusCode, errors.New(readErrorBody(resp.Body)))
	}

	var result struct {
		Data []struct {
			ID                  string   `json:"id"`
			Name                string   `json:"name"`
			Description         string   `json:"description"`
			ContextLength       int      `json:"context_length"`
			SupportedParameters []string `json:"supported_parameters"`
			TopProvider         struct {
				ContextLength int `json:"context_length"`
			} `json:"top_provider"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.AIModel, 0, len(result.Data))
	for _, m := range result.Data {
		ctxLen := m.ContextLength
		if m.TopProvider.ContextLength > 0 {
			ctxLen = m.TopProvider.ContextLength
		}
		models = append(models, domain.AIModel{
			ID:            m.ID,
			Name:          m.Name,
			Description:   m.Description,
			ContextLength: ctxLen,
			Capabilities: domain.ModelCapabilities{
				StructuredOutput: slices.Contains(m.SupportedParameters, "structured_outputs") ||
					slices.Contains(m.SupportedParameters, "response_format"),
				WebSearch: true,
			},
		})
	}

	s.cache.Set(models)
	return models, nil
}

// GetModel looks up the configured model, or modelID when given.
func (s *OpenRouter) GetModel(ctx context.Context, modelID string) (*domain.AIModel, error) {
	if modelID == "" {
		modelID = s.model
	}
	models, err := s.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, domain.ErrModelNotFound
}
