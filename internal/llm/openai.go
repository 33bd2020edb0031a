package llm

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/set-night/promptforge/internal/domain"
)

// OpenAI uses the Responses API. Schemas are not supported.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

func NewOpenAI(apiKey, baseURL, model string, maxTokens int64) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, model: model, maxTokens: maxTokens}
}

func (p *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if req.Schema != nil {
		return "", ErrStructuredUnsupported
	}
	result, err := p.client.Responses.New(ctx, p.params(req))
	if err != nil {
		return "", p.wrap(err)
	}
	return strings.TrimSpace(result.OutputText()), nil
}

func (p *OpenAI) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if req.Schema != nil {
			yield("", ErrStructuredUnsupported)
			return
		}
		stream := p.client.Responses.NewStreaming(ctx, p.params(req))
		defer stream.Close()

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				if ev.Delta == "" {
					continue
				}
				if !yield(ev.Delta, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", p.wrap(err))
		}
	}
}

func (p *OpenAI) params(req Request) responses.ResponseNewParams {
	items := make(responses.ResponseInputParam, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		items = append(items, responses.ResponseInputItemParamOfMessage(req.SystemInstruction, responses.EasyInputMessageRoleSystem))
	}
	for _, turn := range req.History {
		role := responses.EasyInputMessageRoleUser
		if turn.Role == domain.RoleModel {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(turn.Content, role))
	}
	items = append(items, responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if p.maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(p.maxTokens)
	}
	return params
}

func (p *OpenAI) wrap(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return statusError(ProviderOpenAI, apiErr.StatusCode, err)
	}
	return transportError(ProviderOpenAI, err)
}
