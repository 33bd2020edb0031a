package llm

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/set-night/promptforge/internal/domain"
)

// conversationOpener precedes histories that begin with a model turn, since
// the Messages API requires the first message to come from the user.
const conversationOpener = "Let's refine my prompt."

// Anthropic uses the Messages API. Schemas are not supported.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropic(apiKey, baseURL, model string, maxTokens int64) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &Anthropic{client: &client, model: model, maxTokens: maxTokens}
}

func (p *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	if req.Schema != nil {
		return "", ErrStructuredUnsupported
	}
	msg, err := p.client.Messages.New(ctx, p.params(req))
	if err != nil {
		return "", p.wrap(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		switch bl := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(bl.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (p *Anthropic) GenerateStream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if req.Schema != nil {
			yield("", ErrStructuredUnsupported)
			return
		}
		stream := p.client.Messages.NewStreaming(ctx, p.params(req))
		defer stream.Close()

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text == "" {
						continue
					}
					if !yield(delta.Text, nil) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", p.wrap(err))
		}
	}
}

func (p *Anthropic) params(req Request) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+2)
	if len(req.History) > 0 && req.History[0].Role == domain.RoleModel {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(conversationOpener)))
	}
	for _, turn := range req.History {
		if turn.Role == domain.RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}
	return params
}

func (p *Anthropic) wrap(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusError(ProviderAnthropic, apiErr.StatusCode, err)
	}
	return transportError(ProviderAnthropic, err)
}
