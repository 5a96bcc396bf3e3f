package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
	"virtual-courtroom/internal/infra/tracer"
)

var _ domain.LLMProvider = (*GoOpenAIProvider)(nil)

// chatCompletionAPI is the slice of the go-openai client the provider uses.
type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GoOpenAIProvider implements domain.LLMProvider on top of the go-openai SDK.
type GoOpenAIProvider struct {
	name   string
	model  string
	client chatCompletionAPI
	logger *slog.Logger
}

// NewGoOpenAIProvider builds an SDK client that shares the pooled transport
// used by the other HTTP providers.
func NewGoOpenAIProvider(cfg config.ProviderConfig, logger *slog.Logger) *GoOpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		clientCfg.BaseURL = base
	}
	clientCfg.HTTPClient = NewHTTPClient(cfg)

	return &GoOpenAIProvider{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Chat implements domain.LLMProvider.
func (p *GoOpenAIProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Model == "" {
		req.Model = p.model
	}

	ctx, span := startChatSpan(ctx, p.name, req.Model)
	defer span.End()

	resp, err := p.client.CreateChatCompletion(ctx, toGoOpenAIRequest(req))
	if err != nil {
		err = mapGoOpenAIError(err)
		tracer.RecordError(span, err)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices in response %s", domain.ErrMalformed, resp.ID)
		tracer.RecordError(span, err)
		return nil, err
	}

	created := time.Unix(resp.Created, 0)
	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Message: domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Choices[0].Message.Content,
			Timestamp: created,
		},
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: created,
	}

	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)
	return result, nil
}

// Name implements domain.LLMProvider.
func (p *GoOpenAIProvider) Name() string { return p.name }

func toGoOpenAIRequest(req domain.ChatRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    sanitizeName(m.Name),
		})
	}
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
}

// mapGoOpenAIError translates SDK errors carrying an HTTP status into the
// same domain errors the plain HTTP provider returns.
func mapGoOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		body := apiErr.Message
		if code, ok := apiErr.Code.(string); ok && code != "" {
			body = code + ": " + body
		}
		return mapHTTPError(apiErr.HTTPStatusCode, []byte(body))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return mapHTTPError(reqErr.HTTPStatusCode, reqErr.Body)
	}
	return domain.WrapOp("go-openai", err)
}
