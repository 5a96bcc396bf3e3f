// Package courtroom implements the role-playing agents of a simulated
// proceeding, the factory that assembles them into a roster, the sequential
// exchange orchestrator and the outcome predictor.
package courtroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/tracer"
)

// Kind is the closed set of agent variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindClient
	KindOpposingParty
	KindLegalCounsel
	KindJudicial
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindOpposingParty:
		return "opposing_party"
	case KindLegalCounsel:
		return "legal_counsel"
	case KindJudicial:
		return "judicial"
	default:
		return "unknown"
	}
}

// ParseKind maps a canonical type tag to a Kind. Aliases are not resolved
// here; see NormalizeKind.
func ParseKind(tag string) (Kind, bool) {
	switch tag {
	case "client":
		return KindClient, true
	case "opposing_party":
		return KindOpposingParty, true
	case "legal_counsel":
		return KindLegalCounsel, true
	case "judicial":
		return KindJudicial, true
	default:
		return KindUnknown, false
	}
}

// Role tags carried by each variant. The judicial variant reports "judge".
const (
	RoleClient        = "client"
	RoleOpposingParty = "opposing_party"
	RoleLegalCounsel  = "legal_counsel"
	RoleJudge         = "judge"
)

// Agent is the contract every courtroom variant satisfies.
type Agent interface {
	Name() string
	Role() string
	Kind() Kind
	SystemPrompt() string
	Params() GenerationParams

	// History returns a copy of the conversation. Index 0 is the persona.
	History() []domain.Message
	AddMessage(role, content, name string)
	ClearHistory()

	// Process appends input as a user turn, asks the oracle for a reply
	// over the full history and appends the reply as an assistant turn.
	Process(ctx context.Context, input string) (*domain.AgentResponse, error)

	// DefaultPersonaPrompt renders the variant's built-in persona from its
	// own fields. It is pure.
	DefaultPersonaPrompt() string

	// Defaulted lists the construction fields that were backfilled.
	Defaulted() []string
}

// Deps holds the collaborators shared by every agent.
type Deps struct {
	LLM    domain.LLMProvider
	Logger *slog.Logger
}

// core holds the state common to all variants.
type core struct {
	name         string
	role         string
	kind         Kind
	systemPrompt string
	params       GenerationParams
	llm          domain.LLMProvider
	logger       *slog.Logger
	defaulted    []string

	mu      sync.Mutex
	history []domain.Message
}

func newCore(deps Deps, kind Kind, name, role, systemPrompt string, params GenerationParams, seed []domain.Message) *core {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &core{
		name:         name,
		role:         role,
		kind:         kind,
		systemPrompt: systemPrompt,
		params:       params.withDefaults(),
		llm:          deps.LLM,
		logger:       logger.With("agent", name, "role", role),
	}
	c.history = append(c.history, domain.Message{
		Role:      domain.RoleSystem,
		Content:   systemPrompt,
		Timestamp: time.Now(),
	})
	// A seed restores prior turns; its own system messages are notes, but a
	// leading persona is dropped so index 0 stays ours.
	for i, m := range seed {
		if i == 0 && m.Role == domain.RoleSystem {
			continue
		}
		c.history = append(c.history, m)
	}
	return c
}

func (c *core) Name() string             { return c.name }
func (c *core) Role() string             { return c.role }
func (c *core) Kind() Kind               { return c.kind }
func (c *core) SystemPrompt() string     { return c.systemPrompt }
func (c *core) Params() GenerationParams { return c.params }
func (c *core) Defaulted() []string      { return slices.Clone(c.defaulted) }

func (c *core) History() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

func (c *core) AddMessage(role, content, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, domain.Message{
		Role:      role,
		Content:   content,
		Name:      name,
		Timestamp: time.Now(),
	})
}

func (c *core) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = c.history[:1:1]
}

type defaultNote struct {
	field string
	value any
	via   string
}

func noteIfDefaulted[T any](notes []defaultNote, field string, f Field[T]) []defaultNote {
	if !f.Defaulted {
		return notes
	}
	return append(notes, defaultNote{field: field, value: f.Value, via: f.Via})
}

// recordDefaults remembers and logs every backfilled construction field.
func (c *core) recordDefaults(notes []defaultNote) {
	for _, n := range notes {
		c.defaulted = append(c.defaulted, n.field)
		c.logger.Warn("construction field defaulted", "field", n.field, "value", n.value, "via", n.via)
	}
}

// generate runs one oracle round trip. The user turn stays appended when
// the call fails.
func (c *core) generate(ctx context.Context, input string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "courtroom.agent.process",
		trace.WithAttributes(
			tracer.StringAttr("agent.name", c.name),
			tracer.StringAttr("agent.role", c.role),
			tracer.StringAttr("llm.model", c.params.Model),
		),
	)
	defer span.End()

	c.AddMessage(domain.RoleUser, input, "")
	req := domain.ChatRequest{
		Model:       c.params.Model,
		Messages:    c.History(),
		MaxTokens:   c.params.MaxTokens,
		Temperature: c.params.Temperature,
	}
	span.SetAttributes(tracer.IntAttr("history.len", len(req.Messages)))

	if c.llm == nil {
		err := &domain.GenerationError{Agent: c.name, Err: domain.ErrProviderNotFound}
		tracer.RecordError(span, err)
		return "", err
	}

	callCtx := ctx
	if c.params.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.params.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.llm.Chat(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		gerr := &domain.GenerationError{Agent: c.name, Err: err}
		tracer.RecordError(span, gerr)
		c.logger.Error("oracle call failed", "error", err, "duration", time.Since(start))
		return "", gerr
	}
	if resp == nil {
		gerr := &domain.GenerationError{Agent: c.name, Err: domain.ErrMalformed}
		tracer.RecordError(span, gerr)
		return "", gerr
	}

	text := resp.Message.Content
	c.AddMessage(domain.RoleAssistant, text, "")
	c.logger.Debug("oracle call completed",
		"duration", time.Since(start),
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	tracer.SetOK(span)
	return text, nil
}

// respond wraps generated text in a response with full confidence.
func respond(text string, metadata map[string]any) *domain.AgentResponse {
	return &domain.AgentResponse{
		Message:    text,
		Confidence: 1.0,
		Metadata:   metadata,
	}
}
