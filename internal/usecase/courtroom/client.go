package courtroom

import (
	"context"
	"fmt"
	"sync"

	"virtual-courtroom/internal/domain"
)

// Client defaults.
const (
	DefaultClientName           = "Unnamed Client"
	DefaultClientDemeanor       = "respectful"
	DefaultClientEmotionalState = "calm"
)

// ClientConfig configures a Client. Name and Background may be left unset.
type ClientConfig struct {
	Name           Field[string]
	Background     Field[map[string]any]
	Demeanor       string
	EmotionalState string
	SystemPrompt   string // empty selects the default persona
	Params         GenerationParams
	Seed           []domain.Message
}

// Client is the party whose perspective the simulation centres on.
type Client struct {
	*core

	nameField  Field[string]
	background Field[map[string]any]
	demeanor   string

	stateMu        sync.RWMutex
	emotionalState string
}

var _ Agent = (*Client)(nil)

// NewClient builds a client. A missing name is backfilled with
// DefaultClientName and reported through Defaulted.
func NewClient(cfg ClientConfig, deps Deps) *Client {
	c := &Client{
		nameField:      cfg.Name,
		background:     cfg.Background,
		demeanor:       cfg.Demeanor,
		emotionalState: cfg.EmotionalState,
	}
	if !c.nameField.IsSet() || c.nameField.Value == "" {
		c.nameField = DefaultedTo(DefaultClientName, RoleClient)
	}
	if !c.background.IsSet() {
		c.background = DefaultedTo(map[string]any{}, RoleClient)
	}
	if c.demeanor == "" {
		c.demeanor = DefaultClientDemeanor
	}
	if c.emotionalState == "" {
		c.emotionalState = DefaultClientEmotionalState
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = c.DefaultPersonaPrompt()
	}
	c.core = newCore(deps, KindClient, c.nameField.Value, RoleClient, prompt, cfg.Params, cfg.Seed)

	var notes []defaultNote
	notes = noteIfDefaulted(notes, ParamName, c.nameField)
	notes = noteIfDefaulted(notes, ParamBackground, c.background)
	c.recordDefaults(notes)
	return c
}

// NameField exposes whether the name was supplied or backfilled.
func (c *Client) NameField() Field[string] { return c.nameField }

// Background returns the background facts used in the persona.
func (c *Client) Background() Field[map[string]any] { return c.background }

func (c *Client) Demeanor() string { return c.demeanor }

func (c *Client) EmotionalState() string {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.emotionalState
}

func (c *Client) DefaultPersonaPrompt() string {
	return fmt.Sprintf(`You are %s, a party involved in legal proceedings.

BACKGROUND INFORMATION:
%s

PERSONALITY AND DEMEANOR:
You are generally %s in your interactions with the court and other parties.
Your current emotional state is %s.

As a client in these proceedings, you should:

1. Answer questions truthfully based on your background and perspective
2. Express your desired outcomes and concerns
3. Defer to your legal counsel on matters of law and strategy
4. Maintain appropriate courtroom behavior
5. Provide your personal experience and perspective

%s

Your responses should feel authentic and consistent with your background story.`,
		c.nameField.Value, bullets(c.background.Value), c.demeanor, c.EmotionalState(), firstPersonVoice)
}

func (c *Client) Process(ctx context.Context, input string) (*domain.AgentResponse, error) {
	text, err := c.generate(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(text, map[string]any{
		"demeanor":        c.demeanor,
		"emotional_state": c.EmotionalState(),
	}), nil
}

// ProvideTestimony answers a question under oath.
func (c *Client) ProvideTestimony(ctx context.Context, question string) (*domain.AgentResponse, error) {
	return c.Process(ctx, underOath(c.name, question, ""))
}

// UpdateEmotionalState changes the state and leaves a system note in the
// history so the next turn sees it.
func (c *Client) UpdateEmotionalState(state string) {
	c.stateMu.Lock()
	c.emotionalState = state
	c.stateMu.Unlock()
	c.AddMessage(domain.RoleSystem, emotionalNote(c.name, state), "")
}
