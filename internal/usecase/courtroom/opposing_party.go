package courtroom

import (
	"context"
	"fmt"
	"sync"

	"virtual-courtroom/internal/domain"
)

// Opposing party defaults.
const (
	DefaultOpposingDemeanor       = "assertive"
	DefaultOpposingEmotionalState = "defensive"
	DefaultRelationship           = "ex-spouse"
)

// OpposingPartyConfig configures an OpposingParty.
type OpposingPartyConfig struct {
	Name           Field[string]
	Background     Field[map[string]any]
	Relationship   Field[string]
	Demeanor       string
	EmotionalState string
	SystemPrompt   string
	Params         GenerationParams
	Seed           []domain.Message
}

// OpposingParty argues the counter-narrative to the client.
type OpposingParty struct {
	*core

	nameField    Field[string]
	background   Field[map[string]any]
	relationship Field[string]
	demeanor     string

	stateMu        sync.RWMutex
	emotionalState string
}

var _ Agent = (*OpposingParty)(nil)

// NewOpposingParty builds an opposing party. Unset required fields are
// backfilled the same way the factory would and reported through Defaulted.
func NewOpposingParty(cfg OpposingPartyConfig, deps Deps) *OpposingParty {
	o := &OpposingParty{
		nameField:      cfg.Name,
		background:     cfg.Background,
		relationship:   cfg.Relationship,
		demeanor:       cfg.Demeanor,
		emotionalState: cfg.EmotionalState,
	}
	if !o.nameField.IsSet() || o.nameField.Value == "" {
		o.nameField = DefaultedTo(defaultName(RoleOpposingParty), RoleOpposingParty)
	}
	if !o.background.IsSet() {
		o.background = DefaultedTo(defaultBackground(), RoleOpposingParty)
	}
	if !o.relationship.IsSet() || o.relationship.Value == "" {
		o.relationship = DefaultedTo(DefaultRelationship, RoleOpposingParty)
	}
	if o.demeanor == "" {
		o.demeanor = DefaultOpposingDemeanor
	}
	if o.emotionalState == "" {
		o.emotionalState = DefaultOpposingEmotionalState
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = o.DefaultPersonaPrompt()
	}
	o.core = newCore(deps, KindOpposingParty, o.nameField.Value, RoleOpposingParty, prompt, cfg.Params, cfg.Seed)

	var notes []defaultNote
	notes = noteIfDefaulted(notes, ParamName, o.nameField)
	notes = noteIfDefaulted(notes, ParamBackground, o.background)
	notes = noteIfDefaulted(notes, ParamRelationship, o.relationship)
	o.recordDefaults(notes)
	return o
}

func (o *OpposingParty) NameField() Field[string]          { return o.nameField }
func (o *OpposingParty) Background() Field[map[string]any] { return o.background }
func (o *OpposingParty) Relationship() Field[string]       { return o.relationship }
func (o *OpposingParty) Demeanor() string                  { return o.demeanor }

func (o *OpposingParty) EmotionalState() string {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.emotionalState
}

func (o *OpposingParty) DefaultPersonaPrompt() string {
	return fmt.Sprintf(`You are %s, the opposing party in legal proceedings.
You have a %s relationship with the primary client.

BACKGROUND INFORMATION:
%s

PERSONALITY AND DEMEANOR:
You are generally %s in your interactions with the court and other parties.
Your current emotional state is %s.

As the opposing party in these proceedings, you should:

1. Present your side of the dispute honestly from your perspective
2. Express your desired outcomes and concerns, which often conflict with the primary client
3. Defend your positions when challenged
4. Maintain appropriate courtroom behavior despite potential personal feelings
5. Provide your personal experience and perspective

In family court matters:
- You believe your position is in the best interest of any children involved
- You have legitimate concerns and grievances that should be respected
- You feel your perspective has not been fully understood

%s

Your responses should feel authentic and present a coherent counter-narrative to the primary client.`,
		o.nameField.Value, o.relationship.Value, bullets(o.background.Value),
		o.demeanor, o.EmotionalState(), firstPersonVoice)
}

func (o *OpposingParty) Process(ctx context.Context, input string) (*domain.AgentResponse, error) {
	text, err := o.generate(ctx, input)
	if err != nil {
		return nil, err
	}
	return respond(text, map[string]any{
		"relationship_to_client": o.relationship.Value,
		"demeanor":               o.demeanor,
		"emotional_state":        o.EmotionalState(),
	}), nil
}

// ProvideTestimony answers a question under oath from the opposing side.
func (o *OpposingParty) ProvideTestimony(ctx context.Context, question string) (*domain.AgentResponse, error) {
	return o.Process(ctx, underOath(o.name, question,
		"which often conflicts with the primary client's perspective"))
}

// RespondToAllegation answers an allegation raised by the client.
func (o *OpposingParty) RespondToAllegation(ctx context.Context, allegation string) (*domain.AgentResponse, error) {
	prompt := fmt.Sprintf(`The primary client has made the following allegation against you:

ALLEGATION: %s

Please respond to this allegation from your perspective.
You may dispute it entirely, partially acknowledge it with explanation,
or provide contextual information that changes its interpretation.`, allegation)
	return o.Process(ctx, prompt)
}

func (o *OpposingParty) UpdateEmotionalState(state string) {
	o.stateMu.Lock()
	o.emotionalState = state
	o.stateMu.Unlock()
	o.AddMessage(domain.RoleSystem, emotionalNote(o.name, state), "")
}

func defaultBackground() map[string]any {
	return map[string]any{"history": "Default background"}
}
