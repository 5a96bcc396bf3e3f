package courtroom

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"virtual-courtroom/internal/domain"
)

const attorneySuffix = "'s Attorney"

// kindAliases maps caller role vocabulary onto the canonical type tags.
var kindAliases = map[string]string{
	"client":           "client",
	"opposing_party":   "opposing_party",
	"legal_counsel":    "legal_counsel",
	"client_counsel":   "legal_counsel",
	"opposing_counsel": "legal_counsel",
	"judicial":         "judicial",
	"judge":            "judicial",
}

// NormalizeKind resolves role aliases. Unknown tags pass through unchanged.
func NormalizeKind(tag string) string {
	if canonical, ok := kindAliases[tag]; ok {
		return canonical
	}
	return tag
}

// defaultName is the placeholder given to an agent created without a name.
func defaultName(tag string) string {
	if tag == "" {
		return "Default "
	}
	return "Default " + strings.ToUpper(tag[:1]) + strings.ToLower(tag[1:])
}

// Roster maps role keys to agents for one simulated case.
type Roster map[string]Agent

// Judge returns the roster's judicial agent, if any.
func (r Roster) Judge() (*Judicial, bool) {
	if a, ok := r[domain.RosterJudge]; ok {
		if j, ok := a.(*Judicial); ok {
			return j, true
		}
	}
	for _, a := range r {
		if j, ok := a.(*Judicial); ok {
			return j, true
		}
	}
	return nil, false
}

// FactoryConfig controls agent construction.
type FactoryConfig struct {
	// Generation seeds every agent's oracle parameters; params may override.
	Generation GenerationParams
	// Strict rejects calls that would need a backfilled required field.
	Strict bool
}

// Factory builds agents from type tags and loose parameters.
type Factory struct {
	deps         Deps
	cfg          FactoryConfig
	logger       *slog.Logger
	orchestrator *Orchestrator
}

// NewFactory creates a Factory sharing llm across every agent it builds.
func NewFactory(llm domain.LLMProvider, cfg FactoryConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Generation = cfg.Generation.withDefaults()
	return &Factory{
		deps:         Deps{LLM: llm, Logger: logger},
		cfg:          cfg,
		logger:       logger,
		orchestrator: NewOrchestrator(logger),
	}
}

// CreateOption adjusts a single CreateAgent call.
type CreateOption func(*createOptions)

type createOptions struct {
	seed []domain.Message
}

// WithSeed restores prior turns into the new agent's history.
func WithSeed(history []domain.Message) CreateOption {
	return func(o *createOptions) { o.seed = history }
}

// CreateAgent builds the variant named by tag. Aliases are normalized first.
// Missing required fields are backfilled unless the factory is strict; an
// unrecognised tag fails with ErrUnknownAgentType.
func (f *Factory) CreateAgent(tag string, params Params, opts ...CreateOption) (Agent, error) {
	const op = "Factory.CreateAgent"

	var o createOptions
	for _, fn := range opts {
		fn(&o)
	}

	canonical := NormalizeKind(tag)
	kind, ok := ParseKind(canonical)
	if !ok {
		f.logger.Error("unknown agent type", "type", tag)
		return nil, domain.NewDomainError(op, domain.ErrUnknownAgentType, tag)
	}
	if canonical != tag {
		f.logger.Debug("agent type normalized", "type", tag, "canonical", canonical)
	}
	if err := ValidateParams(kind, params); err != nil {
		f.logger.Warn("agent params rejected", "type", tag, "error", err)
		return nil, err
	}

	b := &backfill{op: op, strict: f.cfg.Strict, params: params.Clone()}

	var name Field[string]
	if kind == KindJudicial && f.cfg.Strict {
		// A judge has no required fields; the variant default applies.
		if v, ok := b.optString(ParamName); ok && v != "" {
			name = Provided(v)
		}
	} else {
		name = b.string(ParamName, func() string { return defaultName(tag) })
	}
	systemPrompt, _ := b.optString(ParamSystemPrompt)
	gen := b.generation(f.cfg.Generation)

	var agent Agent
	switch kind {
	case KindClient:
		background := b.background()
		demeanor, _ := b.optString(ParamDemeanor)
		state, _ := b.optString(ParamEmotionalState)
		if b.err != nil {
			return nil, b.err
		}
		agent = NewClient(ClientConfig{
			Name:           name,
			Background:     background,
			Demeanor:       demeanor,
			EmotionalState: state,
			SystemPrompt:   systemPrompt,
			Params:         gen,
			Seed:           o.seed,
		}, f.deps)

	case KindOpposingParty:
		background := b.background()
		relationship := b.string(ParamRelationship, func() string { return DefaultRelationship })
		demeanor, _ := b.optString(ParamDemeanor)
		state, _ := b.optString(ParamEmotionalState)
		if b.err != nil {
			return nil, b.err
		}
		agent = NewOpposingParty(OpposingPartyConfig{
			Name:           name,
			Background:     background,
			Relationship:   relationship,
			Demeanor:       demeanor,
			EmotionalState: state,
			SystemPrompt:   systemPrompt,
			Params:         gen,
			Seed:           o.seed,
		}, f.deps)

	case KindLegalCounsel:
		representing := b.string(ParamRepresenting, func() string { return representingFromName(name.Value) })
		specialization, _ := b.optString(ParamSpecialization)
		level, _ := b.optString(ParamExperienceLevel)
		var aggressive *float64
		if v, ok := b.optFloat(ParamAggressive); ok {
			aggressive = &v
		}
		if b.err != nil {
			return nil, b.err
		}
		agent = NewLegalCounsel(LegalCounselConfig{
			Name:             name,
			Representing:     representing,
			Specialization:   specialization,
			ExperienceLevel:  level,
			AggressiveFactor: aggressive,
			SystemPrompt:     systemPrompt,
			Params:           gen,
			Seed:             o.seed,
		}, f.deps)

	case KindJudicial:
		jurisdiction, _ := b.optString(ParamJurisdiction)
		years, _ := b.optInt(ParamLegalExperience)
		if b.err != nil {
			return nil, b.err
		}
		j := NewJudicial(JudicialConfig{
			Name:            name.Value,
			Jurisdiction:    jurisdiction,
			LegalExperience: years,
			SystemPrompt:    systemPrompt,
			Params:          gen,
			Seed:            o.seed,
		}, f.deps)
		j.recordDefaults(noteIfDefaulted(nil, ParamName, name))
		agent = j
	}

	f.logger.Debug("agent created", "type", tag, "name", agent.Name(), "role", agent.Role())
	return agent, nil
}

// CaseDetails is the flat input to CreateFamilyCourtSimulation.
type CaseDetails struct {
	ClientName         string         `json:"client_name" yaml:"client_name"`
	OpposingName       string         `json:"opposing_name" yaml:"opposing_name"`
	Relationship       string         `json:"relationship" yaml:"relationship"`
	ClientBackground   map[string]any `json:"client_background" yaml:"client_background"`
	OpposingBackground map[string]any `json:"opposing_background" yaml:"opposing_background"`
}

// Family roster defaults.
const (
	DefaultRosterClientName   = "Client"
	DefaultRosterOpposingName = "Ex-Spouse"
)

// FamilyCourtParams returns the construction parameters of the canonical
// five-role family court roster, keyed by role key. Persisting these and
// replaying them through CreateAgent rebuilds an equivalent roster.
func FamilyCourtParams(details CaseDetails) map[string]Params {
	clientName := cmp.Or(details.ClientName, DefaultRosterClientName)
	opposingName := cmp.Or(details.OpposingName, DefaultRosterOpposingName)
	relationship := cmp.Or(details.Relationship, DefaultRelationship)

	clientBackground := details.ClientBackground
	if clientBackground == nil {
		clientBackground = map[string]any{}
	}
	opposingBackground := details.OpposingBackground
	if opposingBackground == nil {
		opposingBackground = map[string]any{}
	}

	return map[string]Params{
		domain.RosterClient: {
			ParamName:       clientName,
			ParamBackground: clientBackground,
			ParamDemeanor:   DefaultClientDemeanor,
		},
		domain.RosterOpposingParty: {
			ParamName:         opposingName,
			ParamBackground:   opposingBackground,
			ParamRelationship: relationship,
		},
		domain.RosterClientCounsel: {
			ParamName:           clientName + attorneySuffix,
			ParamRepresenting:   clientName,
			ParamSpecialization: DefaultSpecialization,
		},
		domain.RosterOpposingCounsel: {
			ParamName:           opposingName + attorneySuffix,
			ParamRepresenting:   opposingName,
			ParamSpecialization: DefaultSpecialization,
		},
		domain.RosterJudge: {
			ParamName:         DefaultJudgeName,
			ParamJurisdiction: DefaultJurisdiction,
		},
	}
}

// FamilyCourtRoles lists the canonical roster keys in creation order.
var FamilyCourtRoles = []string{
	domain.RosterClient,
	domain.RosterOpposingParty,
	domain.RosterClientCounsel,
	domain.RosterOpposingCounsel,
	domain.RosterJudge,
}

// CreateFamilyCourtSimulation builds the five-role family court roster.
func (f *Factory) CreateFamilyCourtSimulation(details CaseDetails) (Roster, error) {
	params := FamilyCourtParams(details)
	roster := make(Roster, len(FamilyCourtRoles))
	for _, key := range FamilyCourtRoles {
		agent, err := f.CreateAgent(key, params[key])
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", key, err)
		}
		roster[key] = agent
	}
	f.logger.Info("family court roster created",
		"client", roster[domain.RosterClient].Name(),
		"opposing_party", roster[domain.RosterOpposingParty].Name(),
	)
	return roster, nil
}

// SimulateExchange runs scenario through roster in speakingOrder.
func (f *Factory) SimulateExchange(ctx context.Context, roster Roster, scenario string, speakingOrder []string, opts ...ExchangeOption) ([]domain.Turn, error) {
	return f.orchestrator.Run(ctx, roster, scenario, speakingOrder, opts...)
}

// backfill reads typed values out of Params, substituting defaults for
// absent required fields or, in strict mode, recording the first failure.
type backfill struct {
	op     string
	strict bool
	params Params
	err    error
}

func (b *backfill) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// string reads a required string field.
func (b *backfill) string(key string, def func() string) Field[string] {
	v, ok, err := b.params.String(key)
	if err != nil {
		b.fail(err)
		return Field[string]{}
	}
	if ok && v != "" {
		return Provided(v)
	}
	if b.strict {
		b.fail(domain.NewDomainError(b.op, domain.ErrMissingRequiredField, key))
		return Field[string]{}
	}
	return DefaultedTo(def(), "factory")
}

func (b *backfill) background() Field[map[string]any] {
	v, ok, err := b.params.Map(ParamBackground)
	if err != nil {
		b.fail(err)
		return Field[map[string]any]{}
	}
	if ok {
		return Provided(v)
	}
	if b.strict {
		b.fail(domain.NewDomainError(b.op, domain.ErrMissingRequiredField, ParamBackground))
		return Field[map[string]any]{}
	}
	return DefaultedTo(defaultBackground(), "factory")
}

func (b *backfill) optString(key string) (string, bool) {
	v, ok, err := b.params.String(key)
	if err != nil {
		b.fail(err)
	}
	return v, ok
}

func (b *backfill) optFloat(key string) (float64, bool) {
	v, ok, err := b.params.Float(key)
	if err != nil {
		b.fail(err)
		return 0, false
	}
	return v, ok
}

func (b *backfill) optInt(key string) (int, bool) {
	v, ok, err := b.params.Int(key)
	if err != nil {
		b.fail(err)
		return 0, false
	}
	return v, ok
}

// generation overlays model, temperature and max_tokens params on base.
func (b *backfill) generation(base GenerationParams) GenerationParams {
	if v, ok := b.optString(ParamModel); ok && v != "" {
		base.Model = v
	}
	if v, ok := b.optFloat(ParamTemperature); ok {
		base.Temperature = v
	}
	if v, ok := b.optInt(ParamMaxTokens); ok && v > 0 {
		base.MaxTokens = v
	}
	return base
}
