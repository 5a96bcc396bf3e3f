package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"virtual-courtroom/internal/adapter/tui/hearing"
	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/usecase/courtroom"
)

const defaultOrder = "client,client_counsel,opposing_party,opposing_counsel,judge"

// CaseFile describes a family case for the run and predict commands.
type CaseFile struct {
	Title                 string `yaml:"title"`
	Type                  string `yaml:"type"`
	Description           string `yaml:"description"`
	courtroom.CaseDetails `yaml:",inline"`
}

func loadCaseFile(path string) (*CaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var cf CaseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse case file: %w", err)
	}
	cf.Type = cmp.Or(cf.Type, "family")
	return &cf, nil
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RunCmd runs one scenario against a roster built from a case file. Nothing
// is persisted.
type RunCmd struct {
	Case     string `long:"case" required:"true" description:"case YAML file"`
	Scenario string `long:"scenario" required:"true" description:"scenario text opening the exchange"`
	Order    string `long:"order" description:"comma separated speaking order (default: client,client_counsel,opposing_party,opposing_counsel,judge)"`
	JSON     bool   `long:"json" description:"print turns as JSON lines"`
	TUI      bool   `long:"tui" description:"follow the hearing in a terminal viewer"`
}

// Execute implements flags.Commander.
func (c *RunCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cf, err := loadCaseFile(c.Case)
	if err != nil {
		return err
	}

	if c.TUI {
		_, err := hearing.Run(ctx, cmp.Or(cf.Title, "Family Court Case"), c.Scenario, c.rosterOrder(cf),
			func(ctx context.Context, onTurn func(domain.Turn)) error {
				_, _, err := c.exchange(ctx, a.factory, cf, func(t domain.Turn) error {
					onTurn(t)
					return nil
				})
				return err
			})
		return err
	}

	_, _, err = c.exchange(ctx, a.factory, cf, turnWriter(os.Stdout, c.JSON))
	return err
}

func (c *RunCmd) order() []string {
	return splitList(cmp.Or(c.Order, defaultOrder))
}

// rosterOrder is the speaking order without keys the family roster lacks,
// which the exchange skips.
func (c *RunCmd) rosterOrder(cf *CaseFile) []string {
	roster := courtroom.FamilyCourtParams(cf.CaseDetails)
	return slices.DeleteFunc(c.order(), func(key string) bool {
		_, ok := roster[key]
		return !ok
	})
}

// exchange builds the roster for cf and runs the scenario, handing each turn
// to onTurn as it is produced.
func (c *RunCmd) exchange(ctx context.Context, factory *courtroom.Factory, cf *CaseFile, onTurn func(domain.Turn) error) (courtroom.Roster, []domain.Turn, error) {
	roster, err := factory.CreateFamilyCourtSimulation(cf.CaseDetails)
	if err != nil {
		return nil, nil, err
	}
	turns, err := factory.SimulateExchange(ctx, roster, c.Scenario, c.order(),
		courtroom.WithTurnObserver(func(_ context.Context, turn domain.Turn, _ string) error {
			return onTurn(turn)
		}))
	if err != nil {
		return nil, nil, err
	}
	return roster, turns, nil
}

func turnWriter(out io.Writer, asJSON bool) func(domain.Turn) error {
	if asJSON {
		enc := json.NewEncoder(out)
		return func(t domain.Turn) error { return enc.Encode(t) }
	}
	return func(t domain.Turn) error {
		_, err := fmt.Fprintf(out, "[%s] %s:\n%s\n\n", t.Speaker, t.Name, t.Message)
		return err
	}
}

// PredictCmd runs a scenario and asks the roster's judge for an outcome
// estimate over the resulting transcript.
type PredictCmd struct {
	RunCmd
	Factors []string `long:"factor" description:"factor name, repeatable"`
	Focus   []string `long:"focus" description:"focus area, repeatable"`
}

// Execute implements flags.Commander.
func (c *PredictCmd) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cf, err := loadCaseFile(c.Case)
	if err != nil {
		return err
	}
	pred, err := c.predict(ctx, a.factory, courtroom.NewPredictor(a.log), cf, os.Stdout)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pred)
}

func (c *PredictCmd) predict(ctx context.Context, factory *courtroom.Factory, predictor *courtroom.Predictor, cf *CaseFile, out io.Writer) (*domain.Prediction, error) {
	roster, turns, err := c.exchange(ctx, factory, cf, turnWriter(out, c.JSON))
	if err != nil {
		return nil, err
	}
	judge, ok := roster.Judge()
	if !ok {
		return nil, domain.NewDomainError("predict", domain.ErrInvalidInput, "roster has no judge")
	}

	transcript := make([]domain.TranscriptEntry, 0, len(turns))
	for _, t := range turns {
		transcript = append(transcript, domain.TranscriptEntry{Speaker: t.Name, Role: t.Role, Content: t.Message})
	}
	factors := make([]domain.Factor, 0, len(c.Factors))
	for _, name := range c.Factors {
		factors = append(factors, domain.Factor{Name: name})
	}

	return predictor.Predict(ctx, courtroom.PredictionRequest{
		Judge:               judge,
		CaseType:            cf.Type,
		CaseDescription:     cf.Description,
		ScenarioDescription: c.Scenario,
		Factors:             factors,
		FocusAreas:          c.Focus,
		Transcript:          transcript,
	})
}
