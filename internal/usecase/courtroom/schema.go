package courtroom

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"virtual-courtroom/internal/domain"
)

// Property shapes shared by the per-kind parameter schemas. Numbers may
// arrive as numeric strings from older participant records.
const (
	stringProp = `{"type": ["string", "null"]}`
	objectProp = `{"type": ["object", "null"]}`
	numberProp = `{"anyOf": [{"type": ["number", "null"]}, {"type": "string", "pattern": "^-?[0-9]+(\\.[0-9]+)?$"}]}`
)

// paramProps lists the keys each kind reads. Unknown keys are allowed so
// persisted participants can carry extra context.
var paramProps = map[Kind]map[string]string{
	KindClient: {
		ParamBackground:     objectProp,
		ParamDemeanor:       stringProp,
		ParamEmotionalState: stringProp,
	},
	KindOpposingParty: {
		ParamBackground:     objectProp,
		ParamRelationship:   stringProp,
		ParamDemeanor:       stringProp,
		ParamEmotionalState: stringProp,
	},
	KindLegalCounsel: {
		ParamRepresenting:    stringProp,
		ParamSpecialization:  stringProp,
		ParamExperienceLevel: stringProp,
		ParamAggressive:      numberProp,
	},
	KindJudicial: {
		ParamJurisdiction:    stringProp,
		ParamLegalExperience: numberProp,
	},
}

var commonProps = map[string]string{
	ParamName:         stringProp,
	ParamSystemPrompt: stringProp,
	ParamModel:        stringProp,
	ParamTemperature:  numberProp,
	ParamMaxTokens:    numberProp,
}

var paramSchemas = mustCompileParamSchemas()

func mustCompileParamSchemas() map[Kind]*jsonschema.Schema {
	out := make(map[Kind]*jsonschema.Schema, len(paramProps))
	for kind, props := range paramProps {
		s, err := compileParamSchema(kind, props)
		if err != nil {
			panic(err)
		}
		out[kind] = s
	}
	return out
}

func compileParamSchema(kind Kind, props map[string]string) (*jsonschema.Schema, error) {
	all := make(map[string]json.RawMessage, len(commonProps)+len(props))
	for k, v := range commonProps {
		all[k] = json.RawMessage(v)
	}
	for k, v := range props {
		all[k] = json.RawMessage(v)
	}
	raw, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": all,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s params schema: %w", kind, err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile %s params schema: %w", kind, err)
	}
	return schema, nil
}

// ValidateParams checks params against the shape kind reads. Values are
// normalized through JSON first, so Go callers and decoded request bodies
// are judged alike.
func ValidateParams(kind Kind, params Params) error {
	const op = "courtroom.ValidateParams"
	schema, ok := paramSchemas[kind]
	if !ok || len(params) == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]any(params))
	if err != nil {
		return domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
	}
	result := schema.Validate(doc)
	if !result.IsValid() {
		return domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("%s params: %s", kind, result.Error()))
	}
	return nil
}
