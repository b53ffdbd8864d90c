package enrich

import (
	"fmt"

	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	"github.com/tigerroll/nameforge/pkg/batch/infrastructure/repository/state"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// Supported client kinds.
const (
	ClientLLM     = "llm"
	ClientCommand = "command"
)

// NewClientFromConfig creates the stage client selected by enrichment.client.
func NewClientFromConfig(cfg *config.Config) (Client, error) {
	ec := cfg.Nameforge.Enrichment
	switch ec.Client {
	case ClientCommand:
		return NewCommandClient(ec)
	case ClientLLM, "":
		m, err := NewLanguageModel(ec)
		if err != nil {
			return nil, err
		}
		return NewLLMClient(m, ec)
	default:
		return nil, fmt.Errorf("unsupported enrichment client: %s", ec.Client)
	}
}

// NewValidatorFromConfig builds the required-fields validator plus the schema validator when schema_path is set.
func NewValidatorFromConfig(cfg *config.Config) (Validator, error) {
	ec := cfg.Nameforge.Enrichment
	validators := Validators{NewRequiredFieldsValidator(ec.RequiredFields)}
	if ec.SchemaPath != "" {
		sv, err := NewSchemaValidator(ec.SchemaPath)
		if err != nil {
			return nil, err
		}
		validators = append(validators, sv)
	}
	return validators, nil
}

// NewEnricher wires the staged enricher over the configured client.
func NewEnricher(cfg *config.Config, client Client, validator Validator, stores *state.Stores) (*StagedEnricher, error) {
	ec := cfg.Nameforge.Enrichment
	stages := StagesFromConfig(ec)
	merger := NewMerger(ec.MergeVersion, ec.Dedup, nil)
	e, err := NewStagedEnricher(client, stages, stores.Stages, merger, validator, nil)
	if err != nil {
		return nil, err
	}
	logger.Infof("Enrichment client '%s' configured with %d stage(s).", ec.Client, len(stages))
	return e, nil
}

// Module provides port.Enricher.
var Module = fx.Options(
	fx.Provide(NewClientFromConfig),
	fx.Provide(NewValidatorFromConfig),
	fx.Provide(fx.Annotate(
		NewEnricher,
		fx.As(new(port.Enricher)),
	)),
)
