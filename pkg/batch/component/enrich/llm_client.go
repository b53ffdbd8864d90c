package enrich

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/exception"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const defaultSystemPrompt = `You write structured reference data about given names.
Answer with a single JSON object and nothing else.`

const defaultPromptTemplate = `Produce enrichment data for the given name "{{.Name}}" (popularity rank {{.Rank}}).
{{- if .Attributes}}
Known attributes:{{range $k, $v := .Attributes}}
- {{$k}}: {{$v}}{{end}}
{{- end}}
Stage: {{.Stage}}.
Include at least the fields "name", "origin" and "meaning".
{{- if .Previous}}
Extend this existing data without contradicting it:
{{.PreviousJSON}}
{{- end}}`

// promptData is the value prompt templates are executed with.
type promptData struct {
	ID           string
	Name         string
	Rank         int
	Attributes   map[string]string
	Stage        string
	Previous     map[string]interface{}
	PreviousJSON string
}

// LLMClient asks a language model for the record and extracts the JSON object from its answer.
type LLMClient struct {
	llm          llms.Model
	modelName    string
	systemPrompt string
	prompts      map[string]*template.Template
	fallback     *template.Template
}

var _ Client = (*LLMClient)(nil)

// NewLanguageModel creates the langchaingo model for the configured provider.
func NewLanguageModel(cfg config.EnrichmentConfig) (llms.Model, error) {
	var m llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		m, err = ollama.New(opts...)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		m, err = openai.New(opts...)
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		m, err = anthropic.New(anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model))
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}
	return m, nil
}

// NewLLMClient creates an LLMClient over m. Stage prompt templates override the default template.
func NewLLMClient(m llms.Model, cfg config.EnrichmentConfig) (*LLMClient, error) {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	text := cfg.PromptTemplate
	if text == "" {
		text = defaultPromptTemplate
	}
	fallback, err := template.New("prompt").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt_template: %w", err)
	}

	prompts := make(map[string]*template.Template)
	for _, stage := range cfg.Stages {
		if stage.PromptTemplate == "" {
			continue
		}
		tmpl, err := template.New(stage.Name).Parse(stage.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt_template for stage '%s': %w", stage.Name, err)
		}
		prompts[stage.Name] = tmpl
	}

	return &LLMClient{
		llm:          m,
		modelName:    cfg.Model,
		systemPrompt: systemPrompt,
		prompts:      prompts,
		fallback:     fallback,
	}, nil
}

// Prompt renders the user prompt for req.
func (c *LLMClient) Prompt(req Request) (string, error) {
	tmpl, ok := c.prompts[req.Stage]
	if !ok {
		tmpl = c.fallback
	}
	payload := newRequestPayload(req)
	var buf bytes.Buffer
	data := promptData{
		ID:           payload.ID,
		Name:         payload.Name,
		Rank:         payload.Rank,
		Attributes:   payload.Attributes,
		Stage:        payload.Stage,
		Previous:     payload.Previous,
		PreviousJSON: payload.previousJSON(),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", exception.NewPermanentEnrichmentError(fmt.Sprintf("failed to render prompt for stage '%s'", req.Stage), err)
	}
	return buf.String(), nil
}

// Complete implements Client.
func (c *LLMClient) Complete(ctx context.Context, req Request) (*model.EnrichedRecord, error) {
	prompt, err := c.Prompt(req)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	response, err := c.llm.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, exception.ClassifyEnrichmentError(fmt.Errorf("generate %s/%s: %w", c.modelName, req.Stage, err))
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return nil, exception.NewPermanentEnrichmentError("empty enrichment response", nil)
	}

	fields, err := ExtractJSON(response.Choices[0].Content)
	if err != nil {
		return nil, err
	}
	return &model.EnrichedRecord{ID: req.Item.ID, Fields: fields}, nil
}
