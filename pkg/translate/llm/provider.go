// Package llm is a translate.Translator that asks an OpenAI model for a short
// dictionary-style gloss using structured JSON output. The same client also
// writes short reading passages for learners.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

const instructions = `You are a Chinese-English dictionary. For the Chinese word or phrase you are given,
reply with a concise English gloss as it would appear in a learner's dictionary: a few words,
comma separated senses, no pinyin, no example sentences, no explanations.`

const passageInstructions = `You are a Chinese language teacher. Generate educational Chinese text for language learners.
Write in simplified Chinese only, with no pinyin and no English.`

const passagePrompt = `Write a short paragraph in simplified Chinese about %s. The paragraph should be educational and
appropriate for Chinese language learners. Use common vocabulary and include some intermediate words for learning purposes.`

// Config configures a Provider.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// MaxRetries is passed to the client; zero keeps the SDK default.
	MaxRetries int
}

// Provider translates through the OpenAI Responses API.
type Provider struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

// glossResponse is the structured output the model must return.
type glossResponse struct {
	Gloss string `json:"gloss" jsonschema:"required,description=Concise English gloss"`
}

var glossSchema = generateSchema[glossResponse]()

// passageResponse is the structured output for Write.
type passageResponse struct {
	Text string `json:"text" jsonschema:"required,description=Paragraph in simplified Chinese"`
}

var passageSchema = generateSchema[passageResponse]()

// NewProvider builds a Provider. An empty API key is an error.
func NewProvider(cfg Config, logger *slog.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	} else if cfg.MaxRetries < 0 {
		opts = append(opts, option.WithMaxRetries(0))
	}

	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  model,
		log:    logger.With("adapter", "llm"),
	}, nil
}

// Translate implements translate.Translator. Only zh->en is supported.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "Gloss",
			Schema:      glossSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("English gloss JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(100),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(text, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	p.log.DebugContext(ctx, "llm request", slog.String("text", text), slog.String("model", p.model))

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}

	var out glossResponse
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("llm: unmarshal gloss: %w", err)
	}
	return strings.TrimSpace(out.Gloss), nil
}

// Write asks the model for a short learner-level paragraph about topic.
func (p *Provider) Write(ctx context.Context, topic string) (string, error) {
	params := responses.ResponseNewParams{
		Model:           p.model,
		MaxOutputTokens: openai.Int(600),
		Temperature:     openai.Float(0.7),
		Instructions:    openai.String(passageInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(fmt.Sprintf(passagePrompt, topic), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "Passage",
					Schema:      passageSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Chinese reading passage JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	p.log.DebugContext(ctx, "llm passage request", slog.String("topic", topic), slog.String("model", p.model))

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}

	var out passageResponse
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("llm: unmarshal passage: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// decodeModelJSON unmarshals the model output, falling back to the first
// top-level JSON object when the model wraps it in prose.
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}
	return nil
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	// Strict mode wants every property required and no extras.
	m["additionalProperties"] = false
	if props, ok := m["properties"].(map[string]any); ok {
		req := make([]string, 0, len(props))
		for name := range props {
			req = append(req, name)
		}
		m["required"] = req
	}
	return m
}
