package ai

import (
	"context"
	"sort"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIBackend answers completion requests through any OpenAI-compatible chat API
type openAIBackend struct {
	client *openai.Client
	config config.OperationAIConfig
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func newOpenAIBackend(cfg config.OperationAIConfig) *openAIBackend {
	return &openAIBackend{
		client: newOpenAIClient(cfg.APIKey, cfg.BaseURL),
		config: cfg,
	}
}

func (o *openAIBackend) Name() string { return config.ProviderOpenAI }

// Complete implements backend. The schema goes into the system message since
// compatible servers differ in structured output support.
func (o *openAIBackend) Complete(ctx context.Context, req completionRequest) (*completion, error) {
	system := req.Schema.Instructions()
	if req.SystemPrompt != "" {
		system = req.SystemPrompt + "\n\n" + system
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if o.config.UseSystemPrompts == nil || *o.config.UseSystemPrompts {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.UserPrompt),
		}
	} else {
		messages = []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(system + "\n\n" + req.UserPrompt),
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(o.config.Model),
	}
	if o.config.Temperature != nil && *o.config.Temperature > 0 {
		params.Temperature = openai.F(float64(*o.config.Temperature))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid, "chat completion returned no choices", nil)
	}

	return &completion{
		Text: resp.Choices[0].Message.Content,
		Usage: &TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// ModelInfo implements backend
func (o *openAIBackend) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	model, err := o.client.Models.Get(ctx, o.config.Model)
	if err != nil {
		return nil, err
	}
	return &ModelInfo{
		Name:        o.config.Model,
		Provider:    config.ProviderOpenAI,
		DisplayName: model.ID,
		Version:     model.OwnedBy,
		Available:   true,
	}, nil
}

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings API
type OpenAIEmbedder struct {
	client         *openai.Client
	config         config.EmbeddingConfig
	circuitBreaker *CircuitBreaker[[][]float32]
	logger         *errors.Logger
}

// Ensure OpenAIEmbedder implements Embedder
var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI embedder
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, breaker config.CircuitBreakerConfig, logger *errors.Logger) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:         newOpenAIClient(cfg.APIKey, cfg.BaseURL),
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[[][]float32](breakerName("embed", config.ProviderOpenAI), breaker, logger),
		logger:         logger,
	}
}

// Dimensions implements Embedder
func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

// Embed implements Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.config.BatchSize, func(batch []string) ([][]float32, error) {
		return e.circuitBreaker.Execute(func() ([][]float32, error) {
			return executeWithRetry(ctx, e.logger, "embed", e.config.MaxRetries, func() ([][]float32, error) {
				return e.embedBatch(ctx, batch)
			})
		})
	})
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](openai.EmbeddingNewParamsInputArrayOfStrings(batch)),
		Model: openai.F(e.config.Model),
	}
	if e.config.Dimensions > 0 {
		params.Dimensions = openai.F(int64(e.config.Dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, 0, len(data))
	for _, d := range data {
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
