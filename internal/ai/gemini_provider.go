package ai

import (
	"context"
	"fmt"

	"niena/internal/config"
	"niena/internal/errors"

	"google.golang.org/genai"
)

// geminiBackend answers completion requests with Google Gemini structured output
type geminiBackend struct {
	client *genai.Client
	config config.OperationAIConfig
}

func newGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}
	return client, nil
}

func newGeminiBackend(ctx context.Context, cfg config.OperationAIConfig) (*geminiBackend, error) {
	client, err := newGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &geminiBackend{client: client, config: cfg}, nil
}

func (g *geminiBackend) Name() string { return config.ProviderGemini }

// Complete implements backend
func (g *geminiBackend) Complete(ctx context.Context, req completionRequest) (*completion, error) {
	genaiConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema.genai,
	}
	if g.config.Temperature != nil && *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}

	userPrompt := req.UserPrompt
	if req.SystemPrompt != "" {
		if g.config.UseSystemPrompts != nil && *g.config.UseSystemPrompts {
			genaiConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
		} else {
			userPrompt = req.SystemPrompt + "\n\n" + userPrompt
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
	if err != nil {
		return nil, err
	}

	return &completion{
		Text:  result.Text(),
		Usage: extractTokenUsage(result),
	}, nil
}

// ModelInfo implements backend
func (g *geminiBackend) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	model, err := g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
	if err != nil {
		return nil, err
	}
	return &ModelInfo{
		Name:        g.config.Model,
		Provider:    config.ProviderGemini,
		DisplayName: model.DisplayName,
		Version:     model.Version,
		Available:   true,
	}, nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

// GeminiEmbedder embeds text with a Gemini embedding model
type GeminiEmbedder struct {
	client         *genai.Client
	config         config.EmbeddingConfig
	circuitBreaker *CircuitBreaker[[][]float32]
	logger         *errors.Logger
}

// Ensure GeminiEmbedder implements Embedder
var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a Gemini embedder
func NewGeminiEmbedder(ctx context.Context, cfg config.EmbeddingConfig, breaker config.CircuitBreakerConfig, logger *errors.Logger) (*GeminiEmbedder, error) {
	client, err := newGeminiClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{
		client:         client,
		config:         cfg,
		circuitBreaker: NewCircuitBreaker[[][]float32](breakerName("embed", config.ProviderGemini), breaker, logger),
		logger:         logger,
	}, nil
}

// Dimensions implements Embedder
func (e *GeminiEmbedder) Dimensions() int { return e.config.Dimensions }

// Embed implements Embedder, sending texts in batches of the configured size
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedInBatches(ctx, texts, e.config.BatchSize, func(batch []string) ([][]float32, error) {
		return e.circuitBreaker.Execute(func() ([][]float32, error) {
			return executeWithRetry(ctx, e.logger, "embed", e.config.MaxRetries, func() ([][]float32, error) {
				return e.embedBatch(ctx, batch)
			})
		})
	})
}

func (e *GeminiEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(batch))
	for _, text := range batch {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	embedConfig := &genai.EmbedContentConfig{}
	if e.config.Dimensions > 0 {
		dims := int32(e.config.Dimensions)
		embedConfig.OutputDimensionality = &dims
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.config.Model, contents, embedConfig)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

// embedInBatches splits texts, calls fn per batch and checks every text got a vector of one size
func embedInBatches(ctx context.Context, texts []string, batchSize int, fn func([]string) ([][]float32, error)) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))

		vectors, err := fn(texts[start:end])
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to embed texts", err)
		}
		if len(vectors) != end-start {
			return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
				fmt.Sprintf("embedding returned %d vectors for %d texts", len(vectors), end-start), nil)
		}
		out = append(out, vectors...)
	}

	dims := len(out[0])
	for i, v := range out {
		if len(v) != dims || dims == 0 {
			return nil, errors.NewAIError(errors.ErrCodeAIResponseInvalid,
				fmt.Sprintf("embedding %d has %d dimensions, want %d", i, len(v), dims), nil)
		}
	}
	return out, nil
}
