package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// ProviderName is the provider name reported on every response.
const ProviderName = "gemini"

// contentGenerator is the slice of the genai client the executor calls.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Executor runs task prompts against the Gemini API.
type Executor struct {
	models  contentGenerator
	model   string
	pricing PriceTable
	logger  *slog.Logger
	now     func() time.Time
}

// NewExecutor creates a Gemini API client from cfg.
func NewExecutor(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Executor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, redact.Error(err))
	}

	return newExecutor(client.Models, cfg, logger)
}

func newExecutor(models contentGenerator, cfg config.LLMConfig, logger *slog.Logger) (*Executor, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	return &Executor{
		models:  models,
		model:   cfg.ModelName,
		pricing: NewPriceTable(cfg.Pricing),
		logger:  logger.With("component", "gemini_executor"),
		now:     time.Now,
	}, nil
}

// Execute sends prompt to the configured model, or to rc.Model when set.
// A safety block or an empty candidate list is an error; the scheduler
// records it as the task's failure message.
func (e *Executor) Execute(ctx context.Context, prompt string, rc task.RequestConfig) (*task.Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	model := e.model
	if rc.Model != "" {
		model = rc.Model
	}

	start := e.now()
	resp, err := e.models.GenerateContent(ctx, model, genai.Text(prompt), generationConfig(rc))
	elapsed := e.now().Sub(start)
	if err != nil {
		e.logger.ErrorContext(ctx, "Gemini API call failed",
			"model", model,
			"error", redact.Error(err))
		return nil, fmt.Errorf("gemini call failed: %s", redact.Error(err))
	}

	text, err := extractText(resp)
	if err != nil {
		e.logger.WarnContext(ctx, "Gemini API returned no usable content",
			"model", model,
			"error", err)
		return nil, err
	}

	var inputTokens, outputTokens int64
	if resp.UsageMetadata != nil {
		inputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	cost := e.pricing.Cost(model, inputTokens, outputTokens)

	e.logger.DebugContext(ctx, "Gemini API call successful",
		"model", model,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost", cost,
		"response_time_ms", elapsed.Milliseconds())

	return &task.Response{
		Success:      true,
		Result:       text,
		Cost:         cost,
		ResponseTime: elapsed,
		Provider:     ProviderName,
		Model:        model,
	}, nil
}

// Resolve names this executor and the model Execute would call for rc.
func (e *Executor) Resolve(rc task.RequestConfig) task.RequestConfig {
	if rc.Provider == "" {
		rc.Provider = ProviderName
	}
	if rc.Model == "" {
		rc.Model = e.model
	}
	return rc
}

func generationConfig(rc task.RequestConfig) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if rc.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(rc.Temperature))
	}
	if rc.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(rc.MaxTokens)
	}
	return cfg
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text parts", ErrInvalidResponse)
	}
	return b.String(), nil
}
