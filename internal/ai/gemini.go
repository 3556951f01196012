package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured
const DefaultModel = "gemini-1.5-flash"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from model")

// Completer turns a prompt into generated text
type Completer interface {
	Complete(ctx context.Context, apiKey, prompt string) (string, error)
}

// Gemini calls the Gemini API. The API key is supplied per call because the
// owner can replace it at runtime; the client for the latest key is reused.
type Gemini struct {
	model   string
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	key    string
	client *genai.Client
}

// NewGemini creates a Gemini completer
func NewGemini(model string, timeout time.Duration, logger *zap.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Complete sends a single-shot prompt and returns the generated text
func (g *Gemini) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	client, err := g.clientFor(ctx, apiKey)
	if err != nil {
		return "", err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.Warn("Gemini request failed",
			zap.Error(err),
			zap.String("model", g.model),
			zap.Duration("elapsed", time.Since(start)),
		)
		return "", fmt.Errorf("gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("Gemini request completed",
		zap.String("model", g.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("answer_len", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}

func (g *Gemini) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is not configured")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.key == apiKey {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g.key = apiKey
	g.client = client
	return client, nil
}
