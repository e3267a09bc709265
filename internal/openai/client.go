// Copyright 2025 SweetPick Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// MaxRetries defines the maximum number of retry attempts
	MaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
	// EmbeddingCostPer1KTokens defines the cost per 1K tokens for embeddings (in USD)
	EmbeddingCostPer1KTokens = 0.00002
)

// Client wraps the go-openai client with retry logic and usage tracking
type Client struct {
	client         *openai.Client
	logger         *zap.Logger
	chatModel      string
	embeddingModel string
	dimensions     int
}

// Options configures a Client beyond the API key
type Options struct {
	ChatModel          string
	EmbeddingModel     string
	EmbeddingDimension int
}

// EmbeddingUsage tracks embedding API usage and costs
type EmbeddingUsage struct {
	TokensUsed     int
	RequestCount   int
	EstimatedCost  float64
	ProcessingTime time.Duration
}

// EmbeddingResponse represents the response from embedding operations
type EmbeddingResponse struct {
	Embeddings [][]float32
	Usage      EmbeddingUsage
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string, opts Options, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	// Validate API key format (basic check)
	if !strings.HasPrefix(apiKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}

	if opts.ChatModel == "" {
		opts.ChatModel = openai.GPT4oMini
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if opts.EmbeddingDimension <= 0 {
		opts.EmbeddingDimension = 1536
	}

	client := &Client{
		client:         openai.NewClient(apiKey),
		logger:         logger,
		chatModel:      opts.ChatModel,
		embeddingModel: opts.EmbeddingModel,
		dimensions:     opts.EmbeddingDimension,
	}

	client.logger.Info("OpenAI client initialized",
		zap.String("chat_model", opts.ChatModel),
		zap.String("embedding_model", opts.EmbeddingModel),
		zap.Int("embedding_dimensions", opts.EmbeddingDimension),
		zap.Int("max_retries", MaxRetries),
	)

	return client, nil
}

// Dimensions returns the configured embedding dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Ping verifies API connectivity with a minimal embedding request. Used by
// health checks rather than at construction so the service can start while
// the API is briefly unavailable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.EmbedQuery(ctx, "ping"); err != nil {
		return fmt.Errorf("openai ping failed: %w", err)
	}
	return nil
}

// EmbedTexts generates embeddings for multiple texts in one batch request
func (c *Client) EmbedTexts(ctx context.Context, texts []string) (*EmbeddingResponse, error) {
	if len(texts) == 0 {
		return &EmbeddingResponse{
			Embeddings: [][]float32{},
			Usage:      EmbeddingUsage{},
		}, nil
	}

	c.logger.Debug("Starting batch embedding generation",
		zap.Int("text_count", len(texts)),
		zap.String("model", c.embeddingModel),
	)

	start := time.Now()

	embeddings, usage, err := c.createEmbeddingsWithRetry(ctx, texts)
	if err != nil {
		c.logger.Error("Failed to create embeddings",
			zap.Error(err),
			zap.Int("text_count", len(texts)),
		)
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if err := c.validateEmbeddingDimensions(embeddings); err != nil {
		c.logger.Error("Invalid embedding dimensions",
			zap.Error(err),
			zap.Int("expected_dimensions", c.dimensions),
		)
		return nil, fmt.Errorf("embedding validation failed: %w", err)
	}

	processingTime := time.Since(start)
	estimatedCost := float64(usage.PromptTokens) / 1000.0 * EmbeddingCostPer1KTokens

	c.logger.Debug("Batch embedding generation completed",
		zap.Int("text_count", len(texts)),
		zap.Int("tokens_used", usage.PromptTokens),
		zap.Float64("estimated_cost_usd", estimatedCost),
		zap.Duration("processing_time", processingTime),
	)

	return &EmbeddingResponse{
		Embeddings: embeddings,
		Usage: EmbeddingUsage{
			TokensUsed:     usage.PromptTokens,
			RequestCount:   1,
			EstimatedCost:  estimatedCost,
			ProcessingTime: processingTime,
		},
	}, nil
}

// EmbedQuery generates an embedding for a single query text
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	response, err := c.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned for query")
	}

	return response.Embeddings[0], nil
}

// createEmbeddingsWithRetry creates embeddings with exponential backoff retry logic
func (c *Client) createEmbeddingsWithRetry(ctx context.Context, texts []string) ([][]float32, openai.Usage, error) {
	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", MaxRetries),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, openai.Usage{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		embeddings, usage, err := c.createEmbeddings(ctx, texts)
		if err != nil {
			lastErr = err

			if retryErr, ok := err.(*RetryableError); ok {
				if retryErr.RetryAfter > 0 {
					delay = retryErr.RetryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}

				c.logger.Warn("Retryable error encountered",
					zap.Error(err),
					zap.Int("status_code", retryErr.StatusCode),
					zap.Duration("next_retry_delay", delay),
				)
				continue
			}

			c.logger.Error("Non-retryable error encountered",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			return nil, openai.Usage{}, err
		}

		if attempt > 0 {
			c.logger.Info("Embedding request succeeded after retry",
				zap.Int("attempt", attempt+1),
				zap.Int("tokens_used", usage.PromptTokens),
			)
		}

		return embeddings, usage, nil
	}

	c.logger.Error("All retry attempts exhausted",
		zap.Int("max_retries", MaxRetries),
		zap.Error(lastErr),
	)

	return nil, openai.Usage{}, fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// createEmbeddings creates embeddings using the OpenAI API
func (c *Client) createEmbeddings(ctx context.Context, texts []string) ([][]float32, openai.Usage, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, openai.Usage{}, c.handleAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, openai.Usage{}, fmt.Errorf("unexpected response: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, embedding := range resp.Data {
		embeddings[i] = embedding.Embedding
	}

	return embeddings, resp.Usage, nil
}

// handleAPIError handles OpenAI API errors and determines if they are retryable
func (c *Client) handleAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			// Rate limit error - retryable
			retryAfter := BaseRetryDelay
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				RetryAfter: retryAfter,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Server error - retryable
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				RetryAfter: 0, // Use exponential backoff
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}

// validateEmbeddingDimensions validates that embeddings have the expected dimensions
func (c *Client) validateEmbeddingDimensions(embeddings [][]float32) error {
	for i, embedding := range embeddings {
		if len(embedding) != c.dimensions {
			return fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(embedding), c.dimensions)
		}
	}
	return nil
}

// truncateText truncates text to a maximum length for logging
func truncateText(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength] + "..."
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Messages    []openai.ChatCompletionMessage
	MaxTokens   int
	Temperature float32
	Model       string
}

// ChatCompletionResponse represents the response from a chat completion
type ChatCompletionResponse struct {
	Content      string
	FinishReason string
	Usage        openai.Usage
}

// CreateChatCompletion creates a chat completion with retry logic
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.chatModel
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	c.logger.Debug("Creating chat completion",
		zap.String("model", req.Model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Float64("temperature", float64(req.Temperature)),
		zap.Int("message_count", len(req.Messages)),
	)

	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, openaiReq)
		if err != nil {
			lastErr = c.handleAPIError(err)

			if retryErr, ok := lastErr.(*RetryableError); ok {
				if retryErr.RetryAfter > 0 {
					delay = retryErr.RetryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}
				continue
			}

			return nil, lastErr
		}

		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("no choices returned from OpenAI")
		}

		c.logger.Debug("Chat completion successful",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
		)

		return &ChatCompletionResponse{
			Content:      resp.Choices[0].Message.Content,
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage:        resp.Usage,
		}, nil
	}

	return nil, fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// Complete is a convenience wrapper for single system+user prompt exchanges.
// It returns the assistant message content.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	c.logger.Debug("Completing prompt",
		zap.String("user_preview", truncateText(user, 100)),
	)

	resp, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	return resp.Content, nil
}
