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

// Package milvus provides an HTTP client for hosted Milvus/Zilliz vector
// collections using the v2 REST API.
package milvus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// Client communicates with a Milvus/Zilliz instance over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// SearchParams describes a filtered vector search against one collection
type SearchParams struct {
	Collection   string
	Vector       []float32
	Filter       string
	Limit        int
	OutputFields []string
}

// Hit is a single search result: the similarity score and the entity fields
type Hit struct {
	Score  float64
	Entity MapEntity
}

type apiResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

// NewClient creates a Milvus client for the given URI. The token is sent as a
// bearer credential on every request.
func NewClient(uri, token string, logger *zap.Logger) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("milvus URI is required")
	}

	client := &Client{
		baseURL: strings.TrimSuffix(uri, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}

	logger.Info("Milvus client initialized",
		zap.String("base_url", client.baseURL),
	)

	return client, nil
}

// Search performs a filtered vector similarity search
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Hit, error) {
	if params.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if len(params.Vector) == 0 {
		return nil, fmt.Errorf("search vector is required")
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}

	body := map[string]interface{}{
		"collectionName": params.Collection,
		"data":           [][]float32{params.Vector},
		"limit":          params.Limit,
		"outputFields":   params.OutputFields,
	}
	if params.Filter != "" {
		body["filter"] = params.Filter
	}

	c.logger.Debug("Searching collection",
		zap.String("collection", params.Collection),
		zap.String("filter", params.Filter),
		zap.Int("limit", params.Limit),
	)

	var resp apiResponse
	err := c.retryWithBackoff(ctx, func() error {
		return c.makeRequest(ctx, "/v2/vectordb/entities/search", body, &resp)
	}, "search "+params.Collection)
	if err != nil {
		return nil, fmt.Errorf("search failed for collection %s: %w", params.Collection, err)
	}

	hits := make([]Hit, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			c.logger.Warn("Skipping malformed search hit", zap.Error(err))
			continue
		}

		hit := Hit{Entity: MapEntity(fields)}
		if d, ok := fields["distance"].(float64); ok {
			hit.Score = d
			delete(fields, "distance")
		}
		hits = append(hits, hit)
	}

	c.logger.Debug("Search completed",
		zap.String("collection", params.Collection),
		zap.Int("hits", len(hits)),
	)

	return hits, nil
}

// Query performs a scalar (filter-only) query against one collection
func (c *Client) Query(ctx context.Context, collection, filter string, limit int, outputFields []string) ([]MapEntity, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if limit <= 0 {
		limit = 10
	}

	body := map[string]interface{}{
		"collectionName": collection,
		"filter":         filter,
		"limit":          limit,
		"outputFields":   outputFields,
	}

	var resp apiResponse
	err := c.retryWithBackoff(ctx, func() error {
		return c.makeRequest(ctx, "/v2/vectordb/entities/query", body, &resp)
	}, "query "+collection)
	if err != nil {
		return nil, fmt.Errorf("query failed for collection %s: %w", collection, err)
	}

	entities := make([]MapEntity, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			c.logger.Warn("Skipping malformed query row", zap.Error(err))
			continue
		}
		entities = append(entities, MapEntity(fields))
	}

	return entities, nil
}

// ListCollections returns the collection names visible to the client
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp apiResponse
	err := c.retryWithBackoff(ctx, func() error {
		return c.makeRequest(ctx, "/v2/vectordb/collections/list", map[string]interface{}{}, &resp)
	}, "list collections")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	names := make([]string, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// HasCollection reports whether the named collection exists
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	names, err := c.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// HealthCheck verifies connectivity by listing collections
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// retryableStatusError marks HTTP failures worth retrying
type retryableStatusError struct {
	statusCode int
	body       string
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.statusCode, e.body)
}

// retryWithBackoff retries the operation with exponential backoff on
// retryable errors
func (c *Client) retryWithBackoff(ctx context.Context, operation func() error, name string) error {
	var lastErr error
	delay := baseRetryDelay

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying milvus operation",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if _, ok := err.(*retryableStatusError); !ok {
			return err
		}
	}

	return fmt.Errorf("operation %s exhausted %d attempts: %w", name, maxRetries, lastErr)
}

// makeRequest posts the body to path and decodes the response into out
func (c *Client) makeRequest(ctx context.Context, path string, body interface{}, out *apiResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return &retryableStatusError{statusCode: resp.StatusCode, body: truncate(string(respBody), 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if out.Code != 0 {
		return fmt.Errorf("milvus error %d: %s", out.Code, out.Message)
	}

	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
