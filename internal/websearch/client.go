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

package websearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/cache"
)

// DefaultCacheTTL bounds how long generated web-search responses are reused.
const DefaultCacheTTL = 6 * time.Hour

// LLM is the completion surface used to generate responses.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Response pairs the natural-language answer with the structured cards
// extracted from it.
type Response struct {
	NaturalResponse string `json:"natural_response"`
	Cards           []Card `json:"cards"`
}

// Client generates web-search style responses via the LLM and caches them by
// (query, location, cuisine).
type Client struct {
	llm    LLM
	cache  *cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient creates a web-search client. store may be nil to disable caching.
func NewClient(llm LLM, store *cache.Store, logger *zap.Logger) *Client {
	return &Client{
		llm:    llm,
		cache:  store,
		ttl:    DefaultCacheTTL,
		logger: logger,
	}
}

const outOfScopeSystemPrompt = "You are a restaurant recommendation expert. When asked about locations or cuisines outside your specialized database, provide recommendations for the specific location/cuisine requested. NEVER suggest alternative cities. Focus on the user's actual request. Do not mention traveling to other cities."

const jsonBlockInstructions = `

After your natural language response, include a JSON block on a new line with this exact format:
{
  "items": [
    {"restaurant_name": "string", "dish": "string or null", "reason": "string", "location": "string", "rating": "number or null"}
  ]
}

IMPORTANT: Do NOT use markdown code blocks. Just include the raw JSON after your natural language response.
Keep the natural language response and JSON block completely separate.
`

// ForOutOfScope answers a query whose location or cuisine falls outside the
// supported whitelists. The response stays pinned to what was asked and
// never suggests a different city or cuisine.
func (c *Client) ForOutOfScope(ctx context.Context, originalQuery, unsupportedLocation, unsupportedCuisine string) *Response {
	key := cacheKey(originalQuery, unsupportedLocation, unsupportedCuisine)
	if cached := c.lookup(key); cached != nil {
		return cached
	}

	var prompt string
	var locationHint string
	switch {
	case unsupportedLocation != "":
		locationHint = unsupportedLocation
		prompt = fmt.Sprintf(`IMPORTANT: The user asked about restaurants in %s.

DO NOT suggest alternative cities.
DO NOT mention traveling to other cities.
DO NOT say "just a short drive away" or similar phrases.

Instead, provide helpful recommendations FOR %s specifically.

Response format:
1. Start with: "I don't have deep local insights for %s, but based on my knowledge, here are some great options:"
2. List 2-3 actual restaurants IN %s for: %q
3. Include restaurant names, specific dishes, and why they're good
4. Focus on %s only - do not suggest other cities

Be helpful about %s specifically.`,
			unsupportedLocation, unsupportedLocation, unsupportedLocation,
			unsupportedLocation, originalQuery, unsupportedLocation, unsupportedLocation)
	case unsupportedCuisine != "":
		prompt = fmt.Sprintf(`IMPORTANT: The user asked about %s cuisine.

DO NOT suggest other cuisines as alternatives.
DO NOT mention alternative cities.

Instead, provide helpful recommendations FOR %s cuisine specifically.

Response format:
1. Start with: "I don't have specialized analysis for %s cuisine, but from my knowledge, here are some excellent options:"
2. List 2-3 restaurants that serve %s cuisine for: %q
3. Include restaurant names, specific dishes, and why they're recommended
4. Focus on %s cuisine only

Be helpful about %s specifically.`,
			unsupportedCuisine, unsupportedCuisine, unsupportedCuisine,
			unsupportedCuisine, originalQuery, unsupportedCuisine, unsupportedCuisine)
	default:
		return &Response{
			NaturalResponse: "I'm not sure how to help with that request. Could you try asking about restaurants in Manhattan?",
		}
	}
	prompt += jsonBlockInstructions

	resp := c.generate(ctx, outOfScopeSystemPrompt, prompt, 300, locationHint)
	c.remember(key, resp)
	return resp
}

// ForDish answers a dish-specific craving from general knowledge.
func (c *Client) ForDish(ctx context.Context, originalQuery, locationHint string) *Response {
	key := cacheKey(originalQuery, locationHint, "")
	if cached := c.lookup(key); cached != nil {
		return cached
	}

	hint := locationHint
	if hint == "" {
		hint = "Various locations"
	}
	prompt := fmt.Sprintf(`User is looking for: %q

This is a dish-specific query. Please provide restaurant recommendations that match their request.

Provide 3-5 restaurant suggestions in this JSON format:
{
  "items": [
    {
      "restaurant_name": "Restaurant Name",
      "dish": "Specific Dish Name",
      "reason": "Brief description why it's good",
      "location": %q,
      "rating": 4.5
    }
  ]
}

Focus on the specific dish mentioned in the query. Be helpful and provide realistic recommendations.`, originalQuery, hint)

	resp := c.generate(ctx, "", prompt, 500, locationHint)
	c.remember(key, resp)
	return resp
}

func (c *Client) generate(ctx context.Context, system, prompt string, maxTokens int, locationHint string) *Response {
	if c.llm == nil {
		return fallbackResponse()
	}

	content, err := c.llm.Complete(ctx, system, prompt, 0.7, maxTokens)
	if err != nil || strings.TrimSpace(content) == "" {
		c.logger.Warn("Web-search response generation failed", zap.Error(err))
		return fallbackResponse()
	}

	return &Response{
		NaturalResponse: CleanNaturalResponse(content),
		Cards:           ExtractCards(content, locationHint),
	}
}

func fallbackResponse() *Response {
	return &Response{
		NaturalResponse: "I don't have specialized data for that area, but here are some recommendations based on my general knowledge.",
	}
}

func cacheKey(query, location, cuisine string) string {
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(strings.TrimSpace(query)), location, cuisine)
}

func (c *Client) lookup(key string) *Response {
	if c.cache == nil {
		return nil
	}
	if v, ok := c.cache.Get(key); ok {
		if resp, ok := v.(*Response); ok {
			c.logger.Debug("Web-search cache hit", zap.String("key", key))
			return resp
		}
	}
	return nil
}

func (c *Client) remember(key string, resp *Response) {
	if c.cache != nil {
		c.cache.Set(key, resp, c.ttl)
	}
}
