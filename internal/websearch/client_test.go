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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/sweetpick/internal/cache"
)

type mockLLM struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (m *mockLLM) Complete(_ context.Context, _, user string, _ float32, _ int) (string, error) {
	m.calls++
	m.lastUser = user
	return m.response, m.err
}

const sampleResponse = `I don't have deep local insights for Queens, but based on my knowledge, here are some great options:

1. **Birria-Landia** - Famous taco truck with incredible birria tacos.
2. **Tacos Al Suadero** - Authentic street-style tacos.

{"items": [
  {"restaurant_name": "Birria-Landia", "dish": "Birria Tacos", "reason": "Famous taco truck", "location": "Queens", "rating": 4.7},
  {"restaurant_name": "Tacos Al Suadero", "dish": "Suadero Taco", "reason": "Authentic street style", "location": "Queens", "rating": 4.5}
]}`

func TestForOutOfScopeLocation(t *testing.T) {
	llm := &mockLLM{response: sampleResponse}
	c := NewClient(llm, nil, zaptest.NewLogger(t))

	resp := c.ForOutOfScope(context.Background(), "tacos in Queens", "Queens", "")

	require.Len(t, resp.Cards, 2)
	assert.Equal(t, "Birria-Landia", resp.Cards[0].RestaurantName)
	assert.Equal(t, "Birria Tacos", resp.Cards[0].DishName)
	assert.Equal(t, "web_search", resp.Cards[0].Type)
	assert.Equal(t, 0.5, resp.Cards[0].Confidence)

	assert.Contains(t, resp.NaturalResponse, "Queens")
	assert.NotContains(t, resp.NaturalResponse, `"items"`)

	// Prompt stays pinned to the requested city
	assert.Contains(t, llm.lastUser, "Queens")
	assert.Contains(t, llm.lastUser, "DO NOT suggest alternative cities")
}

func TestForOutOfScopeCuisine(t *testing.T) {
	llm := &mockLLM{response: "I don't have specialized analysis for Ethiopian cuisine, but from my knowledge, here are some excellent options:"}
	c := NewClient(llm, nil, zaptest.NewLogger(t))

	resp := c.ForOutOfScope(context.Background(), "ethiopian food", "", "Ethiopian")

	assert.Contains(t, resp.NaturalResponse, "Ethiopian")
	assert.Contains(t, llm.lastUser, "Ethiopian cuisine")
}

func TestForOutOfScopeNothingRequested(t *testing.T) {
	c := NewClient(&mockLLM{}, nil, zaptest.NewLogger(t))

	resp := c.ForOutOfScope(context.Background(), "???", "", "")
	assert.Contains(t, resp.NaturalResponse, "Manhattan")
	assert.Empty(t, resp.Cards)
}

func TestForOutOfScopeLLMFailure(t *testing.T) {
	llm := &mockLLM{err: errors.New("timeout")}
	c := NewClient(llm, nil, zaptest.NewLogger(t))

	resp := c.ForOutOfScope(context.Background(), "tacos in Queens", "Queens", "")
	assert.NotEmpty(t, resp.NaturalResponse)
	assert.Empty(t, resp.Cards)
}

func TestForDish(t *testing.T) {
	llm := &mockLLM{response: `{"items": [{"restaurant_name": "Biryani House", "dish": "Hyderabadi Biryani", "reason": "Slow cooked", "location": "Jersey City", "rating": 4.6}]}`}
	c := NewClient(llm, nil, zaptest.NewLogger(t))

	resp := c.ForDish(context.Background(), "best biryani in jersey city", "Jersey City")

	require.Len(t, resp.Cards, 1)
	assert.Equal(t, "Biryani House", resp.Cards[0].RestaurantName)
	assert.Contains(t, llm.lastUser, "dish-specific")
}

func TestResponseCaching(t *testing.T) {
	llm := &mockLLM{response: sampleResponse}
	c := NewClient(llm, cache.New("web_search", 10), zaptest.NewLogger(t))

	first := c.ForOutOfScope(context.Background(), "tacos in Queens", "Queens", "")
	second := c.ForOutOfScope(context.Background(), "Tacos in Queens", "Queens", "")

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, first.NaturalResponse, second.NaturalResponse)

	// A different location is a different cache entry
	c.ForOutOfScope(context.Background(), "tacos in Queens", "Bronx", "")
	assert.Equal(t, 2, llm.calls)
}
