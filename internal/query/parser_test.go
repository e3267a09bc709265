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

package query

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
}

func (m *mockLLM) Complete(_ context.Context, _, _ string, _ float32, _ int) (string, error) {
	m.calls++
	return m.response, m.err
}

func TestParseWithLLM(t *testing.T) {
	llm := &mockLLM{response: `{
		"location": "Times Square",
		"restaurant_name": null,
		"cuisine_type": "Italian",
		"dish_name": "Margherita Pizza",
		"meal_type": "dinner",
		"price_range": 2,
		"dietary_restrictions": [],
		"restaurant_features": [],
		"time_preference": "tonight",
		"party_size": 2,
		"intent": "location_dish",
		"confidence": {
			"location": 0.95,
			"cuisine_type": 0.8,
			"dish_name": 0.9,
			"overall": 0.88
		}
	}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "I am at Times Square and want a margherita pizza tonight")

	assert.Equal(t, IntentLocationDish, parsed.Intent)
	assert.Equal(t, "Manhattan", parsed.Location)
	assert.Equal(t, "times square", parsed.Neighborhood)
	assert.Equal(t, LocationStatusSupported, parsed.LocationStatus)
	assert.Equal(t, "Times Square", parsed.OriginalLocation)
	assert.Equal(t, "Italian", parsed.CuisineType)
	assert.Equal(t, "Margherita Pizza", parsed.DishName)
	assert.Equal(t, 2, parsed.PriceRange)
	assert.Equal(t, 2, parsed.PartySize)
	// Resolver overrides the model's location confidence with the table value
	assert.Equal(t, 1.0, parsed.Confidence["location"])
	assert.True(t, parsed.IsValid())
}

func TestParseWithLLMFencedResponse(t *testing.T) {
	llm := &mockLLM{response: "```json\n{\"location\": \"hoboken\", \"intent\": \"location_general\", \"confidence\": {\"location\": 0.9, \"overall\": 0.9}}\n```"}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "what should I eat in hoboken")

	assert.Equal(t, "Hoboken", parsed.Location)
	assert.Equal(t, IntentLocationGeneral, parsed.Intent)
}

func TestParseDropsUnsupportedCuisine(t *testing.T) {
	llm := &mockLLM{response: `{"location": "manhattan", "cuisine_type": "Thai", "intent": "location_cuisine", "confidence": {"overall": 0.8}}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "thai food in manhattan")

	assert.Empty(t, parsed.CuisineType)
	assert.Equal(t, "Manhattan", parsed.Location)
}

func TestParseClampsPriceRange(t *testing.T) {
	llm := &mockLLM{response: `{"location": "manhattan", "price_range": 9, "intent": "location_general", "confidence": {"overall": 0.7}}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "super expensive dinner in manhattan")

	assert.Equal(t, 0, parsed.PriceRange)
}

func TestParseUnsupportedLocationCleared(t *testing.T) {
	llm := &mockLLM{response: `{"location": "Brooklyn", "cuisine_type": "Italian", "intent": "location_cuisine", "confidence": {"overall": 0.85}}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "italian food in brooklyn")

	assert.Empty(t, parsed.Location)
	assert.Equal(t, LocationStatusUnsupported, parsed.LocationStatus)
	assert.Equal(t, "Brooklyn", parsed.OriginalLocation)
}

func TestParseFallsBackToRegexOnLLMError(t *testing.T) {
	llm := &mockLLM{err: errors.New("rate limited")}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "best biryani in jersey city")

	assert.Equal(t, IntentLocationDish, parsed.Intent)
	assert.Equal(t, "Jersey City", parsed.Location)
	assert.Equal(t, "biryani", parsed.DishName)
}

func TestParseFallsBackToRegexOnMalformedJSON(t *testing.T) {
	llm := &mockLLM{response: "I could not parse that query, sorry."}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "best biryani in jersey city")

	assert.Equal(t, IntentLocationDish, parsed.Intent)
	assert.Equal(t, "biryani", parsed.DishName)
}

func TestParseWithoutLLMUsesRegex(t *testing.T) {
	p := NewParser(nil, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "best biryani in jersey city")

	assert.Equal(t, IntentLocationDish, parsed.Intent)
	assert.Equal(t, "Jersey City", parsed.Location)
}

func TestParseEmptyQuery(t *testing.T) {
	p := NewParser(nil, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "")

	assert.Equal(t, IntentUnknown, parsed.Intent)
	assert.Equal(t, 0.0, parsed.OverallConfidence())
	assert.False(t, parsed.IsValid())
}

func TestParseCachesResults(t *testing.T) {
	llm := &mockLLM{response: `{"location": "hoboken", "intent": "location_general", "confidence": {"overall": 0.9}}`}
	store := cache.New("parsed_query", 10)

	p := NewParser(llm, store, ParserOptions{}, zaptest.NewLogger(t))

	first := p.Parse(context.Background(), "food in hoboken")
	second := p.Parse(context.Background(), "Food in Hoboken") // key is case-insensitive

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, first.Location, second.Location)

	// Cached copies are independent
	second.Location = "mutated"
	third := p.Parse(context.Background(), "food in hoboken")
	assert.Equal(t, "Hoboken", third.Location)
}

func TestParseIdempotent(t *testing.T) {
	p := NewParser(nil, cache.New("parsed_query", 10), ParserOptions{}, zaptest.NewLogger(t))

	first := p.Parse(context.Background(), "best biryani in jersey city")
	second := p.Parse(context.Background(), "best biryani in jersey city")
	require.Equal(t, first, second)
}

func TestConfidenceBounds(t *testing.T) {
	llm := &mockLLM{response: `{"location": "manhattan", "intent": "location_general", "confidence": {"overall": 3.7}}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "food in manhattan")

	assert.Equal(t, 0.5, parsed.OverallConfidence())
}

func TestOverallComputedFromFieldScores(t *testing.T) {
	llm := &mockLLM{response: `{"location": "manhattan", "intent": "location_general", "confidence": {"location": 0.6, "cuisine_type": 0.8}}`}

	p := NewParser(llm, nil, ParserOptions{}, zaptest.NewLogger(t))
	parsed := p.Parse(context.Background(), "food in manhattan")

	assert.InDelta(t, 0.7, parsed.OverallConfidence(), 1e-9)
}

func TestClassifyQueryType(t *testing.T) {
	tests := []struct {
		name string
		q    *ParsedQuery
		want Intent
	}{
		{"explicit intent wins", &ParsedQuery{Intent: IntentDishSearch, RestaurantName: "Razza"}, IntentDishSearch},
		{"restaurant name", &ParsedQuery{Intent: IntentUnknown, RestaurantName: "Razza"}, IntentRestaurantSpecific},
		{"dietary", &ParsedQuery{Intent: IntentUnknown, DietaryRestrictions: []string{"vegan"}}, IntentDietaryFocused},
		{"delivery feature", &ParsedQuery{Intent: IntentUnknown, Features: []string{"delivery"}}, IntentDeliveryTakeout},
		{"location and cuisine", &ParsedQuery{Intent: IntentUnknown, Location: "Hoboken", CuisineType: "Italian"}, IntentLocationCuisine},
		{"location and dish", &ParsedQuery{Intent: IntentUnknown, Location: "Hoboken", DishName: "pizza"}, IntentLocationDish},
		{"location and meal", &ParsedQuery{Intent: IntentUnknown, Location: "Hoboken", MealType: "brunch"}, IntentMealPlanning},
		{"location only", &ParsedQuery{Intent: IntentUnknown, Location: "Hoboken"}, IntentLocationGeneral},
		{"cuisine only", &ParsedQuery{Intent: IntentUnknown, CuisineType: "Indian"}, IntentCuisineGeneral},
		{"dish only", &ParsedQuery{Intent: IntentUnknown, DishName: "biryani"}, IntentDishSearch},
		{"nothing", &ParsedQuery{Intent: IntentUnknown}, IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyQueryType(tt.q))
		})
	}
}

func TestIsValid(t *testing.T) {
	valid := &ParsedQuery{Location: "Hoboken", Intent: IntentLocationGeneral}
	assert.True(t, valid.IsValid())

	lowConfidence := &ParsedQuery{Location: "Hoboken", Intent: IntentUnknown, Confidence: map[string]float64{"overall": 0.2}}
	assert.False(t, lowConfidence.IsValid())

	okConfidence := &ParsedQuery{Location: "Hoboken", Intent: IntentUnknown, Confidence: map[string]float64{"overall": 0.4}}
	assert.True(t, okConfidence.IsValid())

	noAnchor := &ParsedQuery{CuisineType: "Indian", Intent: IntentCuisineGeneral}
	assert.False(t, noAnchor.IsValid())
}

func TestClone(t *testing.T) {
	q := &ParsedQuery{
		Location:            "Hoboken",
		DietaryRestrictions: []string{"vegan"},
		Confidence:          map[string]float64{"overall": 0.8},
	}

	clone := q.Clone()
	clone.Location = "Manhattan"
	clone.DietaryRestrictions[0] = "halal"
	clone.Confidence["overall"] = 0.1

	assert.Equal(t, "Hoboken", q.Location)
	assert.Equal(t, "vegan", q.DietaryRestrictions[0])
	assert.Equal(t, 0.8, q.Confidence["overall"])
}
