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

package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/sweetpick/internal/query"
)

type mockLLM struct {
	response string
	err      error
}

func (m *mockLLM) Complete(_ context.Context, _, _ string, _ float32, _ int) (string, error) {
	return m.response, m.err
}

func newTestValidator(t *testing.T, llm LLM) *Validator {
	t.Helper()
	return NewValidator(
		[]string{"Manhattan", "Jersey City", "Hoboken"},
		[]string{"Italian", "Indian", "Chinese", "American", "Mexican"},
		llm,
		zaptest.NewLogger(t),
	)
}

func TestValidatePasses(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location:    "Manhattan",
		CuisineType: "Mexican",
		Intent:      query.IntentLocationCuisine,
	}, "Mexican food in Times Square")

	assert.True(t, verdict.Valid)
	assert.Equal(t, ViolationNone, verdict.Violation)
}

func TestValidateUnsupportedLocation(t *testing.T) {
	v := newTestValidator(t, nil)

	// Parser clears unsupported cities but keeps the original string
	verdict := v.Validate(&query.ParsedQuery{
		CuisineType:      "Mexican",
		LocationStatus:   query.LocationStatusUnsupported,
		OriginalLocation: "Queens",
		Intent:           query.IntentLocationCuisine,
	}, "tacos in Queens")

	assert.False(t, verdict.Valid)
	assert.Equal(t, ViolationScope, verdict.Violation)
	assert.Equal(t, "Queens", verdict.UnsupportedLocation)
	assert.Empty(t, verdict.UnsupportedCuisine)
}

func TestValidateUnresolvedLocation(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location: "Springfield",
		Intent:   query.IntentLocationGeneral,
	}, "food in springfield")

	assert.False(t, verdict.Valid)
	assert.Equal(t, ViolationScope, verdict.Violation)
	assert.Equal(t, "Springfield", verdict.UnsupportedLocation)
}

func TestValidateCityInNeighborhoodFormat(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location: "Manhattan in Times Square",
		Intent:   query.IntentLocationGeneral,
	}, "food in times square")

	assert.True(t, verdict.Valid)
}

func TestValidateUnsupportedCuisine(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location:    "Manhattan",
		CuisineType: "Ethiopian",
		Intent:      query.IntentLocationCuisine,
	}, "ethiopian food in manhattan")

	assert.False(t, verdict.Valid)
	assert.Equal(t, ViolationScope, verdict.Violation)
	assert.Equal(t, "Ethiopian", verdict.UnsupportedCuisine)
}

func TestHellsKitchenDoesNotTriggerLanguageFilter(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location: "Manhattan",
		Intent:   query.IntentLocationGeneral,
	}, "best restaurants in Hell's Kitchen")

	assert.True(t, verdict.Valid)
}

func TestLanguageFilter(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{Location: "Manhattan"}, "this stupid app never works")

	assert.False(t, verdict.Valid)
	assert.Equal(t, ViolationLanguage, verdict.Violation)
	assert.Equal(t, "profanity", verdict.Category)
	assert.NotEmpty(t, verdict.Message)
}

func TestCulturalCombination(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location:    "Jersey City",
		CuisineType: "Indian",
		DishName:    "beef biryani",
		Intent:      query.IntentLocationDish,
	}, "beef biryani in jersey city")

	assert.False(t, verdict.Valid)
	assert.Equal(t, ViolationCultural, verdict.Violation)
	assert.Equal(t, "Indian", verdict.Cuisine)
	assert.Equal(t, "beef biryani", verdict.Dish)
}

func TestCulturalCombinationNotTriggeredWithoutDish(t *testing.T) {
	v := newTestValidator(t, nil)

	verdict := v.Validate(&query.ParsedQuery{
		Location:    "Jersey City",
		CuisineType: "Indian",
		Intent:      query.IntentLocationCuisine,
	}, "indian food in jersey city")

	assert.True(t, verdict.Valid)
}

func TestValidateIsDeterministic(t *testing.T) {
	v := newTestValidator(t, nil)
	parsed := &query.ParsedQuery{Location: "Hoboken", CuisineType: "Italian"}

	first := v.Validate(parsed, "italian in hoboken")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, v.Validate(parsed, "italian in hoboken"))
	}
}

func TestCulturalResponseUsesLLM(t *testing.T) {
	v := newTestValidator(t, &mockLLM{response: "Most Indian restaurants do not serve beef. Try chicken biryani instead."})

	msg := v.CulturalResponse(context.Background(), "Indian", "beef biryani", "beef biryani in jersey city")
	assert.Contains(t, msg, "chicken biryani")
}

func TestCulturalResponseFallback(t *testing.T) {
	v := newTestValidator(t, &mockLLM{err: errors.New("unavailable")})

	msg := v.CulturalResponse(context.Background(), "Indian", "beef biryani", "beef biryani in jersey city")
	assert.Contains(t, msg, "cultural traditions")

	msg = v.CulturalResponse(context.Background(), "Kosher", "cheeseburger", "kosher cheeseburger")
	assert.Contains(t, msg, "Kosher")
}
