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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCardsFromItemsJSON(t *testing.T) {
	text := `Here are some options.

{"items": [
  {"restaurant_name": "Razza", "dish": "Margherita", "reason": "Wood fired", "location": "Jersey City", "rating": 4.7},
  {"name": "Porta", "dish_name": "Neapolitan Pizza", "why": "Lively spot", "rating": 4.3},
  {"reason": "no name or dish, should be dropped"}
]}`

	cards := ExtractCards(text, "Jersey City")

	require.Len(t, cards, 2)
	assert.Equal(t, "Razza", cards[0].RestaurantName)
	assert.Equal(t, "Margherita", cards[0].DishName)
	assert.Equal(t, 4.7, cards[0].Rating)

	// Alternate field names and the location hint fill in gaps
	assert.Equal(t, "Porta", cards[1].RestaurantName)
	assert.Equal(t, "Neapolitan Pizza", cards[1].DishName)
	assert.Equal(t, "Lively spot", cards[1].Reason)
	assert.Equal(t, "Jersey City", cards[1].Location)

	for _, card := range cards {
		assert.Equal(t, "web_search", card.Type)
		assert.Equal(t, 0.5, card.Confidence)
	}
}

func TestExtractCardsFromBareArray(t *testing.T) {
	text := `[{"restaurant_name": "Lilia", "dish": "Mafaldini", "rating": 4.6}]`

	cards := ExtractCards(text, "")
	require.Len(t, cards, 1)
	assert.Equal(t, "Lilia", cards[0].RestaurantName)
}

func TestExtractCardsCapped(t *testing.T) {
	text := `{"items": [
		{"restaurant_name": "A"}, {"restaurant_name": "B"}, {"restaurant_name": "C"},
		{"restaurant_name": "D"}, {"restaurant_name": "E"}, {"restaurant_name": "F"},
		{"restaurant_name": "G"}
	]}`

	assert.Len(t, ExtractCards(text, ""), maxCards)
}

func TestExtractCardsFromNumberedList(t *testing.T) {
	text := `Here are my picks:

1. **Joe's Pizza** - A Greenwich Village institution.
2. **John's of Bleecker** - Coal-fired classic pies.
3. **Prince Street Pizza** - Famous square slices.
4. **L'industrie** - Should be dropped, only three are kept.`

	cards := ExtractCards(text, "Manhattan")

	require.Len(t, cards, 3)
	assert.Equal(t, "Joe's Pizza", cards[0].RestaurantName)
	assert.Equal(t, "A Greenwich Village institution.", cards[0].Reason)
	assert.Equal(t, "Manhattan", cards[0].Location)
	assert.Equal(t, "web_search", cards[0].Type)
}

func TestExtractCardsNoStructure(t *testing.T) {
	assert.Empty(t, ExtractCards("Sorry, nothing comes to mind.", ""))
}

func TestCleanNaturalResponse(t *testing.T) {
	text := "Great options below.\n\nTry these spots.\n{\"items\": []}"

	cleaned := CleanNaturalResponse(text)
	assert.Equal(t, "Great options below.\nTry these spots.", cleaned)
}

func TestCleanNaturalResponseNoJSON(t *testing.T) {
	assert.Equal(t, "Just prose.", CleanNaturalResponse("Just prose.\n"))
}
