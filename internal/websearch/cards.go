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
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/your-org/sweetpick/internal/llmjson"
)

const maxCards = 6

// Card is one structured recommendation extracted from a web-search style
// response.
type Card struct {
	RestaurantName string  `json:"restaurant_name"`
	DishName       string  `json:"dish_name,omitempty"`
	Reason         string  `json:"reason,omitempty"`
	Location       string  `json:"location,omitempty"`
	CuisineType    string  `json:"cuisine_type,omitempty"`
	Rating         float64 `json:"rating"`
	Type           string  `json:"type"`
	Confidence     float64 `json:"confidence"`
}

// wireCard tolerates the field-name variants the model produces.
type wireCard struct {
	RestaurantName string   `json:"restaurant_name"`
	Name           string   `json:"name"`
	Dish           string   `json:"dish"`
	DishName       string   `json:"dish_name"`
	Reason         string   `json:"reason"`
	Why            string   `json:"why"`
	Location       string   `json:"location"`
	Cuisine        string   `json:"cuisine"`
	Rating         *float64 `json:"rating"`
}

// ExtractCards pulls structured cards out of a model response: first from an
// embedded {"items": [...]} JSON block, then by parsing numbered or bulleted
// list lines when no JSON is present.
func ExtractCards(text, locationHint string) []Card {
	if items := extractItemsJSON(text); len(items) > 0 {
		return normalizeCards(items, locationHint)
	}
	return cardsFromListLines(text, locationHint)
}

func extractItemsJSON(text string) []wireCard {
	block, err := llmjson.Locate(text)
	if err != nil {
		return nil
	}

	var wrapper struct {
		Items []wireCard `json:"items"`
	}
	if err := json.Unmarshal([]byte(block), &wrapper); err == nil && len(wrapper.Items) > 0 {
		return wrapper.Items
	}

	var bare []wireCard
	if err := json.Unmarshal([]byte(block), &bare); err == nil {
		return bare
	}
	return nil
}

func normalizeCards(items []wireCard, locationHint string) []Card {
	cards := make([]Card, 0, len(items))
	for _, it := range items {
		if len(cards) == maxCards {
			break
		}

		card := Card{
			RestaurantName: firstNonEmpty(it.RestaurantName, it.Name),
			DishName:       firstNonEmpty(it.Dish, it.DishName),
			Reason:         firstNonEmpty(it.Reason, it.Why),
			Location:       firstNonEmpty(it.Location, locationHint),
			CuisineType:    it.Cuisine,
			Type:           "web_search",
			Confidence:     0.5,
		}
		if it.Rating != nil {
			card.Rating = *it.Rating
		}

		if card.RestaurantName == "" && card.DishName == "" {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

var boldNameRe = regexp.MustCompile(`\*\*`)

// cardsFromListLines salvages up to 3 cards from numbered or bulleted lines
// when the model skipped the JSON block.
func cardsFromListLines(text, locationHint string) []Card {
	var rows []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(ln), "- "))
		if ln == "" {
			continue
		}
		if startsWithDigit(ln) || strings.HasPrefix(ln, "*") || strings.Contains(ln, " - ") || strings.Contains(ln, "**") {
			rows = append(rows, ln)
		}
	}

	var cards []Card
	for _, ln := range rows {
		if len(cards) == 3 {
			break
		}

		var name, reason string
		switch {
		case startsWithDigit(ln) && strings.Contains(ln, " - "):
			// "1. **Restaurant Name** - Description"
			parts := strings.SplitN(ln, " - ", 2)
			namePart := parts[0]
			if idx := strings.Index(namePart, "."); idx >= 0 {
				namePart = namePart[idx+1:]
			}
			name = strings.TrimSpace(boldNameRe.ReplaceAllString(namePart, ""))
			reason = strings.TrimSpace(parts[1])
		case strings.Contains(ln, ":"):
			parts := strings.SplitN(ln, ":", 2)
			name = strings.Trim(parts[0], " -*#")
			reason = strings.TrimSpace(parts[1])
		default:
			name = strings.Trim(ln, " -*#")
		}

		if name == "" {
			continue
		}
		cards = append(cards, Card{
			RestaurantName: name,
			Reason:         reason,
			Location:       locationHint,
			Type:           "web_search",
			Confidence:     0.5,
		})
	}
	return cards
}

// CleanNaturalResponse strips the trailing JSON block so only the prose is
// shown to the user.
func CleanNaturalResponse(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "{") {
			break
		}
		kept = append(kept, line)
	}

	cleaned := strings.Join(kept, "\n")
	cleaned = regexp.MustCompile(`\n\s*\n`).ReplaceAllString(cleaned, "\n")
	return strings.TrimSpace(cleaned)
}

func startsWithDigit(s string) bool {
	return s != "" && unicode.IsDigit(rune(s[0]))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
