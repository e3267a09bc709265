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

// Package query parses natural-language restaurant queries into structured
// entities and an intent classification. Parsing prefers an LLM pass and
// degrades to regex extraction when the model is unavailable.
package query

import "strings"

// Intent classifies what the user is asking for.
type Intent string

const (
	IntentRestaurantSpecific Intent = "restaurant_specific"
	IntentLocationCuisine    Intent = "location_cuisine"
	IntentLocationDish       Intent = "location_dish"
	IntentLocationGeneral    Intent = "location_general"
	IntentCuisineGeneral     Intent = "cuisine_general"
	IntentDishSearch         Intent = "dish_search"
	IntentMealPlanning       Intent = "meal_planning"
	IntentDietaryFocused     Intent = "dietary_focused"
	IntentAmbianceFocused    Intent = "ambiance_focused"
	IntentDeliveryTakeout    Intent = "delivery_takeout"
	IntentUnknown            Intent = "unknown"
)

// ParsedQuery holds the entities extracted from one user query. Empty strings
// and zero values mean "not present"; Confidence carries a per-field score
// plus an "overall" aggregate.
// Location status values set during resolution.
const (
	LocationStatusSupported   = "supported"
	LocationStatusUnknown     = "unknown"
	LocationStatusUnsupported = "unsupported"
)

type ParsedQuery struct {
	Location            string             `json:"location,omitempty"`
	Neighborhood        string             `json:"neighborhood,omitempty"`
	OriginalLocation    string             `json:"original_location,omitempty"`
	LocationStatus      string             `json:"location_status,omitempty"`
	RestaurantName      string             `json:"restaurant_name,omitempty"`
	CuisineType         string             `json:"cuisine_type,omitempty"`
	DishName            string             `json:"dish_name,omitempty"`
	MealType            string             `json:"meal_type,omitempty"`
	PriceRange          int                `json:"price_range,omitempty"`
	DietaryRestrictions []string           `json:"dietary_restrictions,omitempty"`
	Features            []string           `json:"features,omitempty"`
	TimePreference      string             `json:"time_preference,omitempty"`
	PartySize           int                `json:"party_size,omitempty"`
	Intent              Intent             `json:"intent"`
	Confidence          map[string]float64 `json:"confidence_scores"`
	OriginalQuery       string             `json:"original_query"`

	// Retrieval criteria, loosened by fallback tiers after parsing.
	MinRating    float64 `json:"-"`
	MinReviews   int     `json:"-"`
	FallbackTier int     `json:"-"`
}

// OverallConfidence returns the aggregate confidence, 0 when absent.
func (q *ParsedQuery) OverallConfidence() float64 {
	if q.Confidence == nil {
		return 0
	}
	return q.Confidence["overall"]
}

// IsValid reports whether the query carries enough signal to retrieve on:
// at least one anchor entity, and either a classified intent or a minimally
// confident parse.
func (q *ParsedQuery) IsValid() bool {
	hasAnchor := q.Location != "" || q.RestaurantName != "" || q.DishName != ""
	if !hasAnchor {
		return false
	}
	if q.Intent != IntentUnknown && q.Intent != "" {
		return true
	}
	return q.OverallConfidence() >= 0.3
}

// Clone returns a deep copy so fallback strategies can relax criteria
// without mutating the cached parse.
func (q *ParsedQuery) Clone() *ParsedQuery {
	out := *q
	if q.Confidence != nil {
		out.Confidence = make(map[string]float64, len(q.Confidence))
		for k, v := range q.Confidence {
			out.Confidence[k] = v
		}
	}
	if q.DietaryRestrictions != nil {
		out.DietaryRestrictions = append([]string(nil), q.DietaryRestrictions...)
	}
	if q.Features != nil {
		out.Features = append([]string(nil), q.Features...)
	}
	return &out
}

// HasQualityKeyword reports whether the original query asks for standout
// results ("best biryani", "famous pizza"). Retrieval uses this to prefer
// popularity-ranked sources.
func (q *ParsedQuery) HasQualityKeyword() bool {
	lower := strings.ToLower(q.OriginalQuery)
	for _, kw := range qualityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var qualityKeywords = []string{
	"best", "popular", "famous", "legendary",
	"top", "amazing", "outstanding", "excellent",
}

// newDefaultQuery is the parse of last resort: unknown intent, zero
// confidence, original text preserved.
func newDefaultQuery(raw string) *ParsedQuery {
	return &ParsedQuery{
		Intent:        IntentUnknown,
		Confidence:    map[string]float64{"overall": 0.0},
		OriginalQuery: raw,
	}
}
