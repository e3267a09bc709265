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
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/llmjson"
)

const systemPrompt = `You are an expert query parser for a comprehensive restaurant recommendation system. Your role is to accurately extract structured information from natural language restaurant queries while maintaining high precision and appropriate confidence scoring.

## Core Instructions
1. **Accuracy over confidence** - Only assign high confidence when you're genuinely certain
2. **Handle ambiguity gracefully** - Use null values when information isn't clearly present
3. **Be comprehensive** - Consider all possible entity types that might be relevant
4. **Context awareness** - Use contextual clues to disambiguate (e.g., "curry" suggests Indian cuisine)

## Entity Extraction Guidelines

### Location
- Extract cities, neighborhoods, addresses, or landmarks
- Include both explicit ("in downtown") and implicit location references
- **Supported areas**:
  - Manhattan and its neighborhoods (Times Square, SoHo, Chelsea, etc.)
  - Jersey City and its neighborhoods (Journal Square, Downtown JC, etc.)
  - Hoboken and its neighborhoods (Washington Street, etc.)
- **Note**: Extract ALL mentioned locations - the system will handle unsupported areas gracefully

### Restaurant Name
- Only extract if a specific restaurant is mentioned by name
- Don't confuse chain names with cuisine types

### Cuisine Type
**Supported cuisines**: Italian, Indian, Chinese, American, Mexican
**Note**: Extract these 5 supported cuisines when mentioned. If user mentions other cuisines, set cuisine_type to null.
**Important**: Always extract cuisine type when clearly mentioned, even if location is missing.
**Mapping rules**:
- "Tacos" -> Mexican
- "Pasta" -> Italian
- "Curry" -> Indian (unless context suggests otherwise)
- "Dim sum" -> Chinese

### Dish Name
- Extract specific dish names, not general categories
- Include modifiers if mentioned

### Meal Type
**Options**: breakfast, lunch, dinner, brunch, late-night, snacks, drinks/happy hour
- Consider time-based context clues

### Price Range
**Scale**:
- 1 = Budget-friendly ($, under $15 per person)
- 2 = Moderate ($$, $15-30 per person)
- 3 = Upscale ($$$, $30-60 per person)
- 4 = Fine dining ($$$$, $60+ per person)

**Keywords mapping**:
- "cheap", "affordable", "budget" -> 1
- "reasonable", "mid-range" -> 2
- "upscale", "nice", "fancy" -> 3
- "fine dining", "expensive", "high-end" -> 4

### Dietary Restrictions
**Options**: vegetarian, vegan, gluten-free, halal, kosher, keto, low-carb, dairy-free, nut-free

### Restaurant Features
**Options**: outdoor_seating, delivery, takeout, reservations, parking, live_music, bar, kid_friendly, romantic, business_dinner, casual, formal, pet_friendly

### Time Preference
- Extract specific times, time ranges, or relative time references

### Party Size
- Extract number of people if mentioned

### Query Intent Classification
**Primary intents**:
- **restaurant_specific**: Looking for a particular restaurant (e.g., "What are the top dishes at Razza", "Show me the menu at Southern Spice")
- **location_cuisine**: Want specific cuisine in an area
- **location_dish**: Want specific dish in an area
- **location_general**: General dining in an area
- **cuisine_general**: General cuisine preference, any location
- **dish_search**: Looking for specific dish, any location/cuisine
- **meal_planning**: Planning for specific meal/time
- **dietary_focused**: Primary concern is dietary restrictions
- **ambiance_focused**: Primary concern is restaurant atmosphere/features
- **delivery_takeout**: Specifically wants delivery/takeout options

**Important**: When a restaurant name is mentioned (like "Razza", "Southern Spice"), the intent should be "restaurant_specific" regardless of other context.

## Confidence Scoring Guidelines
- **0.9-1.0**: Explicitly mentioned, unambiguous
- **0.7-0.8**: Strongly implied by context or common associations
- **0.5-0.6**: Reasonably inferred but could be interpreted differently
- **0.3-0.4**: Weak inference, multiple interpretations possible
- **0.1-0.2**: Very uncertain, mostly guessing

## Error Handling
- For ambiguous queries, prefer null values over low-confidence guesses
- If multiple cuisines are mentioned, choose the most specific or emphasized one
- If query is completely unclear, set intent to "unclear" and overall confidence below 0.3
- Always return valid JSON even for malformed or nonsensical queries

Return valid JSON with this exact structure:
{
    "location": "string or null",
    "restaurant_name": "string or null",
    "cuisine_type": "string or null",
    "dish_name": "string or null",
    "meal_type": "string or null",
    "price_range": "number (1-4) or null",
    "dietary_restrictions": ["array of strings or empty array"],
    "restaurant_features": ["array of strings or empty array"],
    "time_preference": "string or null",
    "party_size": "number or null",
    "intent": "string (required)",
    "confidence": {
        "location": "number 0-1 or null",
        "restaurant_name": "number 0-1 or null",
        "cuisine_type": "number 0-1 or null",
        "dish_name": "number 0-1 or null",
        "meal_type": "number 0-1 or null",
        "price_range": "number 0-1 or null",
        "dietary_restrictions": "number 0-1 or null",
        "restaurant_features": "number 0-1 or null",
        "time_preference": "number 0-1 or null",
        "party_size": "number 0-1 or null",
        "overall": "number 0-1"
    }
}`

// LLM is the completion surface the parser needs.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// ParserOptions tune cache behavior.
type ParserOptions struct {
	// LLMCacheTTL applies to LLM-produced parses (default 6h).
	LLMCacheTTL time.Duration
	// RegexCacheTTL applies to regex-fallback parses (default 2h).
	RegexCacheTTL time.Duration
}

// Parser turns raw user queries into ParsedQuery values. An LLM pass runs
// first when a model is configured; regex extraction is the fallback.
type Parser struct {
	llm           LLM
	cache         *cache.Store
	logger        *zap.Logger
	llmCacheTTL   time.Duration
	regexCacheTTL time.Duration
}

// NewParser creates a Parser. llm may be nil to force regex-only parsing,
// and store may be nil to disable caching.
func NewParser(llm LLM, store *cache.Store, opts ParserOptions, logger *zap.Logger) *Parser {
	if opts.LLMCacheTTL <= 0 {
		opts.LLMCacheTTL = 6 * time.Hour
	}
	if opts.RegexCacheTTL <= 0 {
		opts.RegexCacheTTL = 2 * time.Hour
	}
	return &Parser{
		llm:           llm,
		cache:         store,
		logger:        logger,
		llmCacheTTL:   opts.LLMCacheTTL,
		regexCacheTTL: opts.RegexCacheTTL,
	}
}

// Parse extracts entities and intent from a raw query. It never returns an
// error: when both the LLM and regex paths produce nothing usable, the result
// is an unknown-intent query with zero confidence.
func (p *Parser) Parse(ctx context.Context, raw string) *ParsedQuery {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return newDefaultQuery(raw)
	}

	cacheKey := "parsed_query:" + strings.ToLower(trimmed)
	if p.cache != nil {
		if v, ok := p.cache.Get(cacheKey); ok {
			if cached, ok := v.(*ParsedQuery); ok {
				p.logger.Debug("Parsed query cache hit", zap.String("query", trimmed))
				return cached.Clone()
			}
		}
	}

	if p.llm != nil {
		if parsed, err := p.parseWithLLM(ctx, trimmed); err == nil {
			p.resolveLocation(parsed)
			p.store(cacheKey, parsed, p.llmCacheTTL)
			return parsed
		} else {
			p.logger.Warn("LLM query parsing failed, falling back to regex",
				zap.String("query", trimmed),
				zap.Error(err),
			)
		}
	}

	parsed := parseWithRegex(trimmed)
	p.resolveLocation(parsed)
	p.store(cacheKey, parsed, p.regexCacheTTL)
	return parsed
}

func (p *Parser) store(key string, parsed *ParsedQuery, ttl time.Duration) {
	if p.cache != nil {
		p.cache.Set(key, parsed.Clone(), ttl)
	}
}

// llmParsedQuery is the wire shape the model returns. Pointer fields
// distinguish null from zero.
type llmParsedQuery struct {
	Location            *string             `json:"location"`
	RestaurantName      *string             `json:"restaurant_name"`
	CuisineType         *string             `json:"cuisine_type"`
	DishName            *string             `json:"dish_name"`
	MealType            *string             `json:"meal_type"`
	PriceRange          *float64            `json:"price_range"`
	DietaryRestrictions []string            `json:"dietary_restrictions"`
	RestaurantFeatures  []string            `json:"restaurant_features"`
	TimePreference      *string             `json:"time_preference"`
	PartySize           *float64            `json:"party_size"`
	Intent              string              `json:"intent"`
	Confidence          map[string]*float64 `json:"confidence"`
}

func (p *Parser) parseWithLLM(ctx context.Context, raw string) (*ParsedQuery, error) {
	userPrompt := fmt.Sprintf(`Parse the following restaurant query and extract all relevant entities:

Query: %q

Extract the following information based on the system guidelines:
1. Location (city/neighborhood/landmark)
2. Restaurant name (if specifically mentioned)
3. Cuisine type (from the defined list)
4. Dish name (specific dishes only)
5. Meal type (breakfast/lunch/dinner/brunch/late-night/snacks/drinks)
6. Price range preference (1-4 scale as defined)
7. Dietary restrictions (if any mentioned)
8. Restaurant features (delivery, outdoor seating, etc.)
9. Time preference (specific times or relative references)
10. Party size (number of people)
11. Query intent (primary purpose of the search)
12. Confidence scores for each extracted entity

Analyze the query context carefully and return the structured JSON response with appropriate confidence scores for each field.`, raw)

	content, err := p.llm.Complete(ctx, systemPrompt, userPrompt, 0.1, 800)
	if err != nil {
		return nil, err
	}

	var wire llmParsedQuery
	if err := llmjson.Extract(content, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	return p.validate(&wire, raw), nil
}

var validCuisines = map[string]bool{
	"Italian": true, "Indian": true, "Chinese": true,
	"American": true, "Mexican": true,
}

// validate normalizes a model response into a ParsedQuery, dropping values
// outside the supported vocabularies. Unsupported locations are kept so the
// scope check can report them.
func (p *Parser) validate(wire *llmParsedQuery, raw string) *ParsedQuery {
	result := &ParsedQuery{
		Location:            deref(wire.Location),
		RestaurantName:      deref(wire.RestaurantName),
		CuisineType:         deref(wire.CuisineType),
		DishName:            deref(wire.DishName),
		MealType:            deref(wire.MealType),
		DietaryRestrictions: wire.DietaryRestrictions,
		Features:            wire.RestaurantFeatures,
		TimePreference:      deref(wire.TimePreference),
		Intent:              normalizeIntent(wire.Intent),
		Confidence:          map[string]float64{},
		OriginalQuery:       raw,
	}

	if result.CuisineType != "" && !validCuisines[result.CuisineType] {
		result.CuisineType = ""
	}

	if wire.PriceRange != nil {
		price := int(*wire.PriceRange)
		if price >= 1 && price <= 4 {
			result.PriceRange = price
		}
	}
	if wire.PartySize != nil && *wire.PartySize > 0 {
		result.PartySize = int(*wire.PartySize)
	}

	for field, v := range wire.Confidence {
		if v != nil {
			result.Confidence[field] = *v
		}
	}
	if _, ok := result.Confidence["overall"]; !ok {
		sum, n := 0.0, 0
		for field, v := range result.Confidence {
			if field == "overall" {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			result.Confidence["overall"] = sum / float64(n)
		} else {
			result.Confidence["overall"] = 0.5
		}
	}
	if overall := result.Confidence["overall"]; overall < 0 || overall > 1 {
		result.Confidence["overall"] = 0.5
	}

	return result
}

var knownIntents = map[Intent]bool{
	IntentRestaurantSpecific: true,
	IntentLocationCuisine:    true,
	IntentLocationDish:       true,
	IntentLocationGeneral:    true,
	IntentCuisineGeneral:     true,
	IntentDishSearch:         true,
	IntentMealPlanning:       true,
	IntentDietaryFocused:     true,
	IntentAmbianceFocused:    true,
	IntentDeliveryTakeout:    true,
}

// normalizeIntent maps unrecognized intents (including the model's "unclear")
// to unknown.
func normalizeIntent(s string) Intent {
	intent := Intent(strings.ToLower(strings.TrimSpace(s)))
	if knownIntents[intent] {
		return intent
	}
	return IntentUnknown
}

// resolveLocation rewrites the query's location to a canonical supported city
// and records the neighborhood when one was named. Unsupported locations are
// cleared but remembered in OriginalLocation for scope handling.
func (p *Parser) resolveLocation(result *ParsedQuery) {
	if result.Location == "" {
		return
	}

	original := result.Location
	info := ResolveLocation(original)

	switch info.Kind {
	case LocationUnsupported:
		result.LocationStatus = LocationStatusUnsupported
		result.OriginalLocation = original
		result.Location = ""
	case LocationUnknown:
		result.LocationStatus = LocationStatusUnknown
		result.OriginalLocation = original
	default:
		result.LocationStatus = LocationStatusSupported
		result.OriginalLocation = original
		result.Location = info.City
		result.Neighborhood = info.Neighborhood
		if result.Confidence != nil {
			result.Confidence["location"] = info.Confidence
		}
	}

	p.logger.Debug("Resolved location",
		zap.String("original", original),
		zap.String("city", result.Location),
		zap.String("neighborhood", result.Neighborhood),
		zap.String("status", result.LocationStatus),
	)
}

// ClassifyQueryType returns the query's intent, falling back to an
// entity-based classification when the parse left it unknown.
func ClassifyQueryType(q *ParsedQuery) Intent {
	if q.Intent != IntentUnknown && q.Intent != "" {
		return q.Intent
	}

	switch {
	case q.RestaurantName != "":
		return IntentRestaurantSpecific
	case len(q.DietaryRestrictions) > 0:
		return IntentDietaryFocused
	case hasDeliveryFeature(q.Features):
		return IntentDeliveryTakeout
	case q.Location != "" && q.CuisineType != "":
		return IntentLocationCuisine
	case q.Location != "" && q.DishName != "":
		return IntentLocationDish
	case q.Location != "" && q.MealType != "":
		return IntentMealPlanning
	case q.Location != "":
		return IntentLocationGeneral
	case q.CuisineType != "":
		return IntentCuisineGeneral
	case q.DishName != "":
		return IntentDishSearch
	}
	return IntentUnknown
}

func hasDeliveryFeature(features []string) bool {
	for _, f := range features {
		if f == "delivery" || f == "takeout" {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
