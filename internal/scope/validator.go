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

// Package scope decides whether a parsed query is answerable from the curated
// dataset: content-safety filtering, cultural-sensitivity checks, and the
// supported city/cuisine whitelists.
package scope

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/query"
)

// Violation identifies why a query was rejected.
type Violation string

const (
	ViolationNone     Violation = ""
	ViolationLanguage Violation = "inappropriate_language"
	ViolationCultural Violation = "cultural_sensitivity"
	ViolationScope    Violation = "out_of_scope"
)

// Verdict is the result of validating one query. For language violations
// Message carries the templated decline; cultural and scope violations leave
// message generation to the caller so responses can be cached.
type Verdict struct {
	Valid     bool
	Violation Violation

	// Language violation details.
	Category string
	Message  string

	// Cultural violation details.
	Cuisine string
	Dish    string

	// Scope violation details.
	UnsupportedLocation string
	UnsupportedCuisine  string
}

// LLM is the completion surface used for cultural-sensitivity explanations.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Validator checks queries against the supported-domain whitelists and the
// content filters. Validate itself is pure; only CulturalResponse talks to
// the model.
type Validator struct {
	llm      LLM
	cities   map[string]bool
	cuisines map[string]bool
	logger   *zap.Logger
}

// NewValidator creates a Validator for the given whitelists. llm may be nil;
// cultural responses then use the deterministic fallback text.
func NewValidator(cities, cuisines []string, llm LLM, logger *zap.Logger) *Validator {
	v := &Validator{
		llm:      llm,
		cities:   make(map[string]bool, len(cities)),
		cuisines: make(map[string]bool, len(cuisines)),
		logger:   logger,
	}
	for _, c := range cities {
		v.cities[c] = true
	}
	for _, c := range cuisines {
		v.cuisines[c] = true
	}
	return v
}

// wordFilters are checked in severity order; the first matching category wins.
var wordFilters = []struct {
	category string
	words    []string
}{
	{"profanity", []string{"damn", "crap", "suck", "stupid", "idiot"}},
	{"sexual_content", []string{"sexy", "nude", "naked", "adult"}},
	{"discriminatory", []string{"hate", "racist", "sexist", "terrorist", "illegal alien"}},
	{"threats_violence", []string{"kill", "murder", "violence", "hurt", "harm", "beat up", "destroy"}},
}

// allowedPlaceNames are stripped before word filtering so legitimate
// neighborhoods never trip the filters.
var allowedPlaceNames = []string{
	"hell's kitchen", "hells kitchen", "hell kitchen",
	"hell's gate", "hells gate",
}

// inappropriateCombinations maps a cuisine to dish substrings that are
// culturally unavailable or inappropriate for it.
var inappropriateCombinations = map[string][]string{
	"Indian": {
		"beef", "beef curry", "beef biryani", "beef kebab", "beef masala",
		"steak", "hamburger", "beef burger", "roast beef",
	},
	"Halal":  {"pork", "ham", "bacon", "wine"},
	"Kosher": {"pork", "ham", "bacon", "shellfish", "cheeseburger"},
}

var categoryMessages = map[string]string{
	"profanity":        "I'd prefer to keep our conversation professional. Let me help you find great restaurant recommendations! What type of cuisine are you interested in?",
	"sexual_content":   "Let's focus on finding delicious food recommendations. What cuisine or dish are you in the mood for?",
	"discriminatory":   "I'm here to help with restaurant recommendations in a respectful manner. Please let me know what type of food you're looking for!",
	"threats_violence": "I'm here to help with restaurant recommendations in a respectful manner. Please let me know what type of food you're looking for!",
}

const defaultDeclineMessage = "Let's keep our conversation focused on finding great food! What cuisine are you interested in trying?"

// Validate runs the check ladder: language filter, cultural combinations,
// then the city/cuisine whitelists. It is a pure function of its inputs.
func (v *Validator) Validate(parsed *query.ParsedQuery, raw string) Verdict {
	if verdict, bad := v.checkLanguage(raw); bad {
		return verdict
	}
	if verdict, bad := v.checkCulturalCombination(parsed); bad {
		return verdict
	}
	if verdict, bad := v.checkWhitelists(parsed); bad {
		return verdict
	}
	return Verdict{Valid: true}
}

func (v *Validator) checkLanguage(raw string) (Verdict, bool) {
	if raw == "" {
		return Verdict{}, false
	}

	lower := strings.ToLower(raw)
	for _, place := range allowedPlaceNames {
		lower = strings.ReplaceAll(lower, place, "")
	}

	for _, filter := range wordFilters {
		for _, word := range filter.words {
			if strings.Contains(lower, word) {
				msg, ok := categoryMessages[filter.category]
				if !ok {
					msg = defaultDeclineMessage
				}
				v.logger.Info("Query rejected by language filter",
					zap.String("category", filter.category),
				)
				return Verdict{
					Violation: ViolationLanguage,
					Category:  filter.category,
					Message:   msg,
				}, true
			}
		}
	}
	return Verdict{}, false
}

func (v *Validator) checkCulturalCombination(parsed *query.ParsedQuery) (Verdict, bool) {
	if parsed.CuisineType == "" || parsed.DishName == "" {
		return Verdict{}, false
	}

	combos, ok := inappropriateCombinations[parsed.CuisineType]
	if !ok {
		return Verdict{}, false
	}

	dishLower := strings.ToLower(parsed.DishName)
	for _, bad := range combos {
		if strings.Contains(dishLower, bad) {
			v.logger.Info("Culturally inappropriate combination detected",
				zap.String("cuisine", parsed.CuisineType),
				zap.String("dish", parsed.DishName),
			)
			return Verdict{
				Violation: ViolationCultural,
				Cuisine:   parsed.CuisineType,
				Dish:      parsed.DishName,
			}, true
		}
	}
	return Verdict{}, false
}

func (v *Validator) checkWhitelists(parsed *query.ParsedQuery) (Verdict, bool) {
	verdict := Verdict{Violation: ViolationScope}

	// The parser clears locations it knows are unsupported but keeps the
	// original string for reporting.
	if parsed.LocationStatus == query.LocationStatusUnsupported && parsed.OriginalLocation != "" {
		verdict.UnsupportedLocation = parsed.OriginalLocation
	} else if parsed.Location != "" {
		// "City in Neighborhood" validates the city part only.
		base := parsed.Location
		if idx := strings.Index(base, " in "); idx >= 0 {
			base = strings.TrimSpace(base[:idx])
		}
		if !v.cities[base] {
			verdict.UnsupportedLocation = parsed.Location
		}
	}

	if parsed.CuisineType != "" && !v.cuisines[parsed.CuisineType] {
		verdict.UnsupportedCuisine = parsed.CuisineType
	}

	if verdict.UnsupportedLocation != "" || verdict.UnsupportedCuisine != "" {
		v.logger.Info("Query out of supported scope",
			zap.String("location", verdict.UnsupportedLocation),
			zap.String("cuisine", verdict.UnsupportedCuisine),
		)
		return verdict, true
	}
	return Verdict{}, false
}

const culturalSystemPrompt = "You are a culturally aware restaurant recommendation assistant. Provide respectful explanations about cuisine traditions and suggest appropriate alternatives."

// CulturalResponse generates a respectful explanation for an inappropriate
// dish-cuisine combination, with a deterministic fallback when the model is
// unavailable.
func (v *Validator) CulturalResponse(ctx context.Context, cuisine, dish, raw string) string {
	if v.llm != nil {
		prompt := fmt.Sprintf(`The user asked: %q

They requested %q from %s cuisine, but this combination may be culturally inappropriate or unavailable due to dietary/religious considerations.

Generate a respectful response that:
1. Politely explains why this combination might not be available
2. Suggests 3 popular and appropriate %s dishes instead
3. Maintains a helpful and respectful tone
4. Doesn't make assumptions about the user's background

Keep it educational and helpful, not preachy. Focus on delicious alternatives.`, raw, dish, cuisine, cuisine)

		if content, err := v.llm.Complete(ctx, culturalSystemPrompt, prompt, 0.7, 200); err == nil && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		} else if err != nil {
			v.logger.Warn("Cultural response generation failed", zap.Error(err))
		}
	}

	if cuisine == "Indian" {
		return "I understand you're interested in that dish, but most Indian restaurants don't serve beef dishes due to cultural traditions. Instead, I'd recommend trying chicken biryani, paneer curry, or dal - these are delicious and authentic Indian options! Would you like recommendations for these dishes?"
	}
	return fmt.Sprintf("That combination might not be available. Let me suggest some popular %s dishes instead!", cuisine)
}
