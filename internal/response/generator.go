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

// Package response turns ranked recommendations into the natural-language
// answer shown to the user. Generation never fails: when the LLM is
// unavailable or errors, a template response stands in.
package response

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/retrieval"
)

// LLM is the completion surface for conversational responses.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Metadata carries the query context the generator mentions in responses.
type Metadata struct {
	Location        string
	CuisineType     string
	FallbackUsed    bool
	ConfidenceScore float64
}

// Generator produces conversational and template responses.
type Generator struct {
	llm    LLM
	logger *zap.Logger
}

// NewGenerator creates a response generator. llm may be nil; every response
// then comes from templates.
func NewGenerator(llm LLM, logger *zap.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

const conversationalSystemPrompt = `You are a restaurant recommendation expert for SweetPick.

Your expertise:
- Deep knowledge of restaurants and their signature dishes
- Understanding of what makes certain recommendations work for specific queries
- Ability to explain food quality indicators naturally
- Focus on helping users discover the best dining experiences

When providing recommendations:
- Be warm but authoritative in your knowledge
- Highlight specific dishes and what makes them special
- Mention quality indicators (ratings, specialties) naturally
- Keep responses brief and actionable (3-4 sentences max)
- End with confident encouragement
- If some recommendations are based on general knowledge, mention this naturally (e.g., "Based on my knowledge" or "From what I know about this cuisine")

Never mention:
- Technical details about the AI system
- Vector databases or similarity scores
- Internal processing methods
- API limitations
- Specific city specializations
`

// Conversational generates a short natural-language answer via the LLM,
// falling back to Template on any failure. The result is never empty.
func (g *Generator) Conversational(ctx context.Context, userQuery string, recs []retrieval.Recommendation, meta Metadata) string {
	if g.llm == nil {
		return g.Template(userQuery, recs, meta)
	}

	userPrompt := fmt.Sprintf(`Generate a short, warm response for this restaurant recommendation:

User Query: %q
Recommendations: %s

Keep it brief, friendly, and highlight the best 1-2 dishes. Maximum 3-4 sentences total.`,
		userQuery, buildContext(recs, meta))

	content, err := g.llm.Complete(ctx, conversationalSystemPrompt, userPrompt, 0.7, 150)
	if err != nil || strings.TrimSpace(content) == "" {
		g.logger.Warn("Conversational response generation failed, using template", zap.Error(err))
		return g.Template(userQuery, recs, meta)
	}
	return strings.TrimSpace(content)
}

// buildContext summarizes the query and top recommendations for the LLM.
func buildContext(recs []retrieval.Recommendation, meta Metadata) string {
	location := meta.Location
	if location == "" {
		location = "the area"
	}
	cuisine := meta.CuisineType
	if cuisine == "" {
		cuisine = "cuisine"
	}

	parts := []string{
		"Location: " + location,
		"Cuisine: " + cuisine,
		fmt.Sprintf("Fallback used: %t", meta.FallbackUsed),
		fmt.Sprintf("Confidence: %.2f", meta.ConfidenceScore),
	}

	generated := 0
	for _, rec := range recs {
		if rec.Source == retrieval.SourceOpenAIFallback {
			generated++
		}
	}
	if generated > 0 {
		parts = append(parts, fmt.Sprintf("Note: %d recommendations are based on general knowledge", generated))
	}

	parts = append(parts, fmt.Sprintf("\nRecommendations (%d total):", len(recs)))
	for i, rec := range recs {
		if i == 5 {
			break
		}
		parts = append(parts, fmt.Sprintf("%d. %s at %s (Rating: %.1f, Score: %.2f)",
			i+1, FormatDishName(rec.DishName), rec.RestaurantName, rec.Rating, rec.FinalScore))
	}

	return strings.Join(parts, "\n")
}

// Template builds the deterministic response used when the LLM is
// unavailable: an opener picked by fallback flag and confidence bucket,
// followed by the top three recommendations.
func (g *Generator) Template(userQuery string, recs []retrieval.Recommendation, meta Metadata) string {
	if len(recs) == 0 {
		return "I couldn't find any recommendations for your request at the moment. Please try a different query."
	}

	var response string
	switch {
	case meta.FallbackUsed:
		response = fmt.Sprintf("Since %s wasn't available, I've found these excellent options:", userQuery)
	case meta.ConfidenceScore > 0.8:
		response = "I'm confident these recommendations will be perfect for you:"
	case meta.ConfidenceScore > 0.5:
		response = "Here are some good options that might interest you:"
	default:
		response = "While not exactly what you asked for, these are popular choices:"
	}

	location := meta.Location
	if location == "" {
		location = "the area"
	}
	cuisine := meta.CuisineType
	if cuisine == "" {
		cuisine = "cuisine"
	}
	response += fmt.Sprintf("\n\nBased on your request for %s food in %s, here's what I found:", cuisine, location)

	for i, rec := range recs {
		if i == 3 {
			break
		}
		response += fmt.Sprintf("\n\n%d. **%s** at %s", i+1, FormatDishName(rec.DishName), rec.RestaurantName)
		if rec.Rating > 0 {
			response += fmt.Sprintf(" (%.1f stars)", rec.Rating)
		}
	}

	return response
}

// Quick builds a one-line summary without touching the LLM.
func (g *Generator) Quick(recs []retrieval.Recommendation, meta Metadata) string {
	if len(recs) == 0 {
		return "No recommendations found for your query."
	}

	location := meta.Location
	if location == "" {
		location = "your area"
	}

	return fmt.Sprintf("Found %d great options in %s! Top recommendation: %s at %s.",
		len(recs), location, FormatDishName(recs[0].DishName), recs[0].RestaurantName)
}

// Words kept lowercase mid-title unless they are food terms.
var lowercaseWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "but": true,
	"by": true, "for": true, "if": true, "in": true, "is": true, "it": true,
	"no": true, "not": true, "of": true, "on": true, "or": true, "so": true,
	"the": true, "to": true, "up": true, "yet": true, "with": true,
	"without": true, "from": true, "into": true, "during": true,
	"including": true, "until": true, "against": true, "among": true,
	"throughout": true, "despite": true, "towards": true, "upon": true,
}

// Food terms capitalized even where title case would lowercase them.
var alwaysCapitalize = map[string]bool{
	"chicken": true, "beef": true, "lamb": true, "pork": true, "fish": true,
	"shrimp": true, "salmon": true, "tuna": true, "vegetable": true,
	"vegetarian": true, "vegan": true, "pizza": true, "pasta": true,
	"curry": true, "biryani": true, "taco": true, "burrito": true,
	"sushi": true, "ramen": true, "pho": true, "burger": true,
	"sandwich": true, "margherita": true, "alfredo": true, "marinara": true,
	"pesto": true, "carbonara": true, "lasagna": true, "ravioli": true,
	"gnocchi": true, "risotto": true, "paella": true, "pad": true,
	"thai": true, "kung": true, "pao": true, "teriyaki": true,
}

// FormatDishName title-cases a dish name, keeping articles and prepositions
// lowercase while always capitalizing food terms.
func FormatDishName(dish string) string {
	if dish == "" {
		return dish
	}

	words := strings.Fields(dish)
	for i, word := range words {
		lower := strings.ToLower(word)
		switch {
		case i == 0:
			words[i] = titleWord(word)
		case alwaysCapitalize[lower]:
			words[i] = titleWord(word)
		case lowercaseWords[lower]:
			words[i] = lower
		default:
			words[i] = titleWord(word)
		}
	}
	return strings.Join(words, " ")
}

func titleWord(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
