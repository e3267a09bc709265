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

package fallback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/config"
	"github.com/your-org/sweetpick/internal/llmjson"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/websearch"
)

// tierLabels names the criteria-relaxation tiers for result reasons.
var tierLabels = []string{"Premium restaurants", "Good restaurants", "Acceptable restaurants"}

// criteriaRelaxation retries the search with progressively looser rating and
// review-count thresholds.
type criteriaRelaxation struct {
	retriever Retriever
	cfg       config.FallbackConfig
	logger    *zap.Logger
}

func (s *criteriaRelaxation) Name() string { return "criteria_relaxation" }

func (s *criteriaRelaxation) Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *Outcome {
	for i, tier := range s.cfg.RelaxationTiers {
		relaxed := parsed.Clone()
		relaxed.MinRating = tier.MinRating
		relaxed.MinReviews = tier.MinReviews
		relaxed.FallbackTier = i + 1

		recs, _, _ := s.retriever.GetRecommendations(ctx, relaxed, maxResults)
		if len(recs) == 0 {
			continue
		}

		label := fmt.Sprintf("tier %d", i+1)
		if i < len(tierLabels) {
			label = tierLabels[i]
		}

		scaleConfidence(recs, s.cfg.CriteriaMultiplier, s.cfg.CriteriaFloor)
		for j := range recs {
			recs[j].Type = "fallback"
			recs[j].FallbackTier = i + 1
		}

		return &Outcome{
			Recommendations: recs,
			Reason:          "Relaxed search criteria: " + label,
		}
	}
	return nil
}

const substitutionSystemPrompt = "You are a restaurant recommendation expert. When searches fail, provide intelligent alternatives that match user intent and location context. Always respond with valid JSON."

type substitutionSuggestions struct {
	AlternativeCuisines []string `json:"alternative_cuisines"`
	NearbyLocations     []string `json:"nearby_locations"`
	AlternativeDishes   []string `json:"alternative_dishes"`
	Reasoning           string   `json:"reasoning"`
	MoodKeywords        []string `json:"mood_keywords"`
}

// llmSubstitution asks the LLM for alternative cuisines and nearby locations
// in one call, then retries the search with each suggestion.
type llmSubstitution struct {
	retriever Retriever
	llm       LLM
	cfg       config.FallbackConfig
	logger    *zap.Logger
}

func (s *llmSubstitution) Name() string { return "llm_substitution" }

func (s *llmSubstitution) Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *Outcome {
	if s.llm == nil {
		return nil
	}

	userPrompt := fmt.Sprintf(`The user searched for: %q
Location: %s
Cuisine: %s
Dish: %s

The search returned no usable results. Suggest intelligent substitutions as JSON:
{
    "alternative_cuisines": ["cuisine names similar in flavor or style"],
    "nearby_locations": ["locations close to the requested one"],
    "alternative_dishes": ["dishes similar to what was requested"],
    "reasoning": "one sentence explaining the substitutions",
    "mood_keywords": ["keywords capturing what the user wants"]
}`, parsed.OriginalQuery, parsed.Location, parsed.CuisineType, parsed.DishName)

	content, err := s.llm.Complete(ctx, substitutionSystemPrompt, userPrompt, 0.7, 400)
	if err != nil {
		s.logger.Warn("LLM substitution call failed", zap.Error(err))
		return nil
	}

	var suggestions substitutionSuggestions
	if err := llmjson.Extract(content, &suggestions); err != nil {
		s.logger.Warn("Could not parse LLM substitution suggestions", zap.Error(err))
		return nil
	}

	for _, cuisine := range suggestions.AlternativeCuisines {
		substituted := parsed.Clone()
		substituted.CuisineType = cuisine

		recs, _, _ := s.retriever.GetRecommendations(ctx, substituted, 3)
		if len(recs) == 0 {
			continue
		}

		scaleConfidence(recs, s.cfg.SubstitutionCuisineMultiplier, s.cfg.SubstitutionFloor)
		for i := range recs {
			recs[i].Type = "openai_fallback"
			recs[i].OriginalCuisine = parsed.CuisineType
		}
		return &Outcome{
			Recommendations: recs,
			Reason:          "OpenAI alternative: " + suggestions.Reasoning,
		}
	}

	for _, location := range suggestions.NearbyLocations {
		substituted := parsed.Clone()
		substituted.Location = location

		recs, _, _ := s.retriever.GetRecommendations(ctx, substituted, 3)
		if len(recs) == 0 {
			continue
		}

		scaleConfidence(recs, s.cfg.SubstitutionLocationMultiplier, s.cfg.SubstitutionFloor)
		for i := range recs {
			recs[i].Type = "openai_fallback"
			recs[i].OriginalLocation = parsed.Location
		}
		return &Outcome{
			Recommendations: recs,
			Reason:          "OpenAI expanded search to " + location,
		}
	}

	return nil
}

// dishShortCircuit stops the ladder for dish-specific queries: relaxed and
// substituted searches would return the wrong dish, so the pipeline answers
// from general knowledge instead.
type dishShortCircuit struct{}

func (s *dishShortCircuit) Name() string { return "dish_short_circuit" }

func (s *dishShortCircuit) Execute(_ context.Context, parsed *query.ParsedQuery, _ int) *Outcome {
	result := websearch.DetectDishSpecific(parsed, websearch.DefaultDetectionConfig())
	if !result.IsDishSpecific {
		return nil
	}
	return &Outcome{
		WebSearch: true,
		Reason:    "Dish-specific query - recommend web search",
	}
}

// nearbyLocations maps each supported or adjacent city to its expansion
// candidates, tried in order.
var nearbyLocations = map[string][]string{
	"Jersey City": {"Hoboken", "Manhattan"},
	"Hoboken":     {"Jersey City", "Manhattan"},
	"Manhattan":   {"Brooklyn", "Queens"},
	"Brooklyn":    {"Manhattan", "Queens"},
	"Queens":      {"Manhattan", "Brooklyn"},
}

// geographicExpansion retries the search in adjacent cities.
type geographicExpansion struct {
	retriever Retriever
	cfg       config.FallbackConfig
	logger    *zap.Logger
}

func (s *geographicExpansion) Name() string { return "geographic_expansion" }

func (s *geographicExpansion) Execute(ctx context.Context, parsed *query.ParsedQuery, _ int) *Outcome {
	city, _ := splitCity(parsed.Location)
	for _, nearby := range nearbyLocations[city] {
		expanded := parsed.Clone()
		expanded.Location = nearby

		recs, _, _ := s.retriever.GetRecommendations(ctx, expanded, 4)
		if len(recs) == 0 {
			continue
		}

		scaleConfidence(recs, s.cfg.GeographicMultiplier, s.cfg.GeographicFloor)
		for i := range recs {
			recs[i].Type = "geographic_fallback"
			recs[i].OriginalLocation = parsed.Location
		}
		return &Outcome{
			Recommendations: recs,
			Reason:          "Expanded search to " + nearby,
		}
	}
	return nil
}

// cuisineAlternatives maps each cuisine to flavor-adjacent substitutes.
var cuisineAlternatives = map[string][]string{
	"Italian":  {"American", "Mediterranean"},
	"Indian":   {"Pakistani", "Middle Eastern"},
	"Chinese":  {"Japanese", "Thai", "Vietnamese"},
	"American": {"Italian", "Mexican"},
	"Mexican":  {"Spanish", "Latin American"},
}

var defaultCuisineAlternatives = []string{"American", "Mixed"}

// cuisineRelaxation retries the search with related cuisines.
type cuisineRelaxation struct {
	retriever Retriever
	cfg       config.FallbackConfig
	logger    *zap.Logger
}

func (s *cuisineRelaxation) Name() string { return "cuisine_relaxation" }

func (s *cuisineRelaxation) Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *Outcome {
	if parsed.CuisineType == "" {
		return nil
	}

	alternatives, ok := cuisineAlternatives[parsed.CuisineType]
	if !ok {
		alternatives = defaultCuisineAlternatives
	}

	for _, alt := range alternatives {
		relaxed := parsed.Clone()
		relaxed.CuisineType = alt

		recs, _, _ := s.retriever.GetRecommendations(ctx, relaxed, maxResults)
		if len(recs) == 0 {
			continue
		}

		scaleConfidence(recs, s.cfg.CuisineRelaxMultiplier, s.cfg.CuisineRelaxFloor)
		for i := range recs {
			recs[i].Type = "cuisine_relaxation_fallback"
			recs[i].OriginalCuisine = parsed.CuisineType
		}
		return &Outcome{
			Recommendations: recs,
			Reason:          fmt.Sprintf("Relaxed cuisine from %s to %s", parsed.CuisineType, alt),
		}
	}
	return nil
}

// llmCreative asks the LLM to rephrase the query three ways and retries each
// rephrasing through the full parse + retrieve path.
type llmCreative struct {
	retriever Retriever
	parser    Parser
	llm       LLM
	cfg       config.FallbackConfig
	logger    *zap.Logger
}

func (s *llmCreative) Name() string { return "llm_creative" }

func (s *llmCreative) Execute(ctx context.Context, parsed *query.ParsedQuery, _ int) *Outcome {
	if s.llm == nil || s.parser == nil {
		return nil
	}

	userPrompt := fmt.Sprintf(`The restaurant search %q found nothing, even after relaxing criteria.
Rewrite it as 3 alternative search queries that preserve the user's intent but broaden the search.
Respond with a JSON array of 3 query strings and nothing else.`, parsed.OriginalQuery)

	content, err := s.llm.Complete(ctx, substitutionSystemPrompt, userPrompt, 0.7, 400)
	if err != nil {
		s.logger.Warn("LLM creative call failed", zap.Error(err))
		return nil
	}

	var alternatives []string
	if err := llmjson.Extract(content, &alternatives); err != nil {
		s.logger.Warn("Could not parse creative alternatives", zap.Error(err))
		return nil
	}

	for _, alt := range alternatives {
		reparsed := s.parser.Parse(ctx, alt)

		recs, _, _ := s.retriever.GetRecommendations(ctx, reparsed, 3)
		if len(recs) == 0 {
			continue
		}

		scaleConfidence(recs, s.cfg.CreativeMultiplier, s.cfg.CreativeFloor)
		for i := range recs {
			recs[i].Type = "openai_creative_fallback"
		}
		return &Outcome{
			Recommendations: recs,
			Reason:          "Used creative alternative query: " + alt,
		}
	}
	return nil
}

// genericRecommendations drops every constraint except the location and asks
// for the area's general best.
type genericRecommendations struct {
	retriever Retriever
	cfg       config.FallbackConfig
}

func (s *genericRecommendations) Name() string { return "generic_recommendations" }

func (s *genericRecommendations) Execute(ctx context.Context, parsed *query.ParsedQuery, _ int) *Outcome {
	generic := parsed.Clone()
	generic.Intent = query.IntentLocationGeneral
	generic.CuisineType = ""
	generic.DishName = ""
	if generic.Location == "" {
		generic.Location = "Manhattan"
	}

	recs, _, _ := s.retriever.GetRecommendations(ctx, generic, 5)
	if len(recs) == 0 {
		return nil
	}

	scaleConfidence(recs, s.cfg.GenericMultiplier, s.cfg.GenericFloor)
	for i := range recs {
		recs[i].Type = "generic_fallback"
	}
	return &Outcome{
		Recommendations: recs,
		Reason:          "Used generic recommendations",
	}
}

func splitCity(location string) (city, neighborhood string) {
	if idx := strings.Index(location, " in "); idx >= 0 {
		return strings.TrimSpace(location[:idx]), strings.TrimSpace(location[idx+len(" in "):])
	}
	return strings.TrimSpace(location), ""
}
