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

// Package fallback recovers usable recommendations when the primary
// retrieval comes up empty or weak. Strategies run strictly in order and the
// first one that produces results wins; dish-specific queries short-circuit
// the ladder and route to the web-search response path instead.
package fallback

import (
	"context"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/config"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/retrieval"
)

// Retriever re-runs searches with modified queries. Satisfied by
// *retrieval.Engine.
type Retriever interface {
	GetRecommendations(ctx context.Context, parsed *query.ParsedQuery, maxResults int) ([]retrieval.Recommendation, bool, string)
}

// Parser turns alternative query strings back into parsed queries. Satisfied
// by *query.Parser.
type Parser interface {
	Parse(ctx context.Context, raw string) *query.ParsedQuery
}

// LLM is the completion surface used by the substitution and creative
// strategies.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Outcome is the result of running the ladder.
type Outcome struct {
	Recommendations []retrieval.Recommendation
	Strategy        string
	Reason          string
	// WebSearch reports that the query is dish-specific and should be
	// answered from general knowledge instead of relaxed searches.
	WebSearch bool
}

// Handled reports whether the ladder produced something actionable.
func (o *Outcome) Handled() bool {
	return o.WebSearch || len(o.Recommendations) > 0
}

// Strategy is one rung of the fallback ladder. A nil return means the
// strategy could not help and the next one runs.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *Outcome
}

// Handler runs the fallback ladder.
type Handler struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewHandler wires the standard seven-strategy ladder. parser and llm may be
// nil; the strategies that need them are skipped.
func NewHandler(retriever Retriever, parser Parser, llm LLM, cfg config.FallbackConfig, logger *zap.Logger) *Handler {
	return &Handler{
		strategies: []Strategy{
			&criteriaRelaxation{retriever: retriever, cfg: cfg, logger: logger},
			&llmSubstitution{retriever: retriever, llm: llm, cfg: cfg, logger: logger},
			&dishShortCircuit{},
			&geographicExpansion{retriever: retriever, cfg: cfg, logger: logger},
			&cuisineRelaxation{retriever: retriever, cfg: cfg, logger: logger},
			&llmCreative{retriever: retriever, parser: parser, llm: llm, cfg: cfg, logger: logger},
			&genericRecommendations{retriever: retriever, cfg: cfg},
		},
		logger: logger,
	}
}

// Execute runs the strategies in order and returns the first outcome. When
// every strategy fails the outcome carries no recommendations and the
// exhaustion reason.
func (h *Handler) Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *Outcome {
	for _, s := range h.strategies {
		outcome := s.Execute(ctx, parsed, maxResults)
		if outcome == nil {
			continue
		}

		h.logger.Info("Fallback strategy succeeded",
			zap.String("strategy", s.Name()),
			zap.Int("results", len(outcome.Recommendations)),
			zap.Bool("web_search", outcome.WebSearch),
		)
		outcome.Strategy = s.Name()
		return outcome
	}

	h.logger.Warn("All fallback strategies exhausted",
		zap.String("query", parsed.OriginalQuery),
	)
	return &Outcome{Reason: "All fallback strategies exhausted"}
}

// ShouldUseFallback decides whether the primary retrieval results warrant
// the ladder: nothing found, weak average confidence, or a restaurant query
// whose results name no restaurant.
func ShouldUseFallback(recs []retrieval.Recommendation, parsed *query.ParsedQuery) bool {
	if len(recs) == 0 {
		return true
	}

	var sum float64
	for _, rec := range recs {
		sum += rec.Confidence
	}
	if sum/float64(len(recs)) < 0.3 {
		return true
	}

	if parsed.Intent == query.IntentRestaurantSpecific {
		for _, rec := range recs {
			if rec.RestaurantName != "" {
				return false
			}
		}
		return true
	}
	return false
}

// scaleConfidence discounts result confidence by multiplier without dropping
// below floor.
func scaleConfidence(recs []retrieval.Recommendation, multiplier, floor float64) {
	for i := range recs {
		scaled := recs[i].Confidence * multiplier
		if scaled < floor {
			scaled = floor
		}
		recs[i].Confidence = scaled
	}
}
