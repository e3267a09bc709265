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

// Package pipeline orchestrates one recommendation request end to end:
// parse, scope validation, retrieval, the fallback ladder, and response
// generation. Recommend never returns an error; degraded stages produce
// degraded responses instead.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/fallback"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/response"
	"github.com/your-org/sweetpick/internal/retrieval"
	"github.com/your-org/sweetpick/internal/scope"
	"github.com/your-org/sweetpick/internal/stats"
	"github.com/your-org/sweetpick/internal/websearch"
)

// Parser extracts structured intent from raw query text.
type Parser interface {
	Parse(ctx context.Context, raw string) *query.ParsedQuery
}

// Validator checks queries against the supported scope.
type Validator interface {
	Validate(parsed *query.ParsedQuery, raw string) scope.Verdict
	CulturalResponse(ctx context.Context, cuisine, dish, raw string) string
}

// Retriever searches the discovery collections.
type Retriever interface {
	GetRecommendations(ctx context.Context, parsed *query.ParsedQuery, maxResults int) ([]retrieval.Recommendation, bool, string)
}

// FallbackHandler runs the relaxation ladder when retrieval comes up short.
type FallbackHandler interface {
	Execute(ctx context.Context, parsed *query.ParsedQuery, maxResults int) *fallback.Outcome
}

// WebSearcher generates web-search style answers for queries the discovery
// collections cannot serve.
type WebSearcher interface {
	ForOutOfScope(ctx context.Context, originalQuery, unsupportedLocation, unsupportedCuisine string) *websearch.Response
	ForDish(ctx context.Context, originalQuery, locationHint string) *websearch.Response
}

// Responder turns ranked recommendations into natural language.
type Responder interface {
	Conversational(ctx context.Context, userQuery string, recs []retrieval.Recommendation, meta response.Metadata) string
}

// Result is the answer for one query.
type Result struct {
	Query           string                     `json:"query"`
	QueryType       string                     `json:"query_type"`
	Recommendations []retrieval.Recommendation `json:"recommendations"`
	Cards           []websearch.Card           `json:"cards,omitempty"`
	NaturalResponse string                     `json:"natural_response"`
	FallbackUsed    bool                       `json:"fallback_used"`
	FallbackReason  string                     `json:"fallback_reason,omitempty"`
	ConfidenceScore float64                    `json:"confidence_score"`
	ProcessingTime  float64                    `json:"processing_time"`
	Cached          bool                       `json:"cached"`
}

// Options tunes the pipeline.
type Options struct {
	// MaxResults is the default result count when the caller passes 0.
	MaxResults int

	// ResponseCache holds full results keyed by normalized query. Nil
	// disables response caching.
	ResponseCache *cache.Store
	ResponseTTL   time.Duration
}

const (
	defaultMaxResults  = 5
	defaultResponseTTL = 30 * time.Minute
)

// Pipeline wires the query stages together.
type Pipeline struct {
	parser    Parser
	validator Validator
	retriever Retriever
	fallback  FallbackHandler
	websearch WebSearcher
	responder Responder

	collector *stats.Collector
	queryLog  *stats.QueryLog

	respCache *cache.Store
	respTTL   time.Duration

	maxResults int
	logger     *zap.Logger
}

// New creates a Pipeline. collector and queryLog may be nil to disable stats.
func New(parser Parser, validator Validator, retriever Retriever, fb FallbackHandler,
	ws WebSearcher, responder Responder, collector *stats.Collector, queryLog *stats.QueryLog,
	opts Options, logger *zap.Logger) *Pipeline {

	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.ResponseTTL <= 0 {
		opts.ResponseTTL = defaultResponseTTL
	}

	return &Pipeline{
		parser:     parser,
		validator:  validator,
		retriever:  retriever,
		fallback:   fb,
		websearch:  ws,
		responder:  responder,
		collector:  collector,
		queryLog:   queryLog,
		respCache:  opts.ResponseCache,
		respTTL:    opts.ResponseTTL,
		maxResults: opts.MaxResults,
		logger:     logger,
	}
}

// Recommend processes one query. maxResults <= 0 uses the configured default.
// The returned result always carries a non-empty NaturalResponse.
func (p *Pipeline) Recommend(ctx context.Context, raw string, maxResults int) *Result {
	start := time.Now()
	if maxResults <= 0 {
		maxResults = p.maxResults
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		result := &Result{
			QueryType:       string(query.IntentUnknown),
			NaturalResponse: "I couldn't find any recommendations for your request at the moment. Please try a different query.",
		}
		p.finish(result, start)
		return result
	}

	if cached := p.cachedResult(raw, maxResults); cached != nil {
		cached.Cached = true
		p.finish(cached, start)
		return cached
	}

	parsed := p.parser.Parse(ctx, raw)
	result := p.process(ctx, raw, parsed, maxResults)
	result.Query = raw
	result.QueryType = firstNonEmpty(result.QueryType, string(parsed.Intent))

	p.rememberResult(raw, maxResults, result)
	p.finish(result, start)
	return result
}

func (p *Pipeline) process(ctx context.Context, raw string, parsed *query.ParsedQuery, maxResults int) *Result {
	verdict := p.validator.Validate(parsed, raw)
	if !verdict.Valid {
		return p.rejected(ctx, raw, verdict)
	}

	recs, fellBack, reason := p.retriever.GetRecommendations(ctx, parsed, maxResults)
	fallbackUsed := fellBack
	fallbackReason := reason

	if !fellBack && fallback.ShouldUseFallback(recs, parsed) {
		outcome := p.fallback.Execute(ctx, parsed, maxResults)
		if outcome.WebSearch {
			return p.webSearchResult(ctx, raw, parsed.Location)
		}
		fallbackUsed = true
		fallbackReason = outcome.Reason
		if len(outcome.Recommendations) > 0 {
			recs = outcome.Recommendations
		}
	}

	confidence := retrieval.CalculateConfidence(recs)
	natural := p.responder.Conversational(ctx, raw, recs, response.Metadata{
		Location:        parsed.Location,
		CuisineType:     parsed.CuisineType,
		FallbackUsed:    fallbackUsed,
		ConfidenceScore: confidence,
	})

	return &Result{
		Recommendations: recs,
		NaturalResponse: natural,
		FallbackUsed:    fallbackUsed,
		FallbackReason:  fallbackReason,
		ConfidenceScore: confidence,
	}
}

// rejected answers queries that failed scope validation. Language violations
// use the templated decline; cultural questions get an LLM explanation; scope
// violations route to web search so the user still gets recommendations.
func (p *Pipeline) rejected(ctx context.Context, raw string, verdict scope.Verdict) *Result {
	switch verdict.Violation {
	case scope.ViolationLanguage:
		return &Result{
			QueryType:       string(verdict.Violation),
			NaturalResponse: verdict.Message,
		}
	case scope.ViolationCultural:
		return &Result{
			QueryType:       string(verdict.Violation),
			NaturalResponse: p.validator.CulturalResponse(ctx, verdict.Cuisine, verdict.Dish, raw),
		}
	default:
		resp := p.websearch.ForOutOfScope(ctx, raw, verdict.UnsupportedLocation, verdict.UnsupportedCuisine)
		return &Result{
			QueryType:       "out_of_scope_with_choice",
			Cards:           resp.Cards,
			NaturalResponse: resp.NaturalResponse,
			FallbackUsed:    true,
			FallbackReason:  "Out of scope query - using web search",
		}
	}
}

func (p *Pipeline) webSearchResult(ctx context.Context, raw, locationHint string) *Result {
	resp := p.websearch.ForDish(ctx, raw, locationHint)
	return &Result{
		QueryType:       "dish_specific_web_search",
		Cards:           resp.Cards,
		NaturalResponse: resp.NaturalResponse,
		FallbackUsed:    true,
		FallbackReason:  "Dish-specific query - using web search",
	}
}

func (p *Pipeline) finish(result *Result, start time.Time) {
	duration := time.Since(start)
	result.ProcessingTime = duration.Seconds()

	req := stats.Request{
		Query:          result.Query,
		Intent:         result.QueryType,
		ResultCount:    len(result.Recommendations) + len(result.Cards),
		Confidence:     result.ConfidenceScore,
		FallbackUsed:   result.FallbackUsed,
		FallbackReason: result.FallbackReason,
		WebSearch:      len(result.Cards) > 0,
		Cached:         result.Cached,
		Duration:       duration,
	}
	if p.collector != nil {
		p.collector.Record(req)
	}
	if p.queryLog != nil {
		if err := p.queryLog.Record(req); err != nil {
			p.logger.Warn("Failed to record query log entry", zap.Error(err))
		}
	}
}

func (p *Pipeline) cachedResult(raw string, maxResults int) *Result {
	if p.respCache == nil {
		return nil
	}
	if value, ok := p.respCache.Get(resultCacheKey(raw, maxResults)); ok {
		if cached, ok := value.(Result); ok {
			clone := cached
			return &clone
		}
	}
	return nil
}

func (p *Pipeline) rememberResult(raw string, maxResults int, result *Result) {
	if p.respCache == nil {
		return
	}
	p.respCache.Set(resultCacheKey(raw, maxResults), *result, p.respTTL)
}

func resultCacheKey(raw string, maxResults int) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(raw)))
	return fmt.Sprintf("result:%x:%d", h.Sum64(), maxResults)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
