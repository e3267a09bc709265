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

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/fallback"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/response"
	"github.com/your-org/sweetpick/internal/retrieval"
	"github.com/your-org/sweetpick/internal/scope"
	"github.com/your-org/sweetpick/internal/stats"
	"github.com/your-org/sweetpick/internal/websearch"
)

type mockParser struct {
	parsed *query.ParsedQuery
	calls  int
}

func (m *mockParser) Parse(_ context.Context, raw string) *query.ParsedQuery {
	m.calls++
	if m.parsed != nil {
		p := *m.parsed
		p.OriginalQuery = raw
		return &p
	}
	return &query.ParsedQuery{
		Intent:        query.IntentLocationCuisine,
		Location:      "Jersey City",
		CuisineType:   "Italian",
		OriginalQuery: raw,
	}
}

type mockValidator struct {
	verdict  scope.Verdict
	cultural string
}

func (m *mockValidator) Validate(_ *query.ParsedQuery, _ string) scope.Verdict {
	return m.verdict
}

func (m *mockValidator) CulturalResponse(_ context.Context, _, _, _ string) string {
	return m.cultural
}

type mockRetriever struct {
	recs     []retrieval.Recommendation
	fellBack bool
	reason   string
	calls    int
}

func (m *mockRetriever) GetRecommendations(_ context.Context, _ *query.ParsedQuery, _ int) ([]retrieval.Recommendation, bool, string) {
	m.calls++
	return m.recs, m.fellBack, m.reason
}

type mockFallback struct {
	outcome *fallback.Outcome
	calls   int
}

func (m *mockFallback) Execute(_ context.Context, _ *query.ParsedQuery, _ int) *fallback.Outcome {
	m.calls++
	if m.outcome != nil {
		return m.outcome
	}
	return &fallback.Outcome{Reason: "All fallback strategies exhausted"}
}

type mockWebSearcher struct {
	resp         *websearch.Response
	scopeCalls   int
	dishCalls    int
	lastLocation string
	lastCuisine  string
}

func (m *mockWebSearcher) ForOutOfScope(_ context.Context, _, loc, cuisine string) *websearch.Response {
	m.scopeCalls++
	m.lastLocation = loc
	m.lastCuisine = cuisine
	return m.resp
}

func (m *mockWebSearcher) ForDish(_ context.Context, _, loc string) *websearch.Response {
	m.dishCalls++
	m.lastLocation = loc
	return m.resp
}

type mockResponder struct {
	text     string
	lastMeta response.Metadata
}

func (m *mockResponder) Conversational(_ context.Context, _ string, recs []retrieval.Recommendation, meta response.Metadata) string {
	m.lastMeta = meta
	if m.text != "" {
		return m.text
	}
	if len(recs) == 0 {
		return "I couldn't find any recommendations for your request at the moment. Please try a different query."
	}
	return "Here you go!"
}

type deps struct {
	parser    *mockParser
	validator *mockValidator
	retriever *mockRetriever
	fallback  *mockFallback
	websearch *mockWebSearcher
	responder *mockResponder
	collector *stats.Collector
}

func goodRecs() []retrieval.Recommendation {
	return []retrieval.Recommendation{
		{RestaurantName: "Razza", DishName: "margherita pizza", FinalScore: 0.9, Confidence: 0.9, Source: retrieval.SourceFamousRestaurant},
		{RestaurantName: "Porta", DishName: "chicken parm", FinalScore: 0.8, Confidence: 0.8, Source: retrieval.SourceAIDiscovery},
	}
}

func newTestPipeline(t *testing.T, d *deps, opts Options) *Pipeline {
	t.Helper()

	if d.parser == nil {
		d.parser = &mockParser{}
	}
	if d.validator == nil {
		d.validator = &mockValidator{verdict: scope.Verdict{Valid: true}}
	}
	if d.retriever == nil {
		d.retriever = &mockRetriever{recs: goodRecs()}
	}
	if d.fallback == nil {
		d.fallback = &mockFallback{}
	}
	if d.websearch == nil {
		d.websearch = &mockWebSearcher{resp: &websearch.Response{NaturalResponse: "From the web."}}
	}
	if d.responder == nil {
		d.responder = &mockResponder{}
	}
	if d.collector == nil {
		d.collector = stats.NewCollector()
	}

	return New(d.parser, d.validator, d.retriever, d.fallback, d.websearch, d.responder,
		d.collector, nil, opts, zaptest.NewLogger(t))
}

func TestRecommendHappyPath(t *testing.T) {
	d := &deps{}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "italian food in jersey city", 5)

	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "Razza", result.Recommendations[0].RestaurantName)
	assert.Equal(t, "location_cuisine", result.QueryType)
	assert.False(t, result.FallbackUsed)
	assert.False(t, result.Cached)
	assert.NotEmpty(t, result.NaturalResponse)
	assert.InDelta(t, 0.525, result.ConfidenceScore, 0.001)
	assert.Equal(t, 0, d.fallback.calls)
	assert.Equal(t, "Jersey City", d.responder.lastMeta.Location)
}

func TestRecommendEmptyQuery(t *testing.T) {
	d := &deps{}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "   ", 5)

	assert.Empty(t, result.Recommendations)
	assert.Contains(t, result.NaturalResponse, "couldn't find")
	assert.Equal(t, 0, d.parser.calls)
}

func TestRecommendLanguageViolation(t *testing.T) {
	d := &deps{validator: &mockValidator{verdict: scope.Verdict{
		Violation: scope.ViolationLanguage,
		Message:   "Let's keep our conversation focused on finding great food!",
	}}}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "some blocked query", 5)

	assert.Equal(t, string(scope.ViolationLanguage), result.QueryType)
	assert.Contains(t, result.NaturalResponse, "focused on finding great food")
	assert.Equal(t, 0, d.retriever.calls)
}

func TestRecommendCulturalViolation(t *testing.T) {
	d := &deps{validator: &mockValidator{
		verdict:  scope.Verdict{Violation: scope.ViolationCultural, Cuisine: "Indian", Dish: "beef curry"},
		cultural: "Many Indian restaurants focus on other proteins; try lamb or chicken curry instead.",
	}}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "beef curry in jersey city", 5)

	assert.Equal(t, string(scope.ViolationCultural), result.QueryType)
	assert.Contains(t, result.NaturalResponse, "lamb or chicken")
	assert.Equal(t, 0, d.retriever.calls)
}

func TestRecommendOutOfScopeRoutesToWebSearch(t *testing.T) {
	d := &deps{
		validator: &mockValidator{verdict: scope.Verdict{
			Violation:           scope.ViolationScope,
			UnsupportedLocation: "Miami",
		}},
		websearch: &mockWebSearcher{resp: &websearch.Response{
			NaturalResponse: "Here are some great options in Miami:",
			Cards:           []websearch.Card{{RestaurantName: "Versailles", Location: "Miami"}},
		}},
	}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "cuban food in miami", 5)

	assert.Equal(t, "out_of_scope_with_choice", result.QueryType)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "Out of scope query - using web search", result.FallbackReason)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, 1, d.websearch.scopeCalls)
	assert.Equal(t, "Miami", d.websearch.lastLocation)
	assert.Equal(t, 0, d.retriever.calls)
}

func TestRecommendFallbackLadderRuns(t *testing.T) {
	d := &deps{
		retriever: &mockRetriever{reason: "No vector search results found", fellBack: false},
		fallback: &mockFallback{outcome: &fallback.Outcome{
			Recommendations: goodRecs(),
			Strategy:        "geographic_expansion",
			Reason:          "Expanded search to Hoboken",
		}},
	}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "italian in jersey city", 5)

	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "Expanded search to Hoboken", result.FallbackReason)
	assert.Len(t, result.Recommendations, 2)
	assert.Equal(t, 1, d.fallback.calls)
	assert.True(t, d.responder.lastMeta.FallbackUsed)
}

func TestRecommendLLMGeneratedSkipsLadder(t *testing.T) {
	d := &deps{retriever: &mockRetriever{
		recs:     goodRecs(),
		fellBack: true,
		reason:   "LLM-generated recommendations - discovery collections insufficient",
	}}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "italian in jersey city", 5)

	assert.True(t, result.FallbackUsed)
	assert.Contains(t, result.FallbackReason, "LLM-generated")
	assert.Equal(t, 0, d.fallback.calls)
}

func TestRecommendDishShortCircuitUsesWebSearch(t *testing.T) {
	d := &deps{
		retriever: &mockRetriever{reason: "No vector search results found"},
		fallback: &mockFallback{outcome: &fallback.Outcome{
			WebSearch: true,
			Reason:    "Dish-specific query - recommend web search",
		}},
		websearch: &mockWebSearcher{resp: &websearch.Response{
			NaturalResponse: "The best biryani spots I know:",
			Cards:           []websearch.Card{{RestaurantName: "Biryani House"}},
		}},
	}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "best biryani in jersey city", 5)

	assert.Equal(t, "dish_specific_web_search", result.QueryType)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "Dish-specific query - using web search", result.FallbackReason)
	assert.Equal(t, 1, d.websearch.dishCalls)
	assert.Equal(t, "Jersey City", d.websearch.lastLocation)
	require.Len(t, result.Cards, 1)
}

func TestRecommendExhaustedFallback(t *testing.T) {
	d := &deps{retriever: &mockRetriever{reason: "No vector search results found"}}
	p := newTestPipeline(t, d, Options{})

	result := p.Recommend(context.Background(), "italian in jersey city", 5)

	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "All fallback strategies exhausted", result.FallbackReason)
	assert.Empty(t, result.Recommendations)
	assert.Contains(t, result.NaturalResponse, "couldn't find")
}

func TestRecommendResponseCache(t *testing.T) {
	d := &deps{}
	store := cache.New("responses", 100)
	p := newTestPipeline(t, d, Options{ResponseCache: store})

	first := p.Recommend(context.Background(), "Italian in Jersey City", 5)
	assert.False(t, first.Cached)

	// Same query in different case hits the cache.
	second := p.Recommend(context.Background(), "italian in jersey city", 5)
	assert.True(t, second.Cached)
	assert.Equal(t, first.NaturalResponse, second.NaturalResponse)
	assert.Equal(t, 1, d.retriever.calls)

	// Different max results misses.
	third := p.Recommend(context.Background(), "italian in jersey city", 3)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, d.retriever.calls)
}

func TestRecommendRecordsStats(t *testing.T) {
	d := &deps{}
	p := newTestPipeline(t, d, Options{ResponseCache: cache.New("responses", 100)})

	p.Recommend(context.Background(), "italian in jersey city", 5)
	p.Recommend(context.Background(), "italian in jersey city", 5)

	snap := d.collector.Snapshot()
	assert.Equal(t, int64(2), snap["total_queries"])
	assert.Equal(t, int64(1), snap["cache_hits"])

	byIntent := snap["queries_by_intent"].(map[string]int64)
	assert.Equal(t, int64(2), byIntent["location_cuisine"])
}

func TestRecommendDefaultMaxResults(t *testing.T) {
	d := &deps{}
	p := newTestPipeline(t, d, Options{MaxResults: 7})

	result := p.Recommend(context.Background(), "italian in jersey city", 0)
	assert.NotNil(t, result)
	assert.Equal(t, 1, d.retriever.calls)
}
