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

package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/milvus"
	"github.com/your-org/sweetpick/internal/query"
)

// VectorStore is the collection-search surface the engine needs. Satisfied
// by *milvus.Client.
type VectorStore interface {
	Search(ctx context.Context, params milvus.SearchParams) ([]milvus.Hit, error)
	HasCollection(ctx context.Context, name string) (bool, error)
}

// Embedder turns query text into a search vector. Satisfied by
// *openai.Client.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// LLM is the completion surface used when the collections come up empty.
type LLM interface {
	Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error)
}

// Collections names the three discovery collections the engine searches.
type Collections struct {
	Neighborhood      string
	PopularDishes     string
	FamousRestaurants string
}

// DefaultCollections returns the standard discovery collection names.
func DefaultCollections() Collections {
	return Collections{
		Neighborhood:      "discovery_neighborhood_analysis",
		PopularDishes:     "discovery_popular_dishes",
		FamousRestaurants: "discovery_famous_restaurants",
	}
}

// Options configures an Engine beyond its dependencies.
type Options struct {
	Collections Collections
	// SearchLimit caps per-collection search requests. Defaults to 20.
	SearchLimit int
	// EmbeddingCache stores query embeddings by content hash. Nil disables
	// caching.
	EmbeddingCache *cache.Store
}

// Engine routes parsed queries to the discovery collections by intent and
// merges the results by source priority.
type Engine struct {
	store       VectorStore
	embedder    Embedder
	llm         LLM
	collections Collections
	searchLimit int
	embedCache  *cache.Store
	logger      *zap.Logger
}

// NewEngine creates a retrieval engine. store may be nil, in which case every
// collection search returns empty and the LLM fallback carries the load.
func NewEngine(store VectorStore, embedder Embedder, llm LLM, opts Options, logger *zap.Logger) *Engine {
	if opts.Collections == (Collections{}) {
		opts.Collections = DefaultCollections()
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 20
	}
	return &Engine{
		store:       store,
		embedder:    embedder,
		llm:         llm,
		collections: opts.Collections,
		searchLimit: opts.SearchLimit,
		embedCache:  opts.EmbeddingCache,
		logger:      logger,
	}
}

// GetRecommendations answers a parsed query. The bool reports whether the
// results came from the LLM fallback rather than the collections; the string
// carries a human-readable reason when they did.
func (e *Engine) GetRecommendations(ctx context.Context, parsed *query.ParsedQuery, maxResults int) ([]Recommendation, bool, string) {
	if maxResults <= 0 {
		maxResults = 10
	}

	recs := e.discoveryRecommendations(ctx, parsed, maxResults)
	if len(recs) > 0 {
		e.logger.Info("Discovery collections answered query",
			zap.String("intent", string(parsed.Intent)),
			zap.Int("results", len(recs)),
		)
		return recs, false, ""
	}

	recs = e.llmRecommendations(ctx, parsed, maxResults)
	if len(recs) > 0 {
		e.logger.Info("LLM generated recommendations",
			zap.String("intent", string(parsed.Intent)),
			zap.Int("results", len(recs)),
		)
		return recs, true, "LLM-generated recommendations - discovery collections insufficient"
	}

	return nil, true, "No vector search results found"
}

func (e *Engine) discoveryRecommendations(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	switch parsed.Intent {
	case query.IntentLocationCuisine, query.IntentCuisineGeneral:
		return e.locationCuisine(ctx, parsed, maxResults)
	case query.IntentLocationDish:
		return e.locationDish(ctx, parsed, maxResults)
	case query.IntentLocationGeneral:
		return e.locationGeneral(ctx, parsed, maxResults)
	case query.IntentRestaurantSpecific:
		return e.restaurantSpecific(ctx, parsed, maxResults)
	default:
		return e.famousByCriteria(ctx, parsed, maxResults)
	}
}

// locationCuisine merges neighborhood analysis with famous restaurants and
// popular dishes for the cuisine. Cuisine-only queries default to Manhattan.
func (e *Engine) locationCuisine(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	if parsed.CuisineType == "" {
		return nil
	}
	location := parsed.Location
	if location == "" {
		location = "Manhattan"
	}
	city, neighborhood := splitLocation(location)

	filter := milvus.NewFilter().Eq("city", city).Eq("cuisine_type", parsed.CuisineType)
	if neighborhood != "" {
		filter.Like("neighborhood", neighborhood)
	}
	ratingFloors(filter, parsed, false)

	analysis := e.searchNeighborhood(ctx, filter.Expr(),
		fmt.Sprintf("%s %s restaurant recommendations", location, parsed.CuisineType),
		location, maxResults)

	famous := e.famousByCuisine(ctx, parsed, city, parsed.CuisineType, maxResults/2)
	popular := e.popularByCuisine(ctx, city, parsed.CuisineType, maxResults/4)

	return MergeAndRank(maxResults, analysis, famous, popular)
}

// locationDish answers dish cravings. Quality-phrased queries ("best
// biryani") search the popular dishes collection first (retrying with
// expanded dish variants on a miss), then neighborhood analysis, then
// fall back to LLM-suggested alternatives. Standard queries merge all
// three collections like the cuisine path.
func (e *Engine) locationDish(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	if parsed.Location == "" || parsed.DishName == "" {
		return nil
	}
	city, _ := splitLocation(parsed.Location)

	if parsed.HasQualityKeyword() {
		if recs := e.popularByDish(ctx, city, parsed.DishName, maxResults); len(recs) > 0 {
			return recs
		}
		// Short dish names like "biryani" or "ramen" often miss because the
		// collection stores specific variants. Retry with known expansions.
		for _, variant := range query.ExpandDishName(parsed.DishName) {
			if strings.EqualFold(variant, parsed.DishName) {
				continue
			}
			if recs := e.popularByDish(ctx, city, variant, maxResults); len(recs) > 0 {
				return recs
			}
		}
		if recs := e.neighborhoodByDish(ctx, parsed, city, parsed.DishName, maxResults); len(recs) > 0 {
			return recs
		}
		return e.dishFallback(ctx, parsed.DishName, parsed.CuisineType, parsed.Location, maxResults)
	}

	analysis := e.neighborhoodByDish(ctx, parsed, city, parsed.DishName, maxResults)
	famous := e.famousByDish(ctx, parsed, city, parsed.DishName, maxResults/2)
	popular := e.popularByDish(ctx, city, parsed.DishName, maxResults/4)

	return MergeAndRank(maxResults, analysis, famous, popular)
}

// locationGeneral surfaces a city's best dishes and famous restaurants with
// no cuisine filter.
func (e *Engine) locationGeneral(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	if parsed.Location == "" {
		return nil
	}
	city, _ := splitLocation(parsed.Location)

	analysisFilter := ratingFloors(milvus.NewFilter().Eq("city", city), parsed, false).Expr()
	analysis := e.searchNeighborhood(ctx, analysisFilter,
		fmt.Sprintf("%s best restaurants", parsed.Location),
		parsed.Location, maxResults)

	var popular []Recommendation
	if len(analysis) < maxResults {
		popular = e.searchPopularDishes(ctx, milvus.NewFilter().Eq("city", city).Expr(),
			fmt.Sprintf("%s popular dishes", parsed.Location), maxResults/3)
	}

	famous := e.famousByLocation(ctx, parsed, city, maxResults/2)

	return MergeAndRank(maxResults, analysis, popular, famous)
}

// restaurantSpecific finds a named restaurant in the famous restaurants
// collection with a fuzzy name filter.
func (e *Engine) restaurantSpecific(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	if parsed.RestaurantName == "" {
		return nil
	}

	filter := milvus.NewFilter().Like("restaurant_name", parsed.RestaurantName)
	embedText := parsed.RestaurantName + " restaurant"
	if parsed.Location != "" {
		city, _ := splitLocation(parsed.Location)
		filter.Eq("city", city)
		embedText += " " + city
	}
	ratingFloors(filter, parsed, true)

	recs := e.searchFamous(ctx, filter.Expr(), embedText, maxResults)
	for i := range recs {
		// Exact restaurant match is the strongest signal we have.
		recs[i].Confidence = 0.9
	}
	SortByPriority(recs)
	return recs
}

// famousByCriteria serves the remaining intents from the famous restaurants
// collection using whatever entities the query carries.
func (e *Engine) famousByCriteria(ctx context.Context, parsed *query.ParsedQuery, maxResults int) []Recommendation {
	city := ""
	if parsed.Location != "" {
		city, _ = splitLocation(parsed.Location)
	}

	switch {
	case city != "" && parsed.CuisineType != "":
		return e.famousByCuisine(ctx, parsed, city, parsed.CuisineType, maxResults)
	case city != "" && parsed.DishName != "":
		return e.famousByDish(ctx, parsed, city, parsed.DishName, maxResults)
	case city != "":
		return e.famousByLocation(ctx, parsed, city, maxResults)
	case parsed.CuisineType != "":
		return e.famousByCuisine(ctx, parsed, "", parsed.CuisineType, maxResults)
	case parsed.DishName != "":
		return e.famousByDish(ctx, parsed, "", parsed.DishName, maxResults)
	default:
		return e.searchFamous(ctx, ratingFloors(milvus.NewFilter(), parsed, true).Expr(),
			"famous restaurants recommendations", maxResults)
	}
}

func (e *Engine) neighborhoodByDish(ctx context.Context, parsed *query.ParsedQuery, city, dish string, maxResults int) []Recommendation {
	location := parsed.Location
	filter := ratingFloors(milvus.NewFilter().Eq("city", city).Like("top_dish_name", dish), parsed, false).Expr()
	recs := e.searchNeighborhood(ctx, filter,
		fmt.Sprintf("%s %s restaurant", location, dish), location, maxResults)

	dishLower := strings.ToLower(dish)
	for i := range recs {
		found := strings.ToLower(recs[i].DishName)
		if strings.Contains(found, dishLower) || strings.Contains(dishLower, found) {
			recs[i].MatchScore = 1.0
		} else {
			recs[i].MatchScore = 0.5
		}
	}
	return recs
}

func (e *Engine) famousByLocation(ctx context.Context, parsed *query.ParsedQuery, city string, maxResults int) []Recommendation {
	filter := ratingFloors(milvus.NewFilter().Eq("city", city), parsed, true)
	return e.searchFamous(ctx, filter.Expr(),
		fmt.Sprintf("%s famous restaurants", city), maxResults)
}

func (e *Engine) famousByCuisine(ctx context.Context, parsed *query.ParsedQuery, city, cuisine string, maxResults int) []Recommendation {
	filter := milvus.NewFilter().Eq("cuisine_type", cuisine)
	embedText := cuisine + " famous restaurants"
	if city != "" {
		filter.Eq("city", city)
		embedText += " " + city
	}
	ratingFloors(filter, parsed, true)
	return e.searchFamous(ctx, filter.Expr(), embedText, maxResults)
}

func (e *Engine) famousByDish(ctx context.Context, parsed *query.ParsedQuery, city, dish string, maxResults int) []Recommendation {
	filter := milvus.NewFilter().Like("famous_dish", dish)
	embedText := dish + " famous restaurants"
	if city != "" {
		filter.Eq("city", city)
		embedText += " " + city
	}
	ratingFloors(filter, parsed, true)
	return e.searchFamous(ctx, filter.Expr(), embedText, maxResults)
}

func (e *Engine) popularByCuisine(ctx context.Context, city, cuisine string, maxResults int) []Recommendation {
	return e.searchPopularDishes(ctx,
		milvus.NewFilter().Eq("city", city).Eq("primary_cuisine", cuisine).Expr(),
		fmt.Sprintf("%s %s popular dishes", city, cuisine), maxResults)
}

func (e *Engine) popularByDish(ctx context.Context, city, dish string, maxResults int) []Recommendation {
	return e.searchPopularDishes(ctx,
		milvus.NewFilter().Eq("city", city).Like("dish_name", dish).Expr(),
		fmt.Sprintf("%s %s popular dishes", city, dish), maxResults)
}

func (e *Engine) searchNeighborhood(ctx context.Context, filter, embedText, location string, limit int) []Recommendation {
	hits := e.search(ctx, e.collections.Neighborhood, filter, embedText, limit)
	recs := make([]Recommendation, 0, len(hits))
	for _, hit := range hits {
		recs = append(recs, neighborhoodHitToRecommendation(hit, location))
	}
	return Dedup(recs)
}

func (e *Engine) searchPopularDishes(ctx context.Context, filter, embedText string, limit int) []Recommendation {
	hits := e.search(ctx, e.collections.PopularDishes, filter, embedText, limit)
	recs := make([]Recommendation, 0, len(hits))
	for _, hit := range hits {
		recs = append(recs, popularDishHitToRecommendation(hit))
	}
	return recs
}

func (e *Engine) searchFamous(ctx context.Context, filter, embedText string, limit int) []Recommendation {
	hits := e.search(ctx, e.collections.FamousRestaurants, filter, embedText, limit)
	recs := make([]Recommendation, 0, len(hits))
	for _, hit := range hits {
		recs = append(recs, famousHitToRecommendation(hit))
	}
	return recs
}

// search runs one filtered vector search. Missing collections and transport
// errors degrade to empty results so one bad collection never fails the
// whole query.
func (e *Engine) search(ctx context.Context, collection, filter, embedText string, limit int) []milvus.Hit {
	if e.store == nil || collection == "" || limit <= 0 {
		return nil
	}

	ok, err := e.store.HasCollection(ctx, collection)
	if err != nil {
		e.logger.Warn("Collection check failed", zap.String("collection", collection), zap.Error(err))
		return nil
	}
	if !ok {
		e.logger.Debug("Collection not present", zap.String("collection", collection))
		return nil
	}

	if limit > e.searchLimit {
		limit = e.searchLimit
	}

	hits, err := e.store.Search(ctx, milvus.SearchParams{
		Collection:   collection,
		Vector:       e.embed(ctx, embedText),
		Filter:       filter,
		Limit:        limit,
		OutputFields: []string{"*"},
	})
	if err != nil {
		e.logger.Warn("Collection search failed",
			zap.String("collection", collection),
			zap.String("filter", filter),
			zap.Error(err),
		)
		return nil
	}
	return hits
}

// embed returns the vector for text, consulting the content-hash cache
// first. Empty text and embedding failures yield a zero vector so the search
// degrades to pure filtering instead of failing.
func (e *Engine) embed(ctx context.Context, text string) []float32 {
	if text == "" || e.embedder == nil {
		return e.zeroVector()
	}

	key := embeddingKey(text)
	if e.embedCache != nil {
		if v, ok := e.embedCache.Get(key); ok {
			if vec, ok := v.([]float32); ok {
				return vec
			}
		}
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("Embedding generation failed", zap.Error(err))
		return e.zeroVector()
	}

	if e.embedCache != nil {
		e.embedCache.Set(key, vec, 0)
	}
	return vec
}

func (e *Engine) zeroVector() []float32 {
	dim := 1536
	if e.embedder != nil {
		dim = e.embedder.Dimensions()
	}
	return make([]float32, dim)
}

func embeddingKey(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("embedding:%x", h.Sum64())
}

// CalculateConfidence scores a result set: half from result count (ten or
// more is full confidence), half from the average final score.
func CalculateConfidence(recs []Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}

	base := float64(len(recs)) / 10.0
	if base > 1 {
		base = 1
	}

	var sum float64
	for _, rec := range recs {
		score := rec.FinalScore
		if score == 0 {
			score = 0.5
		}
		sum += score
	}
	avg := sum / float64(len(recs))

	return (base + avg) / 2.0
}

// ratingFloors adds the rating and review-count floors carried by relaxed
// fallback queries. reviews is false for collections without a review_count
// field.
func ratingFloors(f *milvus.Filter, parsed *query.ParsedQuery, reviews bool) *milvus.Filter {
	if parsed.MinRating > 0 {
		f.Gte("rating", parsed.MinRating)
	}
	if reviews && parsed.MinReviews > 0 {
		f.Gte("review_count", float64(parsed.MinReviews))
	}
	return f
}

// splitLocation separates "City in Neighborhood" into its parts.
func splitLocation(location string) (city, neighborhood string) {
	if idx := strings.Index(location, " in "); idx >= 0 {
		return strings.TrimSpace(location[:idx]), strings.TrimSpace(location[idx+len(" in "):])
	}
	return strings.TrimSpace(location), ""
}
