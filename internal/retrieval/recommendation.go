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

// Package retrieval answers parsed queries from the discovery collections:
// per-neighborhood dish analysis, city-wide popular dishes, and famous
// restaurants. Results from the three collections are merged, deduplicated
// by restaurant, and ranked by source priority before any numeric score.
package retrieval

import "github.com/your-org/sweetpick/internal/milvus"

// Recommendation sources, in descending priority order. Curated famous
// restaurants outrank aggregated popular dishes, which outrank per-hit
// discovery analysis; LLM-generated results rank last.
const (
	SourceFamousRestaurant = "famous_restaurant"
	SourcePopularDish      = "popular_dish"
	SourceAIDiscovery      = "ai_discovery"
	SourceOpenAIFallback   = "openai_fallback"
)

var sourcePriority = map[string]int{
	SourceFamousRestaurant: 4,
	SourcePopularDish:      3,
	SourceAIDiscovery:      2,
	SourceOpenAIFallback:   1,
}

// Priority returns the merge rank for a recommendation source. Unknown
// sources rank below every known one.
func Priority(source string) int {
	return sourcePriority[source]
}

// Recommendation is one ranked dining suggestion. Only the fields relevant
// to the originating collection are populated; the zero value of the rest is
// meaningful (no fame score, no review count).
type Recommendation struct {
	Type           string `json:"type"`
	RestaurantName string `json:"restaurant_name"`
	RestaurantID   string `json:"restaurant_id"`
	DishName       string `json:"dish_name"`
	CuisineType    string `json:"cuisine_type"`
	Location       string `json:"location"`
	Neighborhood   string `json:"neighborhood"`

	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count,omitempty"`
	PriceRange  int     `json:"price_range,omitempty"`

	FameScore          float64 `json:"fame_score,omitempty"`
	PopularityScore    float64 `json:"popularity_score,omitempty"`
	FinalScore         float64 `json:"final_score,omitempty"`
	HybridQualityScore float64 `json:"hybrid_quality_score,omitempty"`
	SimilarityScore    float64 `json:"similarity_score,omitempty"`
	MatchScore         float64 `json:"match_score,omitempty"`
	SentimentScore     float64 `json:"sentiment_score,omitempty"`

	CulturalSignificance string `json:"cultural_significance,omitempty"`
	Reasoning            string `json:"reasoning,omitempty"`

	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`

	// Set by the fallback ladder when the result came from a relaxed or
	// substituted search.
	FallbackTier     int    `json:"fallback_tier,omitempty"`
	OriginalLocation string `json:"original_location,omitempty"`
	OriginalCuisine  string `json:"original_cuisine,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// neighborhoodHitToRecommendation maps a discovery_neighborhood_analysis hit.
func neighborhoodHitToRecommendation(hit milvus.Hit, location string) Recommendation {
	e := hit.Entity
	return Recommendation{
		Type:               "discovery_dish",
		RestaurantName:     milvus.GetString(e, "restaurant_name", "Unknown"),
		RestaurantID:       milvus.GetString(e, "restaurant_id", ""),
		DishName:           milvus.GetString(e, "top_dish_name", "Unknown"),
		CuisineType:        milvus.GetString(e, "cuisine_type", ""),
		Location:           location,
		Neighborhood:       milvus.GetString(e, "neighborhood", ""),
		Rating:             milvus.GetFloat(e, "rating", 0),
		FinalScore:         milvus.GetFloat(e, "top_dish_final_score", 0),
		SentimentScore:     milvus.GetFloat(e, "top_dish_sentiment_score", 0),
		HybridQualityScore: milvus.GetFloat(e, "hybrid_quality_score", 0),
		SimilarityScore:    hit.Score,
		Confidence:         milvus.GetFloat(e, "analysis_confidence", 0.8),
		Source:             SourceAIDiscovery,
	}
}

// popularDishHitToRecommendation maps a discovery_popular_dishes hit. Popular
// dishes aggregate across restaurants, so the restaurant name is a
// placeholder.
func popularDishHitToRecommendation(hit milvus.Hit) Recommendation {
	e := hit.Entity
	return Recommendation{
		Type:            "popular_dish",
		RestaurantName:  "Multiple locations",
		DishName:        milvus.GetString(e, "dish_name", "Unknown"),
		CuisineType:     milvus.GetString(e, "primary_cuisine", ""),
		Location:        milvus.GetString(e, "city", ""),
		PopularityScore: milvus.GetFloat(e, "popularity_score", 0),
		SentimentScore:  milvus.GetFloat(e, "avg_sentiment", 0),
		SimilarityScore: hit.Score,
		Reasoning:       milvus.GetString(e, "reasoning", ""),
		Confidence:      milvus.GetFloat(e, "confidence_score", 0.8),
		Source:          SourcePopularDish,
	}
}

// famousHitToRecommendation maps a discovery_famous_restaurants hit.
func famousHitToRecommendation(hit milvus.Hit) Recommendation {
	e := hit.Entity
	return Recommendation{
		Type:                 "famous_restaurant",
		RestaurantName:       milvus.GetString(e, "restaurant_name", "Unknown"),
		RestaurantID:         milvus.GetString(e, "restaurant_id", ""),
		DishName:             milvus.GetString(e, "famous_dish", "Unknown"),
		CuisineType:          milvus.GetString(e, "cuisine_type", ""),
		Location:             milvus.GetString(e, "city", ""),
		Neighborhood:         milvus.GetString(e, "neighborhood", ""),
		Rating:               milvus.GetFloat(e, "rating", 0),
		ReviewCount:          milvus.GetInt(e, "review_count", 0),
		PriceRange:           milvus.GetInt(e, "price_range", 2),
		FameScore:            milvus.GetFloat(e, "fame_score", 0),
		MatchScore:           1.0,
		SimilarityScore:      hit.Score,
		CulturalSignificance: milvus.GetString(e, "cultural_significance", ""),
		Confidence:           0.85,
		Source:               SourceFamousRestaurant,
	}
}
