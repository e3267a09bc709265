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
	"sort"
	"strings"
)

type restaurantKey struct {
	name string
	id   string
}

// Dedup removes later occurrences of the same restaurant, keyed by
// case-insensitive name plus restaurant id. Order is preserved.
func Dedup(recs []Recommendation) []Recommendation {
	seen := make(map[restaurantKey]bool, len(recs))
	unique := recs[:0:0]
	for _, rec := range recs {
		key := restaurantKey{name: strings.ToLower(rec.RestaurantName), id: rec.RestaurantID}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
	}
	return unique
}

// SortByPriority orders recommendations by source priority first, then by
// match, fame, popularity, final, hybrid quality, and similarity scores.
// Source priority always wins: a famous restaurant with a low score still
// ranks above a high-scoring discovery hit. The sort is stable so equal
// entries keep their retrieval order.
func SortByPriority(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if pa, pb := Priority(a.Source), Priority(b.Source); pa != pb {
			return pa > pb
		}
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.FameScore != b.FameScore {
			return a.FameScore > b.FameScore
		}
		if a.PopularityScore != b.PopularityScore {
			return a.PopularityScore > b.PopularityScore
		}
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.HybridQualityScore != b.HybridQualityScore {
			return a.HybridQualityScore > b.HybridQualityScore
		}
		return a.SimilarityScore > b.SimilarityScore
	})
}

// MergeAndRank concatenates result groups, deduplicates restaurants, ranks
// by priority, and truncates to maxResults.
func MergeAndRank(maxResults int, groups ...[]Recommendation) []Recommendation {
	var merged []Recommendation
	for _, g := range groups {
		merged = append(merged, g...)
	}

	merged = Dedup(merged)
	SortByPriority(merged)

	if maxResults > 0 && len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}
