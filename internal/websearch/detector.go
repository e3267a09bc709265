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

// Package websearch produces general-knowledge restaurant answers for queries
// the curated collections cannot serve: out-of-scope locations and cuisines,
// and dish-specific cravings that route past the numeric fallback ladder. It
// also detects which queries qualify for that dish-specific routing.
package websearch

import (
	"regexp"
	"strings"

	"github.com/your-org/sweetpick/internal/query"
)

// DetectionResult contains details about dish-specific query detection
type DetectionResult struct {
	IsDishSpecific   bool     `json:"is_dish_specific"`
	MatchedKeywords  []string `json:"matched_keywords"`
	ConfidenceScore  float64  `json:"confidence_score"`
	DetectionReasons []string `json:"detection_reasons"`
}

// DetectionConfig contains configuration for dish-specific detection
type DetectionConfig struct {
	DishKeywords []string `json:"dish_keywords"`
}

const (
	dishKeywordWeight  = 0.3
	dishIntentScore    = 1.0
	detectionThreshold = 0.2
)

// defaultDishKeywords are dish names that mark a query as dish-specific even
// when the parser extracted no dish entity.
var defaultDishKeywords = []string{
	"biryani", "pizza", "pasta", "sushi", "burger", "taco", "curry",
	"ramen", "pho", "pad thai", "enchilada", "lasagna", "risotto",
}

// DetectDishSpecific analyzes a parsed query to determine whether it is a
// dish-specific craving that should be answered from general knowledge
// rather than by substituting cuisines or locations.
func DetectDishSpecific(parsed *query.ParsedQuery, config DetectionConfig) DetectionResult {
	result := DetectionResult{
		MatchedKeywords:  []string{},
		DetectionReasons: []string{},
	}

	if parsed.DishName != "" &&
		(parsed.Intent == query.IntentLocationDish || parsed.Intent == query.IntentDishSearch) {
		result.ConfidenceScore += dishIntentScore
		result.DetectionReasons = append(result.DetectionReasons,
			"Dish entity present with a dish-oriented intent")
	}

	keywords := config.DishKeywords
	if len(keywords) == 0 {
		keywords = defaultDishKeywords
	}

	matches := checkKeywords(strings.ToLower(parsed.OriginalQuery), keywords)
	if len(matches) > 0 {
		result.MatchedKeywords = append(result.MatchedKeywords, matches...)
		result.ConfidenceScore += dishKeywordWeight * float64(len(matches))
		result.DetectionReasons = append(result.DetectionReasons,
			"Found dish keywords in the raw query text")
	}

	result.IsDishSpecific = result.ConfidenceScore >= detectionThreshold

	if result.ConfidenceScore > 1.0 {
		result.ConfidenceScore = 1.0
	}

	return result
}

// checkKeywords checks for keyword matches in the query
func checkKeywords(queryLower string, keywords []string) []string {
	var matches []string
	for _, keyword := range keywords {
		keywordLower := strings.ToLower(keyword)

		// Use word boundaries for all keywords to avoid partial matches
		var pattern string
		if strings.Contains(keywordLower, " ") {
			words := strings.Fields(keywordLower)
			var escapedWords []string
			for _, word := range words {
				escapedWords = append(escapedWords, regexp.QuoteMeta(word))
			}
			pattern = `\b` + strings.Join(escapedWords, `\s+`) + `\b`
		} else {
			pattern = `\b` + regexp.QuoteMeta(keywordLower) + `\b`
		}

		wordPattern := regexp.MustCompile(pattern)
		if wordPattern.MatchString(queryLower) {
			matches = append(matches, keyword)
		}
	}
	return matches
}

// DefaultDetectionConfig returns a default configuration for dish detection
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		DishKeywords: defaultDishKeywords,
	}
}
