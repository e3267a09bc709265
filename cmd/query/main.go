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

// Package main provides a CLI for running one query through the
// recommendation pipeline without starting the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/config"
	"github.com/your-org/sweetpick/internal/fallback"
	"github.com/your-org/sweetpick/internal/milvus"
	"github.com/your-org/sweetpick/internal/openai"
	"github.com/your-org/sweetpick/internal/pipeline"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/response"
	"github.com/your-org/sweetpick/internal/retrieval"
	"github.com/your-org/sweetpick/internal/scope"
	"github.com/your-org/sweetpick/internal/websearch"
)

const queryTimeout = 60 * time.Second

func main() {
	queryText := flag.String("query", "", "Query to run (required)")
	maxResults := flag.Int("max", 0, "Maximum results (0 uses the configured default)")
	configPath := flag.String("config", "", "Path to configuration file")
	asJSON := flag.Bool("json", false, "Print the full result as JSON")
	quick := flag.Bool("quick", false, "Print a one-line summary")
	flag.Parse()

	if *queryText == "" {
		fmt.Fprintln(os.Stderr, "Usage: query -query \"best pizza in jersey city\" [-max 5] [-json] [-quick]")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	pipe, err := buildPipeline(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize pipeline", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result := pipe.Recommend(ctx, *queryText, *maxResults)

	if *asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Fatal("Failed to encode result", zap.Error(err))
		}
		fmt.Println(string(encoded))
		return
	}

	if *quick {
		summarizer := response.NewGenerator(nil, logger)
		fmt.Println(summarizer.Quick(result.Recommendations, response.Metadata{
			FallbackUsed:    result.FallbackUsed,
			ConfidenceScore: result.ConfidenceScore,
		}))
		return
	}

	printResult(result)
}

// buildPipeline wires the same stages as the API server, minus stats.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	openaiClient, err := openai.NewClient(cfg.OpenAI.APIKey, openai.Options{
		ChatModel:          cfg.OpenAI.ChatModel,
		EmbeddingModel:     cfg.OpenAI.EmbeddingModel,
		EmbeddingDimension: cfg.OpenAI.EmbeddingDimension,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	var store retrieval.VectorStore
	if cfg.Milvus.URI != "" {
		milvusClient, err := milvus.NewClient(cfg.Milvus.URI, cfg.Milvus.Token, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Milvus client: %w", err)
		}
		store = milvusClient
	}

	parser := query.NewParser(openaiClient, cache.New("parsed_queries", cfg.Cache.MaxEntries), query.ParserOptions{
		LLMCacheTTL:   cfg.Cache.ParsedQueryTTL,
		RegexCacheTTL: cfg.Cache.ParsedQueryRegexTTL,
	}, logger)

	validator := scope.NewValidator(cfg.Scope.SupportedCities, cfg.Scope.SupportedCuisines, openaiClient, logger)

	engine := retrieval.NewEngine(store, openaiClient, openaiClient, retrieval.Options{
		Collections: retrieval.Collections{
			Neighborhood:      cfg.Milvus.NeighborhoodCollection,
			PopularDishes:     cfg.Milvus.DishCollection,
			FamousRestaurants: cfg.Milvus.RestaurantCollection,
		},
		SearchLimit:    cfg.Retrieval.SearchLimit,
		EmbeddingCache: cache.New("embeddings", cfg.Retrieval.EmbeddingCacheMax),
	}, logger)

	fallbackHandler := fallback.NewHandler(engine, parser, openaiClient, cfg.Fallback, logger)
	webSearchClient := websearch.NewClient(openaiClient, cache.New("web_search", cfg.Cache.MaxEntries), logger)
	responder := response.NewGenerator(openaiClient, logger)

	return pipeline.New(parser, validator, engine, fallbackHandler, webSearchClient, responder,
		nil, nil, pipeline.Options{MaxResults: cfg.Retrieval.MaxResults}, logger), nil
}

// printResult renders a readable summary for terminal use
func printResult(result *pipeline.Result) {
	fmt.Println(result.NaturalResponse)

	if len(result.Recommendations) > 0 {
		fmt.Println()
		for i, rec := range result.Recommendations {
			line := fmt.Sprintf("%d. %s at %s", i+1, response.FormatDishName(rec.DishName), rec.RestaurantName)
			if rec.Rating > 0 {
				line += fmt.Sprintf(" (%.1f stars)", rec.Rating)
			}
			fmt.Println(line)
		}
	}

	if len(result.Cards) > 0 {
		fmt.Println()
		for i, card := range result.Cards {
			line := fmt.Sprintf("%d. %s", i+1, card.RestaurantName)
			if card.DishName != "" {
				line += " - " + response.FormatDishName(card.DishName)
			}
			fmt.Println(line)
		}
	}

	if result.FallbackUsed {
		fmt.Printf("\n(fallback: %s)\n", result.FallbackReason)
	}
	fmt.Printf("(confidence %.2f, %.2fs)\n", result.ConfidenceScore, result.ProcessingTime)
}
