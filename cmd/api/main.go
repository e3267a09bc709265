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

// Package main provides the SweetPick recommendation API. It answers
// natural-language restaurant and dish queries from the discovery
// collections, with LLM fallbacks when vector search comes up short.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/sweetpick/internal/cache"
	"github.com/your-org/sweetpick/internal/config"
	"github.com/your-org/sweetpick/internal/fallback"
	"github.com/your-org/sweetpick/internal/health"
	"github.com/your-org/sweetpick/internal/milvus"
	"github.com/your-org/sweetpick/internal/openai"
	"github.com/your-org/sweetpick/internal/pipeline"
	"github.com/your-org/sweetpick/internal/query"
	"github.com/your-org/sweetpick/internal/response"
	"github.com/your-org/sweetpick/internal/retrieval"
	"github.com/your-org/sweetpick/internal/scope"
	"github.com/your-org/sweetpick/internal/stats"
	"github.com/your-org/sweetpick/internal/websearch"
)

const (
	// HealthCheckTimeout defines the timeout for health checks
	HealthCheckTimeout = 5 * time.Second
	// QueryRequestTimeout defines the timeout for query requests
	QueryRequestTimeout = 30 * time.Second
	// ServiceVersion is reported by the health endpoint
	ServiceVersion = "1.0.0"
)

// QueryRequest represents the JSON payload for query requests
type QueryRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"max_results,omitempty"`
}

// ServiceDependencies holds initialized service dependencies
type ServiceDependencies struct {
	Pipeline     *pipeline.Pipeline
	MilvusClient *milvus.Client
	OpenAIClient *openai.Client
	Collector    *stats.Collector
	QueryLog     *stats.QueryLog
	Logger       *zap.Logger
	Config       *config.Config
}

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	maskedConfig := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", "api"),
		zap.String("environment", os.Getenv("ENVIRONMENT")),
		zap.String("milvus_uri", maskedConfig.Milvus.URI),
		zap.String("openai_api_key", maskedConfig.OpenAI.APIKey),
		zap.Strings("supported_cities", maskedConfig.Scope.SupportedCities),
		zap.Strings("supported_cuisines", maskedConfig.Scope.SupportedCuisines),
		zap.Int("max_results", maskedConfig.Retrieval.MaxResults),
		zap.String("stats_db_path", maskedConfig.Stats.DBPath),
	)

	deps, err := initializeDependencies(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.QueryLog.Close(); err != nil {
			logger.Warn("Failed to close query log", zap.Error(err))
		}
	}()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	healthManager := health.NewManager("sweetpick-api", ServiceVersion, logger)
	setupHealthChecks(healthManager, deps)

	router.GET("/health", gin.WrapH(healthManager.HTTPHandler()))
	router.POST("/query", createQueryHandler(deps))
	router.GET("/stats", createStatsHandler(deps))
	router.GET("/stats/recent", createRecentQueriesHandler(deps))

	port := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting SweetPick API",
		zap.String("port", port),
		zap.Bool("vector_search_enabled", deps.MilvusClient != nil),
	)

	if err := router.Run(port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// initializeLogger creates a logger based on configuration settings
func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	switch cfg.Logging.Level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	if cfg.Logging.Output == "file" {
		zapConfig.OutputPaths = []string{"sweetpick-api.log"}
		zapConfig.ErrorOutputPaths = []string{"sweetpick-api.log"}
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	return zapConfig.Build()
}

// initializeDependencies wires the full query pipeline
func initializeDependencies(cfg *config.Config, logger *zap.Logger) (*ServiceDependencies, error) {
	logger.Info("Initializing service dependencies")

	openaiClient, err := openai.NewClient(cfg.OpenAI.APIKey, openai.Options{
		ChatModel:          cfg.OpenAI.ChatModel,
		EmbeddingModel:     cfg.OpenAI.EmbeddingModel,
		EmbeddingDimension: cfg.OpenAI.EmbeddingDimension,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	// An empty Milvus URI runs the service without vector search; retrieval
	// then degrades to LLM-generated recommendations.
	var milvusClient *milvus.Client
	if cfg.Milvus.URI != "" {
		milvusClient, err = milvus.NewClient(cfg.Milvus.URI, cfg.Milvus.Token, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Milvus client: %w", err)
		}
	} else {
		logger.Warn("Milvus URI not configured, vector search disabled")
	}

	queryLog, err := stats.NewQueryLog(cfg.Stats.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query log: %w", err)
	}

	parseCache := cache.New("parsed_queries", cfg.Cache.MaxEntries)
	embeddingCache := cache.New("embeddings", cfg.Retrieval.EmbeddingCacheMax)
	webSearchCache := cache.New("web_search", cfg.Cache.MaxEntries)
	responseCache := cache.New("responses", cfg.Cache.MaxEntries)

	parser := query.NewParser(openaiClient, parseCache, query.ParserOptions{
		LLMCacheTTL:   cfg.Cache.ParsedQueryTTL,
		RegexCacheTTL: cfg.Cache.ParsedQueryRegexTTL,
	}, logger)

	validator := scope.NewValidator(cfg.Scope.SupportedCities, cfg.Scope.SupportedCuisines, openaiClient, logger)

	var store retrieval.VectorStore
	if milvusClient != nil {
		store = milvusClient
	}
	engine := retrieval.NewEngine(store, openaiClient, openaiClient, retrieval.Options{
		Collections: retrieval.Collections{
			Neighborhood:      cfg.Milvus.NeighborhoodCollection,
			PopularDishes:     cfg.Milvus.DishCollection,
			FamousRestaurants: cfg.Milvus.RestaurantCollection,
		},
		SearchLimit:    cfg.Retrieval.SearchLimit,
		EmbeddingCache: embeddingCache,
	}, logger)

	fallbackHandler := fallback.NewHandler(engine, parser, openaiClient, cfg.Fallback, logger)
	webSearchClient := websearch.NewClient(openaiClient, webSearchCache, logger)
	responder := response.NewGenerator(openaiClient, logger)
	collector := stats.NewCollector()

	pipe := pipeline.New(parser, validator, engine, fallbackHandler, webSearchClient, responder,
		collector, queryLog, pipeline.Options{
			MaxResults:    cfg.Retrieval.MaxResults,
			ResponseCache: responseCache,
		}, logger)

	logger.Info("Service dependencies initialized successfully")

	return &ServiceDependencies{
		Pipeline:     pipe,
		MilvusClient: milvusClient,
		OpenAIClient: openaiClient,
		Collector:    collector,
		QueryLog:     queryLog,
		Logger:       logger,
		Config:       cfg,
	}, nil
}

// setupHealthChecks configures dependency health checks
func setupHealthChecks(manager *health.Manager, deps *ServiceDependencies) {
	if deps.MilvusClient != nil {
		manager.AddChecker("milvus", health.ExternalServiceChecker("milvus", deps.MilvusClient.HealthCheck))
	}

	manager.AddChecker("openai", health.ExternalServiceChecker("openai", deps.OpenAIClient.Ping))
	manager.AddChecker("stats", health.DatabaseChecker("stats", deps.QueryLog.HealthCheck))

	manager.SetTimeout(HealthCheckTimeout)
}

// createQueryHandler creates the main recommendation endpoint handler
func createQueryHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), QueryRequestTimeout)
		defer cancel()

		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			deps.Logger.Error("Invalid query request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request format: " + err.Error(),
			})
			return
		}

		deps.Logger.Info("Processing query",
			zap.String("query", req.Query),
			zap.Int("max_results", req.MaxResults),
			zap.String("client_ip", c.ClientIP()),
		)

		result := deps.Pipeline.Recommend(ctx, req.Query, req.MaxResults)

		deps.Logger.Info("Query completed",
			zap.String("query", req.Query),
			zap.String("query_type", result.QueryType),
			zap.Int("recommendations", len(result.Recommendations)),
			zap.Bool("fallback_used", result.FallbackUsed),
			zap.Bool("cached", result.Cached),
			zap.Float64("confidence", result.ConfidenceScore),
			zap.Float64("processing_time", result.ProcessingTime),
		)

		c.JSON(http.StatusOK, result)
	}
}

// createStatsHandler exposes the rolling request counters
func createStatsHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Collector.Snapshot())
	}
}

// createRecentQueriesHandler exposes the persisted query log
func createRecentQueriesHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		entries, err := deps.QueryLog.Recent(limit)
		if err != nil {
			deps.Logger.Error("Failed to read query log", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to read query log",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"queries": entries,
			"count":   len(entries),
		})
	}
}
