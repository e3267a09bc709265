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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Config represents the complete application configuration
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	Scope     ScopeConfig     `mapstructure:"scope"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey             string  `mapstructure:"apikey"`
	Endpoint           string  `mapstructure:"endpoint"`
	ChatModel          string  `mapstructure:"chat_model"`
	EmbeddingModel     string  `mapstructure:"embedding_model"`
	EmbeddingDimension int     `mapstructure:"embedding_dimension"`
	Temperature        float64 `mapstructure:"temperature"`
}

// MilvusConfig contains the hosted vector database configuration. An empty
// URI disables vector search; the retrieval engine then degrades to
// LLM-generated recommendations.
type MilvusConfig struct {
	URI                    string `mapstructure:"uri"`
	Token                  string `mapstructure:"token"`
	NeighborhoodCollection string `mapstructure:"neighborhood_collection"`
	DishCollection         string `mapstructure:"dish_collection"`
	RestaurantCollection   string `mapstructure:"restaurant_collection"`
}

// ScopeConfig defines which cities and cuisines the service answers for
type ScopeConfig struct {
	SupportedCities   []string `mapstructure:"supported_cities"`
	SupportedCuisines []string `mapstructure:"supported_cuisines"`
}

// RetrievalConfig contains retrieval-specific settings
type RetrievalConfig struct {
	MaxResults        int `mapstructure:"max_results"`
	SearchLimit       int `mapstructure:"search_limit"`
	EmbeddingCacheMax int `mapstructure:"embedding_cache_max"`
}

// RelaxationTier is one step of the criteria-relaxation ladder
type RelaxationTier struct {
	MinRating  float64 `mapstructure:"min_rating"`
	MinReviews int     `mapstructure:"min_reviews"`
}

// FallbackConfig carries the confidence multipliers and floors applied by
// each fallback strategy plus the criteria-relaxation tiers.
type FallbackConfig struct {
	RelaxationTiers []RelaxationTier `mapstructure:"relaxation_tiers"`

	CriteriaMultiplier             float64 `mapstructure:"criteria_multiplier"`
	CriteriaFloor                  float64 `mapstructure:"criteria_floor"`
	SubstitutionCuisineMultiplier  float64 `mapstructure:"substitution_cuisine_multiplier"`
	SubstitutionLocationMultiplier float64 `mapstructure:"substitution_location_multiplier"`
	SubstitutionFloor              float64 `mapstructure:"substitution_floor"`
	GeographicMultiplier           float64 `mapstructure:"geographic_multiplier"`
	GeographicFloor                float64 `mapstructure:"geographic_floor"`
	CuisineRelaxMultiplier         float64 `mapstructure:"cuisine_relax_multiplier"`
	CuisineRelaxFloor              float64 `mapstructure:"cuisine_relax_floor"`
	CreativeMultiplier             float64 `mapstructure:"creative_multiplier"`
	CreativeFloor                  float64 `mapstructure:"creative_floor"`
	GenericMultiplier              float64 `mapstructure:"generic_multiplier"`
	GenericFloor                   float64 `mapstructure:"generic_floor"`
}

// CacheConfig contains TTLs and size bounds for the in-memory caches
type CacheConfig struct {
	ParsedQueryTTL      time.Duration `mapstructure:"parsed_query_ttl"`
	ParsedQueryRegexTTL time.Duration `mapstructure:"parsed_query_regex_ttl"`
	WebSearchTTL        time.Duration `mapstructure:"web_search_ttl"`
	MaxEntries          int           `mapstructure:"max_entries"`
}

// StatsConfig contains the query-log store configuration
type StatsConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SWEETPICK")

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// OpenAI defaults
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimension", 1536)
	v.SetDefault("openai.temperature", 0.3)

	// Milvus defaults
	v.SetDefault("milvus.neighborhood_collection", "discovery_neighborhood_analysis")
	v.SetDefault("milvus.dish_collection", "discovery_popular_dishes")
	v.SetDefault("milvus.restaurant_collection", "discovery_famous_restaurants")

	// Scope defaults
	v.SetDefault("scope.supported_cities", []string{"Manhattan", "Jersey City", "Hoboken"})
	v.SetDefault("scope.supported_cuisines", []string{"Italian", "Indian", "Chinese", "American", "Mexican"})

	// Retrieval defaults
	v.SetDefault("retrieval.max_results", 5)
	v.SetDefault("retrieval.search_limit", 20)
	v.SetDefault("retrieval.embedding_cache_max", 500)

	// Fallback defaults
	v.SetDefault("fallback.relaxation_tiers", []map[string]interface{}{
		{"min_rating": 4.2, "min_reviews": 500},
		{"min_rating": 4.0, "min_reviews": 250},
		{"min_rating": 3.8, "min_reviews": 100},
	})
	v.SetDefault("fallback.criteria_multiplier", 0.8)
	v.SetDefault("fallback.criteria_floor", 0.3)
	v.SetDefault("fallback.substitution_cuisine_multiplier", 0.9)
	v.SetDefault("fallback.substitution_location_multiplier", 0.85)
	v.SetDefault("fallback.substitution_floor", 0.4)
	v.SetDefault("fallback.geographic_multiplier", 0.85)
	v.SetDefault("fallback.geographic_floor", 0.4)
	v.SetDefault("fallback.cuisine_relax_multiplier", 0.8)
	v.SetDefault("fallback.cuisine_relax_floor", 0.35)
	v.SetDefault("fallback.creative_multiplier", 0.7)
	v.SetDefault("fallback.creative_floor", 0.3)
	v.SetDefault("fallback.generic_multiplier", 0.6)
	v.SetDefault("fallback.generic_floor", 0.25)

	// Cache defaults
	v.SetDefault("cache.parsed_query_ttl", "6h")
	v.SetDefault("cache.parsed_query_regex_ttl", "2h")
	v.SetDefault("cache.web_search_ttl", "6h")
	v.SetDefault("cache.max_entries", 1000)

	// Stats defaults
	v.SetDefault("stats.db_path", "./sweetpick.db")

	// Server defaults
	v.SetDefault("server.port", 8080)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path. An explicitly requested
// file must exist; the default locations are optional so the service can run
// on environment variables alone.
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"OPENAI_API_KEY":  "openai.apikey",
		"OPENAI_ENDPOINT": "openai.endpoint",
		"OPENAI_MODEL":    "openai.chat_model",
		"MILVUS_URI":      "milvus.uri",
		"MILVUS_TOKEN":    "milvus.token",
		"STATS_DB_PATH":   "stats.db_path",
		"PORT":            "server.port",
		"LOG_LEVEL":       "logging.level",
		"LOG_FORMAT":      "logging.format",
		"LOG_OUTPUT":      "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	if config.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	if config.OpenAI.EmbeddingDimension <= 0 {
		errors = append(errors, ValidationError{
			Field:   "openai.embedding_dimension",
			Message: "embedding_dimension must be greater than 0",
		})
	}

	if config.OpenAI.Temperature < 0 || config.OpenAI.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "openai.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if len(config.Scope.SupportedCities) == 0 {
		errors = append(errors, ValidationError{
			Field:   "scope.supported_cities",
			Message: "at least one supported city is required",
		})
	}

	if len(config.Scope.SupportedCuisines) == 0 {
		errors = append(errors, ValidationError{
			Field:   "scope.supported_cuisines",
			Message: "at least one supported cuisine is required",
		})
	}

	if config.Retrieval.MaxResults <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.max_results",
			Message: "max_results must be greater than 0",
		})
	}

	if config.Retrieval.SearchLimit < config.Retrieval.MaxResults {
		errors = append(errors, ValidationError{
			Field:   "retrieval.search_limit",
			Message: "search_limit must be at least max_results",
		})
	}

	if len(config.Fallback.RelaxationTiers) == 0 {
		errors = append(errors, ValidationError{
			Field:   "fallback.relaxation_tiers",
			Message: "at least one relaxation tier is required",
		})
	}

	for i := 1; i < len(config.Fallback.RelaxationTiers); i++ {
		if config.Fallback.RelaxationTiers[i].MinRating > config.Fallback.RelaxationTiers[i-1].MinRating {
			errors = append(errors, ValidationError{
				Field:   "fallback.relaxation_tiers",
				Message: "relaxation tiers must loosen monotonically (min_rating must not increase)",
			})
			break
		}
	}

	for field, m := range map[string]float64{
		"fallback.criteria_multiplier":              config.Fallback.CriteriaMultiplier,
		"fallback.substitution_cuisine_multiplier":  config.Fallback.SubstitutionCuisineMultiplier,
		"fallback.substitution_location_multiplier": config.Fallback.SubstitutionLocationMultiplier,
		"fallback.geographic_multiplier":            config.Fallback.GeographicMultiplier,
		"fallback.cuisine_relax_multiplier":         config.Fallback.CuisineRelaxMultiplier,
		"fallback.creative_multiplier":              config.Fallback.CreativeMultiplier,
		"fallback.generic_multiplier":               config.Fallback.GenericMultiplier,
	} {
		if m <= 0 || m > 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "confidence multiplier must be in (0, 1]",
			})
		}
	}

	for field, f := range map[string]float64{
		"fallback.criteria_floor":      config.Fallback.CriteriaFloor,
		"fallback.substitution_floor":  config.Fallback.SubstitutionFloor,
		"fallback.geographic_floor":    config.Fallback.GeographicFloor,
		"fallback.cuisine_relax_floor": config.Fallback.CuisineRelaxFloor,
		"fallback.creative_floor":      config.Fallback.CreativeFloor,
		"fallback.generic_floor":       config.Fallback.GenericFloor,
	} {
		if f < 0 || f > 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "confidence floor must be between 0 and 1",
			})
		}
	}

	if config.Cache.MaxEntries <= 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.max_entries",
			Message: "max_entries must be greater than 0",
		})
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if config.Stats.DBPath == "" {
		errors = append(errors, ValidationError{
			Field:   "stats.db_path",
			Message: "stats database path is required",
		})
	} else if err := validateDirectoryExists(filepath.Dir(config.Stats.DBPath)); err != nil {
		errors = append(errors, ValidationError{
			Field:   "stats.db_path",
			Message: fmt.Sprintf("stats database directory does not exist: %s", filepath.Dir(config.Stats.DBPath)),
		})
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Milvus.Token != "" {
		masked.Milvus.Token = maskValue(masked.Milvus.Token)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Printf("Config file changed: %s\n", e.Name)

		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config: %v\n", err)
			return
		}

		callback(config)
	})

	return nil
}
