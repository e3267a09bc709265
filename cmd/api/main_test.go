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

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/your-org/sweetpick/internal/stats"
)

func TestQueryRequestValidation(t *testing.T) {
	tests := []struct {
		name          string
		requestBody   string
		expectedValid bool
	}{
		{
			name:          "Valid request with query",
			requestBody:   `{"query": "italian food in jersey city"}`,
			expectedValid: true,
		},
		{
			name:          "Valid request with max results",
			requestBody:   `{"query": "best pizza", "max_results": 3}`,
			expectedValid: true,
		},
		{
			name:          "Invalid request - missing query",
			requestBody:   `{"max_results": 5}`,
			expectedValid: false,
		},
		{
			name:          "Invalid request - empty query",
			requestBody:   `{"query": ""}`,
			expectedValid: false,
		},
		{
			name:          "Invalid JSON",
			requestBody:   `{"query": "test"`,
			expectedValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req QueryRequest
			err := json.Unmarshal([]byte(tt.requestBody), &req)

			if tt.expectedValid {
				if err != nil {
					t.Errorf("Expected valid JSON, got error: %v", err)
				}
				if req.Query == "" {
					t.Error("Expected non-empty query")
				}
			} else {
				if err == nil && req.Query != "" {
					t.Error("Expected invalid request, but got valid one")
				}
			}
		})
	}
}

func TestStatsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	collector := stats.NewCollector()
	collector.Record(stats.Request{
		Query:    "pizza in hoboken",
		Intent:   "location_dish",
		Duration: 50 * time.Millisecond,
	})

	deps := &ServiceDependencies{
		Collector: collector,
		Logger:    zap.NewNop(),
	}

	router := gin.New()
	router.GET("/stats", createStatsHandler(deps))

	req := httptest.NewRequest("GET", "/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}

	var snapshot map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Failed to parse stats response: %v", err)
	}

	if snapshot["total_queries"] != float64(1) {
		t.Errorf("Expected 1 total query, got %v", snapshot["total_queries"])
	}
}

func TestRecentQueriesHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	queryLog, err := stats.NewQueryLog(filepath.Join(t.TempDir(), "queries.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create query log: %v", err)
	}
	defer func() { _ = queryLog.Close() }()

	if err := queryLog.Record(stats.Request{Query: "tacos in manhattan", Intent: "location_cuisine"}); err != nil {
		t.Fatalf("Failed to record query: %v", err)
	}

	deps := &ServiceDependencies{
		QueryLog: queryLog,
		Logger:   zap.NewNop(),
	}

	router := gin.New()
	router.GET("/stats/recent", createRecentQueriesHandler(deps))

	req := httptest.NewRequest("GET", "/stats/recent?limit=10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}

	var body struct {
		Queries []stats.LogEntry `json:"queries"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if body.Count != 1 {
		t.Fatalf("Expected 1 logged query, got %d", body.Count)
	}
	if body.Queries[0].Query != "tacos in manhattan" {
		t.Errorf("Unexpected query in log: %s", body.Queries[0].Query)
	}
}
