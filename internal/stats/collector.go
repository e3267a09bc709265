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

// Package stats tracks per-request counters for the /stats endpoint and
// persists a query log to SQLite for offline analysis.
package stats

import (
	"sync"
	"time"
)

// Request describes one handled recommendation request.
type Request struct {
	Query          string
	Intent         string
	ResultCount    int
	Confidence     float64
	FallbackUsed   bool
	FallbackReason string
	WebSearch      bool
	Cached         bool
	Duration       time.Duration
}

// Collector accumulates rolling in-memory counters. Safe for concurrent use.
type Collector struct {
	mu sync.RWMutex

	startedAt     time.Time
	totalQueries  int64
	cacheHits     int64
	fallbackUsed  int64
	webSearches   int64
	emptyResults  int64
	totalDuration time.Duration
	byIntent      map[string]int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		startedAt: time.Now(),
		byIntent:  make(map[string]int64),
	}
}

// Record adds one request to the counters.
func (c *Collector) Record(req Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalQueries++
	c.totalDuration += req.Duration
	if req.Cached {
		c.cacheHits++
	}
	if req.FallbackUsed {
		c.fallbackUsed++
	}
	if req.WebSearch {
		c.webSearches++
	}
	if req.ResultCount == 0 {
		c.emptyResults++
	}
	if req.Intent != "" {
		c.byIntent[req.Intent]++
	}
}

// Snapshot returns the current counters in a JSON-friendly shape.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	avgLatencyMs := float64(0)
	if c.totalQueries > 0 {
		avgLatencyMs = float64(c.totalDuration.Milliseconds()) / float64(c.totalQueries)
	}

	byIntent := make(map[string]int64, len(c.byIntent))
	for intent, count := range c.byIntent {
		byIntent[intent] = count
	}

	return map[string]interface{}{
		"uptime_seconds":    int64(time.Since(c.startedAt).Seconds()),
		"total_queries":     c.totalQueries,
		"cache_hits":        c.cacheHits,
		"fallback_used":     c.fallbackUsed,
		"web_searches":      c.webSearches,
		"empty_results":     c.emptyResults,
		"avg_latency_ms":    avgLatencyMs,
		"queries_by_intent": byIntent,
	}
}
