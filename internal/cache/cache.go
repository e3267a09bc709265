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

// Package cache provides a process-local TTL cache used for parsed queries,
// web-search responses, and query embeddings.
package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds a store when no explicit limit is given.
const DefaultMaxEntries = 1000

type entry struct {
	value      interface{}
	storedAt   time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

// Store is a mutex-guarded in-memory cache with per-entry TTLs and
// least-recently-used eviction once maxEntries is reached.
type Store struct {
	name       string
	maxEntries int

	mutex   sync.RWMutex
	entries map[string]*entry
	hits    int64
	misses  int64
}

// New creates a named cache store. maxEntries <= 0 applies DefaultMaxEntries.
func New(name string, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		name:       name,
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached value for key. Expired entries count as misses and
// are removed on access.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.entries[key]
	if !exists {
		s.misses++
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		s.misses++
		return nil, false
	}

	e.accessedAt = time.Now()
	s.hits++
	return e.value, true
}

// Set stores value under key. ttl <= 0 means the entry never expires.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}

	now := time.Now()
	e := &entry{value: value, storedAt: now, accessedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
}

// Delete removes key if present.
func (s *Store) Delete(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.entries, key)
}

// Len returns the number of live entries, including any not yet swept.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// Cleanup removes expired entries and returns how many were dropped.
func (s *Store) Cleanup() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Stats reports hit/miss counters and current size.
func (s *Store) Stats() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return map[string]interface{}{
		"name":        s.name,
		"entries":     len(s.entries),
		"max_entries": s.maxEntries,
		"hits":        s.hits,
		"misses":      s.misses,
	}
}

// evictOldest drops the least recently accessed entry. Caller holds the lock.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range s.entries {
		if oldestKey == "" || e.accessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.accessedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
