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

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGet(t *testing.T) {
	s := New("test", 10)

	s.Set("key", "value", time.Minute)

	got, ok := s.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s := New("test", 10)

	s.Set("short", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStoreNoExpiryWhenTTLZero(t *testing.T) {
	s := New("test", 10)

	s.Set("forever", 42, 0)
	time.Sleep(2 * time.Millisecond)

	got, ok := s.Get("forever")
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestStoreEviction(t *testing.T) {
	s := New("test", 3)

	for i := 0; i < 3; i++ {
		s.Set(fmt.Sprintf("key-%d", i), i, time.Minute)
		time.Sleep(time.Millisecond)
	}

	// Touch key-0 so key-1 becomes the eviction candidate.
	_, ok := s.Get("key-0")
	require.True(t, ok)

	s.Set("key-3", 3, time.Minute)

	assert.Equal(t, 3, s.Len())
	_, ok = s.Get("key-1")
	assert.False(t, ok)
	_, ok = s.Get("key-0")
	assert.True(t, ok)
}

func TestStoreCleanup(t *testing.T) {
	s := New("test", 10)

	s.Set("a", 1, time.Millisecond)
	s.Set("b", 2, time.Minute)
	time.Sleep(5 * time.Millisecond)

	removed := s.Cleanup()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestStoreStats(t *testing.T) {
	s := New("parsed_queries", 10)

	s.Set("a", 1, time.Minute)
	s.Get("a")
	s.Get("missing")

	stats := s.Stats()
	assert.Equal(t, "parsed_queries", stats["name"])
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.Equal(t, 1, stats["entries"])
}
