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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocationCities(t *testing.T) {
	info := ResolveLocation("Manhattan")
	assert.Equal(t, "Manhattan", info.City)
	assert.Equal(t, LocationCity, info.Kind)
	assert.Equal(t, 1.0, info.Confidence)

	info = ResolveLocation("nyc")
	assert.Equal(t, "Manhattan", info.City)
	assert.Equal(t, 0.9, info.Confidence)

	info = ResolveLocation("Jersey City")
	assert.Equal(t, "Jersey City", info.City)
}

func TestResolveLocationNeighborhoods(t *testing.T) {
	info := ResolveLocation("Times Square")
	assert.Equal(t, "Manhattan", info.City)
	assert.Equal(t, "times square", info.Neighborhood)
	assert.Equal(t, LocationNeighborhood, info.Kind)

	info = ResolveLocation("hell's kitchen")
	assert.Equal(t, "Manhattan", info.City)

	info = ResolveLocation("journal square")
	assert.Equal(t, "Jersey City", info.City)

	info = ResolveLocation("washington street")
	assert.Equal(t, "Hoboken", info.City)
}

func TestResolveLocationCompound(t *testing.T) {
	info := ResolveLocation("manhattan times square")
	assert.Equal(t, "Manhattan", info.City)
	assert.Equal(t, "times square", info.Neighborhood)
	assert.Equal(t, LocationNeighborhood, info.Kind)
}

func TestResolveLocationPartialMatchIsDeterministic(t *testing.T) {
	// Ambiguous input matches several table entries; the first one wins on
	// every call.
	first := ResolveLocation("manhattan or hoboken")
	assert.Equal(t, "Manhattan", first.City)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, ResolveLocation("manhattan or hoboken"))
	}
}

func TestResolveLocationUnsupported(t *testing.T) {
	for _, loc := range []string{"Brooklyn", "San Francisco", "chicago", "newark"} {
		info := ResolveLocation(loc)
		assert.Equal(t, LocationUnsupported, info.Kind, "location: %s", loc)
		assert.Empty(t, info.City)
	}
}

func TestResolveLocationUnknown(t *testing.T) {
	info := ResolveLocation("springfield")
	assert.Equal(t, LocationUnknown, info.Kind)
	assert.Empty(t, info.City)
}

func TestResolveLocationEmpty(t *testing.T) {
	info := ResolveLocation("")
	assert.Equal(t, LocationUnknown, info.Kind)
	assert.Equal(t, 0.0, info.Confidence)
}

func TestSupportedCities(t *testing.T) {
	assert.Equal(t, []string{"Manhattan", "Jersey City", "Hoboken"}, SupportedCities())
}
