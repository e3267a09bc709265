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

import "strings"

// LocationKind distinguishes how a location string resolved.
type LocationKind string

const (
	LocationCity         LocationKind = "city"
	LocationNeighborhood LocationKind = "neighborhood"
	LocationUnknown      LocationKind = "unknown"
	LocationUnsupported  LocationKind = "unsupported"
)

// LocationInfo is the result of resolving a raw location string.
type LocationInfo struct {
	Original     string
	City         string
	Neighborhood string
	Kind         LocationKind
	Confidence   float64
}

type locationMapping struct {
	kind       LocationKind
	parentCity string
	confidence float64
}

type locationEntry struct {
	name string
	locationMapping
}

// locationTable lists supported location strings with their parent city.
// Order matters: the partial-match fallback in ResolveLocation scans it
// top to bottom and takes the first hit, so exact city names come before
// their neighborhoods. Neighborhood coverage is Manhattan-heavy because
// that is where most ingested restaurant data lives.
var locationTable = []locationEntry{
	{"manhattan", locationMapping{LocationCity, "Manhattan", 1.0}},
	{"nyc", locationMapping{LocationCity, "Manhattan", 0.9}},
	{"new york city", locationMapping{LocationCity, "Manhattan", 0.9}},
	{"new york", locationMapping{LocationCity, "Manhattan", 0.8}},

	{"times square", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"hell's kitchen", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"hells kitchen", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"midtown", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"midtown west", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"midtown east", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"soho", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"tribeca", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"greenwich village", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"west village", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"east village", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"lower east side", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"upper west side", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"upper east side", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"chinatown", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"little italy", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"financial district", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"wall street", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"chelsea", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"flatiron", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"gramercy", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"murray hill", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"kips bay", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"union square", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"nolita", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"bowery", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"two bridges", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"battery park", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"downtown", locationMapping{LocationNeighborhood, "Manhattan", 0.8}},
	{"uptown", locationMapping{LocationNeighborhood, "Manhattan", 0.7}},
	{"downtown manhattan", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"midtown manhattan", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},
	{"uptown manhattan", locationMapping{LocationNeighborhood, "Manhattan", 1.0}},

	{"jersey city", locationMapping{LocationCity, "Jersey City", 1.0}},
	{"jc", locationMapping{LocationCity, "Jersey City", 0.9}},

	{"downtown jersey city", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"journal square", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"the heights", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"heights", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"grove street", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"exchange place", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"paulus hook", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},
	{"newport", locationMapping{LocationNeighborhood, "Jersey City", 1.0}},

	{"hoboken", locationMapping{LocationCity, "Hoboken", 1.0}},
	{"downtown hoboken", locationMapping{LocationNeighborhood, "Hoboken", 1.0}},
	{"uptown hoboken", locationMapping{LocationNeighborhood, "Hoboken", 1.0}},
	{"midtown hoboken", locationMapping{LocationNeighborhood, "Hoboken", 1.0}},
	{"washington street", locationMapping{LocationNeighborhood, "Hoboken", 1.0}},
}

// supportedLocations indexes locationTable for exact lookups.
var supportedLocations = func() map[string]locationMapping {
	m := make(map[string]locationMapping, len(locationTable))
	for _, e := range locationTable {
		m[e.name] = e.locationMapping
	}
	return m
}()

// unsupportedLocations trip the out-of-scope path immediately rather than
// falling through to fuzzy matching.
var unsupportedLocations = map[string]bool{
	"san francisco": true, "sf": true, "bay area": true, "california": true, "ca": true,
	"brooklyn": true, "queens": true, "bronx": true, "staten island": true,
	"newark":      true,
	"los angeles": true, "la": true, "chicago": true, "boston": true,
	"washington dc": true, "dc": true,
}

// ResolveLocation maps a raw location string to a supported city and optional
// neighborhood. Unknown and unsupported inputs resolve with an empty City.
func ResolveLocation(raw string) LocationInfo {
	if raw == "" {
		return LocationInfo{Kind: LocationUnknown}
	}

	lower := strings.ToLower(strings.TrimSpace(raw))

	if isUnsupportedLocation(lower) {
		return LocationInfo{Original: raw, Kind: LocationUnsupported, Confidence: 1.0}
	}

	if m, ok := supportedLocations[lower]; ok {
		info := LocationInfo{
			Original:   raw,
			City:       m.parentCity,
			Kind:       m.kind,
			Confidence: m.confidence,
		}
		if m.kind == LocationNeighborhood {
			info.Neighborhood = lower
		}
		return info
	}

	// Compound strings like "manhattan times square": find a city word span
	// followed by a neighborhood span in the same parent city.
	words := strings.Fields(lower)
	if len(words) >= 2 {
		for i := range words {
			for j := i + 1; j <= len(words); j++ {
				city := strings.Join(words[:i], " ")
				hood := strings.Join(words[i:j], " ")

				cm, cityOK := supportedLocations[city]
				hm, hoodOK := supportedLocations[hood]
				if cityOK && hoodOK && cm.kind == LocationCity &&
					hm.kind == LocationNeighborhood && cm.parentCity == hm.parentCity {
					return LocationInfo{
						Original:     raw,
						City:         cm.parentCity,
						Neighborhood: hood,
						Kind:         LocationNeighborhood,
						Confidence:   hm.confidence,
					}
				}
			}
		}
	}

	// Partial match with reduced confidence. Scans the ordered table so an
	// ambiguous input always resolves to the same entry.
	for _, e := range locationTable {
		if strings.Contains(e.name, lower) || strings.Contains(lower, e.name) || fuzzyLocationMatch(lower, e.name) {
			info := LocationInfo{
				Original:   raw,
				City:       e.parentCity,
				Kind:       e.kind,
				Confidence: e.confidence * 0.8,
			}
			if e.kind == LocationNeighborhood {
				info.Neighborhood = e.name
			}
			return info
		}
	}

	return LocationInfo{Original: raw, Kind: LocationUnknown}
}

// SupportedCities lists the cities the service has ingested data for.
func SupportedCities() []string {
	return []string{"Manhattan", "Jersey City", "Hoboken"}
}

func isUnsupportedLocation(lower string) bool {
	if unsupportedLocations[lower] {
		return true
	}
	for unsupported := range unsupportedLocations {
		if strings.Contains(lower, unsupported) && strings.Contains(unsupported, " ") {
			return true
		}
	}
	if _, ok := supportedLocations[lower]; ok {
		return false
	}
	for _, word := range strings.Fields(lower) {
		for unsupported := range unsupportedLocations {
			for _, uw := range strings.Fields(unsupported) {
				if word == uw {
					return true
				}
			}
		}
	}
	return false
}

func fuzzyLocationMatch(a, b string) bool {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 || len(bw) == 0 {
		return false
	}
	overlap := 0
	for _, w := range aw {
		for _, kw := range bw {
			if w == kw {
				overlap++
				break
			}
		}
	}
	threshold := len(aw)
	if len(bw) < threshold {
		threshold = len(bw)
	}
	return float64(overlap) >= float64(threshold)*0.7
}
