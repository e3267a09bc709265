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

package milvus

import (
	"reflect"
	"strings"
)

// Entity gives uniform field access over search hits regardless of how the
// row is backed (decoded JSON map or a typed struct).
type Entity interface {
	// Get returns the raw value of a field and whether it is present.
	Get(field string) (interface{}, bool)
}

// MapEntity is an Entity backed by a decoded JSON object
type MapEntity map[string]interface{}

// Get implements Entity
func (m MapEntity) Get(field string) (interface{}, bool) {
	v, ok := m[field]
	return v, ok
}

// structEntity adapts a struct (or pointer to struct) via its json tags
type structEntity struct {
	value reflect.Value
}

// NewStructEntity wraps a struct so its exported fields are addressable by
// json tag name (falling back to the Go field name).
func NewStructEntity(v interface{}) Entity {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return &structEntity{value: rv}
}

// Get implements Entity
func (s *structEntity) Get(field string) (interface{}, bool) {
	if s.value.Kind() != reflect.Struct {
		return nil, false
	}

	t := s.value.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName != "" && tagName != "-" {
				name = tagName
			}
		}

		if name == field {
			return s.value.Field(i).Interface(), true
		}
	}
	return nil, false
}

// GetString reads a string field, returning def when absent or mistyped
func GetString(e Entity, field, def string) string {
	v, ok := e.Get(field)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// GetFloat reads a numeric field, returning def when absent or mistyped.
// JSON numbers decode as float64; int-typed struct fields are widened.
func GetFloat(e Entity, field string, def float64) float64 {
	v, ok := e.Get(field)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// GetInt reads an integer field, truncating float-decoded JSON numbers
func GetInt(e Entity, field string, def int) int {
	v, ok := e.Get(field)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return def
}
