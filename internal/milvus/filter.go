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
	"fmt"
	"strings"
)

// Filter builds boolean filter expressions for search and query calls.
// Clauses are combined with "and"; values are quote-escaped.
type Filter struct {
	clauses []string
}

// NewFilter returns an empty filter
func NewFilter() *Filter {
	return &Filter{}
}

// Eq adds an equality clause on a string field
func (f *Filter) Eq(field, value string) *Filter {
	f.clauses = append(f.clauses, fmt.Sprintf(`%s == "%s"`, field, escape(value)))
	return f
}

// Like adds a case-preserving substring clause
func (f *Filter) Like(field, substring string) *Filter {
	f.clauses = append(f.clauses, fmt.Sprintf(`%s like "%%%s%%"`, field, escape(substring)))
	return f
}

// Gte adds a >= clause on a numeric field
func (f *Filter) Gte(field string, value float64) *Filter {
	f.clauses = append(f.clauses, fmt.Sprintf("%s >= %g", field, value))
	return f
}

// Empty reports whether no clauses were added
func (f *Filter) Empty() bool {
	return len(f.clauses) == 0
}

// Expr renders the filter expression, or "" when empty
func (f *Filter) Expr() string {
	return strings.Join(f.clauses, " and ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
