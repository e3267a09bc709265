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

// Package llmjson extracts JSON payloads from LLM chat output, which often
// wraps them in markdown fences or conversational framing.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract locates the first JSON object or array inside raw and unmarshals it
// into v. It tolerates markdown code fences and leading/trailing prose.
func Extract(raw string, v interface{}) error {
	payload, err := Locate(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}
	return nil
}

// Locate returns the JSON object or array substring of raw without
// unmarshaling it.
func Locate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = stripFences(s)

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	open, closing := byte('{'), byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		open, closing = '[', ']'
	}
	if start == -1 {
		return "", fmt.Errorf("no JSON object or array found in response")
	}

	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON starting with %q", string(open))
	}
	return s[start : end+1], nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
