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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-token", zaptest.NewLogger(t))
	require.NoError(t, err)
	return server, client
}

func TestNewClientRequiresURI(t *testing.T) {
	_, err := NewClient("", "", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/vectordb/entities/search", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "discovery_famous_restaurants", body["collectionName"])
		assert.Equal(t, `city == "Manhattan"`, body["filter"])

		_, _ = w.Write([]byte(`{
			"code": 0,
			"data": [
				{"restaurant_name": "Via Carota", "restaurant_rating": 4.6, "distance": 0.92},
				{"restaurant_name": "Lilia", "restaurant_rating": 4.5, "distance": 0.88}
			]
		}`))
	})

	hits, err := client.Search(context.Background(), SearchParams{
		Collection:   "discovery_famous_restaurants",
		Vector:       []float32{0.1, 0.2, 0.3},
		Filter:       `city == "Manhattan"`,
		Limit:        5,
		OutputFields: []string{"restaurant_name", "restaurant_rating"},
	})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0.92, hits[0].Score)
	assert.Equal(t, "Via Carota", GetString(hits[0].Entity, "restaurant_name", ""))
	assert.Equal(t, 4.6, GetFloat(hits[0].Entity, "restaurant_rating", 0))
}

func TestSearchRequiresVector(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "data": []}`))
	})

	_, err := client.Search(context.Background(), SearchParams{Collection: "c"})
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/vectordb/entities/query", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"code": 0,
			"data": [{"dish_name": "Chicken Biryani", "review_count": 412}]
		}`))
	})

	rows, err := client.Query(context.Background(), "discovery_popular_dishes", `cuisine_type == "Indian"`, 10, []string{"dish_name"})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Chicken Biryani", GetString(rows[0], "dish_name", ""))
	assert.Equal(t, 412, GetInt(rows[0], "review_count", 0))
}

func TestHasCollection(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/vectordb/collections/list", r.URL.Path)
		_, _ = w.Write([]byte(`{"code": 0, "data": ["discovery_popular_dishes", "discovery_famous_restaurants"]}`))
	})

	ok, err := client.HasCollection(context.Background(), "discovery_popular_dishes")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasCollection(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAPIErrorCode(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": 1100, "message": "collection not found"}`))
	})

	_, err := client.Query(context.Background(), "missing", "", 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection not found")
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code": 0, "data": []}`))
	})

	_, err := client.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": 1, "message": "bad request"}`))
	})

	_, err := client.ListCollections(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestHealthCheck(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code": 0, "data": []}`))
	})

	assert.NoError(t, client.HealthCheck(context.Background()))
}
