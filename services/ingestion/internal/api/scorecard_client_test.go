package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradewages/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScorecardClient_Paginates(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/schools.json", r.URL.Path)
		assert.Equal(t, "TX", q.Get("school.state"))
		assert.Equal(t, "scorecard-key", q.Get("api_key"))
		assert.Equal(t, scorecardFields, q.Get("fields"))
		pages = append(pages, q.Get("page"))

		switch q.Get("page") {
		case "0":
			writeJSON(t, w, map[string]interface{}{
				"metadata": map[string]int{"total": 5, "page": 0, "per_page": 2},
				"results": []map[string]interface{}{
					{"id": 1, "school.name": "A", "latest.programs.cip_4_digit": []map[string]string{{"code": "4805", "title": "Precision Metal Working."}}},
					{"id": 2, "school.name": "B"},
				},
			})
		case "1":
			w.WriteHeader(http.StatusBadGateway)
		default:
			writeJSON(t, w, map[string]interface{}{
				"metadata": map[string]int{"total": 5, "page": 2, "per_page": 2},
				"results":  []map[string]interface{}{{"id": 5, "school.name": "E"}},
			})
		}
	}))
	defer server.Close()

	client := newScorecardClient(zap.NewNop(), testConfig(server.URL), newMemoryCache())
	listing, err := client.FetchSchools(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2"}, pages)
	require.Len(t, listing.PageErrors, 1)
	assert.True(t, errors.Is(listing.PageErrors[0], errors.ErrTypeUpstreamUnavailable))
	assert.Contains(t, listing.PageErrors[0].Error(), "scorecard page 1")

	schools := listing.Schools
	require.Len(t, schools, 3)
	assert.Equal(t, 1, schools[0].ID)
	assert.Len(t, schools[0].SourcePrograms(), 1)
	assert.Equal(t, 5, schools[2].ID)
}

func TestScorecardClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newScorecardClient(zap.NewNop(), testConfig(server.URL), newMemoryCache())
	_, err := client.FetchSchools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeUpstreamUnavailable))
}

func TestNewProgramSource_FallsBackWithoutKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.ScorecardAPIKey = ""

	src, err := NewProgramSource(zap.NewNop(), cfg, newMemoryCache())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTypeUpstreamUnavailable))
	assert.False(t, src.Live())

	listing, err := src.FetchSchools(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listing.PageErrors)
	schools := listing.Schools
	require.Len(t, schools, 1)
	assert.Equal(t, "Texas State Technical College", schools[0].ToSchool().Name)
	assert.Len(t, schools[0].SourcePrograms(), 2)
}
