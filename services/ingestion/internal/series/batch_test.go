package series

import (
	"fmt"
	"testing"

	"tradewages/services/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRequests(n int) []Request {
	reqs := make([]Request, n)
	for i := range reqs {
		code := models.OccupationCode(fmt.Sprintf("%02d-%04d", 11+i%80, i))
		reqs[i] = Request{SeriesID: fmt.Sprintf("series-%03d", i), Code: code}
	}
	return reqs
}

func TestPartition_CoversInputInOrder(t *testing.T) {
	for _, tc := range []struct{ n, k int }{{1, 1}, {7, 3}, {50, 50}, {51, 50}, {120, 40}, {9, 10}} {
		reqs := makeRequests(tc.n)
		plan, err := Partition(reqs, tc.k)
		require.NoError(t, err)

		wantBatches := (tc.n + tc.k - 1) / tc.k
		assert.Equal(t, wantBatches, plan.Len(), "n=%d k=%d", tc.n, tc.k)

		var flat []string
		for _, b := range plan.Batches() {
			assert.LessOrEqual(t, len(b), tc.k)
			assert.NotEmpty(t, b)
			flat = append(flat, b...)
		}
		require.Len(t, flat, tc.n)
		for i, req := range reqs {
			assert.Equal(t, req.SeriesID, flat[i])
			code, ok := plan.Source(req.SeriesID)
			require.True(t, ok)
			assert.Equal(t, req.Code, code)
		}
		assert.Equal(t, tc.n, plan.Size())
	}
}

func TestPartition_Empty(t *testing.T) {
	plan, err := Partition(nil, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Len())
	assert.Empty(t, plan.Batches())

	_, ok := plan.Source("anything")
	assert.False(t, ok)
}

func TestPartition_InvalidCapacity(t *testing.T) {
	for _, k := range []int{0, -1, MaxBatchSize + 1} {
		_, err := Partition(makeRequests(3), k)
		assert.Error(t, err, k)
	}
}

func TestPartition_RepeatedIdentifier(t *testing.T) {
	reqs := []Request{
		{SeriesID: "a", Code: "51-4121"},
		{SeriesID: "b", Code: "49-9021"},
		{SeriesID: "a", Code: "51-4121"},
		{SeriesID: "c", Code: "47-2061"},
	}
	plan, err := Partition(reqs, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"a", "c"}}, plan.Batches())
	assert.Equal(t, 2, plan.Len())
	assert.Equal(t, 3, plan.Size())

	code, ok := plan.Source("a")
	require.True(t, ok)
	assert.Equal(t, models.OccupationCode("51-4121"), code)
}
