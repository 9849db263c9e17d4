package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAll(t *testing.T) {
	all := All()
	seen := make(map[int]bool)
	for i, m := range all {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.False(t, seen[m.Version])
		seen[m.Version] = true
		assert.Contains(t, m.Up, "IF NOT EXISTS")
		assert.Contains(t, m.Up, "ReplacingMergeTree(updated_at)")
		assert.True(t, strings.HasPrefix(m.Down, "DROP TABLE IF EXISTS"))
	}
	assert.Contains(t, all[0].Up, "ORDER BY (unit_id, cip_code)")
	assert.Contains(t, all[1].Up, "ORDER BY (state, soc_code)")
}
