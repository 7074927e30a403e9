package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

func TestActiveIndex(t *testing.T) {
	idx := NewActiveIndex()
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Get("stg_a"))

	idx.Put(&core.ActiveResourceMetadata{PhysicalName: "stg_a", Strategy: core.PartitionHash, CreatedAt: time.Now()})
	idx.Put(&core.ActiveResourceMetadata{PhysicalName: "stg_b", Strategy: core.PartitionNone, CreatedAt: time.Now()})

	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains("stg_a"))
	assert.Equal(t, core.PartitionHash, idx.Get("stg_a").Strategy)
	assert.ElementsMatch(t, []string{"stg_a", "stg_b"}, idx.Names())

	assert.True(t, idx.Remove("stg_a"))
	assert.False(t, idx.Remove("stg_a"), "second removal reports absence")
	assert.Equal(t, 1, idx.Len())

	idx.Replace(map[string]*core.ActiveResourceMetadata{
		"stg_c": {PhysicalName: "stg_c"},
	})
	assert.Equal(t, 1, idx.Len())
	assert.False(t, idx.Contains("stg_b"))
	assert.True(t, idx.Contains("stg_c"))
}
