package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limiterConfig struct {
	Max     int64
	Timeout time.Duration
	Kinds   []string
}

func TestMap2Struct(t *testing.T) {
	var c limiterConfig
	err := Map2Struct(map[string]interface{}{
		"max":     "8",
		"timeout": "1500ms",
		"kinds":   "before,after",
	}, &c)
	require.NoError(t, err)
	assert.Equal(t, int64(8), c.Max)
	assert.Equal(t, 1500*time.Millisecond, c.Timeout)
	assert.Equal(t, []string{"before", "after"}, c.Kinds)

	c = limiterConfig{}
	require.NoError(t, Map2Struct(map[string]interface{}{"timeout": 250}, &c))
	assert.Equal(t, 250*time.Millisecond, c.Timeout)
}

func TestGet(t *testing.T) {
	m := map[string]interface{}{
		"a": map[string]interface{}{"b": map[string]interface{}{"c": 1}},
		"x": 2,
	}
	assert.Equal(t, 1, Get(m, "a.b.c"))
	assert.Equal(t, 2, Get(m, "x"))
	assert.Nil(t, Get(m, "a.z"))
	assert.Nil(t, Get(m, "x.y"))
}
