package json

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	b, err := Marshal(map[string]string{"expr": "a<b && c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"a<b && c>d"}`, string(b))

	b, err = Marshal2(map[string]string{"expr": "<"}, true)
	require.NoError(t, err)
	assert.Equal(t, `{"expr":"\u003c"}`, string(b))
}

func TestDecodeArgs(t *testing.T) {
	args, err := DecodeArgs(strings.NewReader(`[10, 2, "x"]`))
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, json.Number("10"), args[0])
	assert.Equal(t, "x", args[2])

	args, err = DecodeArgs(strings.NewReader(``))
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = DecodeArgs(strings.NewReader(`{"a":1}`))
	assert.Error(t, err)
}
