package str

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSprintfDict(t *testing.T) {
	dict := map[string]string{"name": "Alice", "global.limit": "10"}
	assert.Equal(t, "Hello,Alice!", SprintfDict("Hello,${name}!", dict))
	assert.Equal(t, "max=10", SprintfDict("max=${ global.limit }", dict))
	assert.Equal(t, "${missing}", SprintfDict("${missing}", dict))
	assert.True(t, CheckHasVar("${a}"))
	assert.False(t, CheckHasVar("a"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "42", ToString(int64(42)))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "boom", ToString(errors.New("boom")))
	assert.Equal(t, `{"a":1}`, ToString(map[string]int{"a": 1}))
}

func TestGlobToRegexp(t *testing.T) {
	re, err := GlobToRegexp("Get*")
	require.NoError(t, err)
	assert.True(t, re.MatchString("GetUser"))
	assert.True(t, re.MatchString("Get"))
	assert.False(t, re.MatchString("ForGet"))

	re, err = GlobToRegexp("calc.*Calculator")
	require.NoError(t, err)
	assert.True(t, re.MatchString("calc.MathCalculator"))
	assert.False(t, re.MatchString("calcXMathCalculator"))

	re, err = GlobToRegexp("D?v")
	require.NoError(t, err)
	assert.True(t, re.MatchString("Div"))
	assert.True(t, IsGlob("a*"))
	assert.False(t, IsGlob("abc"))
}
