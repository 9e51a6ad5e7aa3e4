package js

import (
	"sync"
	"testing"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	config := types.NewConfig(types.WithProperties(map[string]string{"prefix": "Get"}))
	engine, err := NewGojaJsEngine(config, `function Check(name, n) { return name.indexOf(global.prefix) === 0 && n > limit; }`,
		map[string]interface{}{"limit": 1})
	require.NoError(t, err)

	out, err := engine.Execute("Check", "GetUser", 2)
	require.NoError(t, err)
	assert.Equal(t, true, out)

	out, err = engine.Execute("Check", "SetUser", 2)
	require.NoError(t, err)
	assert.Equal(t, false, out)

	_, err = engine.Execute("Missing")
	assert.Error(t, err)
}

func TestCompileError(t *testing.T) {
	_, err := NewGojaJsEngine(types.NewConfig(), `function (`, nil)
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(50 * time.Millisecond))
	engine, err := NewGojaJsEngine(config, `function Loop() { while (true) {} }
function Ok() { return 1; }`, nil)
	require.NoError(t, err)

	_, err = engine.Execute("Loop")
	assert.Error(t, err)

	// the runtime is reusable after an interrupt
	out, err := engine.Execute("Ok")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out)
}

func TestConcurrentExecute(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), `function Double(n) { return n * 2; }`, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := engine.Execute("Double", i)
			assert.NoError(t, err)
			assert.Equal(t, int64(i*2), out)
		}(i)
	}
	wg.Wait()
}
