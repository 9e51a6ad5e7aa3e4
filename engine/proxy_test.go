/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/pointcut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyDiv(t *testing.T) {
	proxy, target := newTestProxy(t)

	res, err := proxy.Invoke(context.Background(), "Div", 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, res)

	res, err = proxy.Invoke(context.Background(), "Div", 1, 0)
	assert.Same(t, errDivByZero, err)
	assert.Nil(t, res)
	assert.Equal(t, 2, target.Calls())

	assert.Same(t, target, proxy.Target())
	assert.Equal(t, "engine.MathCalculator", proxy.Name())
}

type Item struct{ V int }

type Box[T any] struct{ v T }

func (b *Box[T]) Get() T { return b.v }

type Pair[T any] struct{ v T }

func (p *Pair[T]) Get() T { return p.v }

func TestProxyGenericTypes(t *testing.T) {
	config := testConfig(t)
	registry := NewRegistry(config)
	require.NoError(t, registry.Register(types.Rule{
		Name:     "boxOnly",
		Kind:     types.Around,
		Pointcut: pointcut.MustParse("within(engine.Box[*])"),
		Action: func(inv types.Invocation) error {
			inv.SetResult("intercepted")
			return nil
		},
	}))
	builder, err := NewChainBuilder(registry, config)
	require.NoError(t, err)

	box, err := CreateProxy(&Box[Item]{v: Item{V: 1}}, builder)
	require.NoError(t, err)
	pair, err := CreateProxy(&Pair[Item]{v: Item{V: 2}}, builder)
	require.NoError(t, err)
	assert.NotEqual(t, box.Methods()[0].Key(), pair.Methods()[0].Key())

	res, err := box.Invoke(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "intercepted", res)

	res, err = pair.Invoke(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, Item{V: 2}, res)

	// the cached chains stay apart
	res, err = box.Invoke(context.Background(), "Get")
	require.NoError(t, err)
	assert.Equal(t, "intercepted", res)
	assert.Equal(t, int64(2), builder.Stats().Size)
}

func TestProxyMethods(t *testing.T) {
	proxy, _ := newTestProxy(t)
	var names []string
	for _, site := range proxy.Methods() {
		names = append(names, site.Method)
		assert.Equal(t, "github.com/rulego/aop/engine", site.PkgPath)
		assert.Equal(t, "engine.MathCalculator", site.Type)
	}
	assert.Equal(t, []string{"Add", "Calls", "Div", "IntDiv", "Norm", "QuoRem", "Reset", "Scale", "Small", "Sum", "Total"}, names)
	assert.True(t, proxy.HasMethod("Div"))
	assert.False(t, proxy.HasMethod("record"))

	sites := make(map[string]types.CallSite)
	for _, site := range proxy.Methods() {
		sites[site.Method] = site
	}
	assert.Equal(t, []string{"int", "int"}, sites["Div"].Params)
	assert.Equal(t, []string{"int", "error"}, sites["Div"].Results)
	assert.Equal(t, "engine.MathCalculator.Div(int,int)", sites["Div"].String())
	assert.Equal(t, "github.com/rulego/aop/engine.MathCalculator#Div", sites["Div"].Key())
	// the context parameter is not part of the signature
	assert.Equal(t, []string{"float64"}, sites["Scale"].Params)
	assert.Equal(t, []string{"string", "...int"}, sites["Sum"].Params)
	assert.True(t, sites["Sum"].Variadic)
	assert.Empty(t, sites["Reset"].Results)
}

func TestProxyErrors(t *testing.T) {
	proxy, target := newTestProxy(t)
	ctx := context.Background()

	_, err := proxy.Invoke(ctx, "Mod", 1, 2)
	assert.True(t, errors.Is(err, types.ErrNoSuchMethod))
	_, err = proxy.Chain("Mod")
	assert.True(t, errors.Is(err, types.ErrNoSuchMethod))

	var argErr *types.ArgumentError
	_, err = proxy.Invoke(ctx, "Div", 1)
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, -1, argErr.Index)

	_, err = proxy.Invoke(ctx, "Div", 1, "2")
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 1, argErr.Index)

	_, err = proxy.Invoke(ctx, "Div", nil, 2)
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 0, argErr.Index)

	_, err = proxy.Invoke(ctx, "Sum")
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, argErr.Reason, "at least 1")

	assert.Equal(t, 0, target.Calls())
}

func TestProxyResults(t *testing.T) {
	proxy, _ := newTestProxy(t)
	ctx := context.Background()

	res, err := proxy.Invoke(ctx, "QuoRem", 7, 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3, 1}, res)

	_, err = proxy.Invoke(ctx, "QuoRem", 7, 0)
	assert.Same(t, errDivByZero, err)

	res, err = proxy.Invoke(ctx, "Reset")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = proxy.Invoke(ctx, "Sum", "n=")
	require.NoError(t, err)
	assert.Equal(t, "n=0", res)

	res, err = proxy.Invoke(ctx, "Sum", "n=", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "n=6", res)
}

func TestProxyArgumentConversion(t *testing.T) {
	proxy, _ := newTestProxy(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		method string
		args   []interface{}
		want   interface{}
		fails  bool
	}{
		{name: "json number", method: "Div", args: []interface{}{json.Number("10"), json.Number("5")}, want: 2},
		{name: "integral float", method: "Div", args: []interface{}{10.0, int64(2)}, want: 5},
		{name: "fractional float", method: "Div", args: []interface{}{10.5, 2}, fails: true},
		{name: "int8 in range", method: "Small", args: []interface{}{100}, want: int8(100)},
		{name: "int8 overflow", method: "Small", args: []interface{}{300}, fails: true},
		{name: "negative number", method: "Small", args: []interface{}{json.Number("-3")}, want: int8(-3)},
		{name: "slice elements", method: "Total", args: []interface{}{[]interface{}{1, json.Number("2"), 3.0}}, want: 6},
		{name: "nil slice", method: "Total", args: []interface{}{nil}, want: 0},
		{name: "map to struct pointer", method: "Norm", args: []interface{}{map[string]interface{}{"x": 3, "y": 4}}, want: 25},
		{name: "nil pointer", method: "Norm", args: []interface{}{nil}, want: -1},
		{name: "struct pointer", method: "Norm", args: []interface{}{&Point{X: 1, Y: 1}}, want: 2},
		{name: "string to int", method: "Div", args: []interface{}{"10", 2}, fails: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := proxy.Invoke(ctx, tc.method, tc.args...)
			if tc.fails {
				var argErr *types.ArgumentError
				assert.ErrorAs(t, err, &argErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, res)
		})
	}
}

func TestCall(t *testing.T) {
	proxy, _ := newTestProxy(t)
	ctx := context.Background()

	q, err := Call[int](ctx, proxy, "Div", 9, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	_, err = Call[int](ctx, proxy, "Div", 9, 0)
	assert.Same(t, errDivByZero, err)

	_, err = Call[string](ctx, proxy, "Div", 9, 3)
	assert.Error(t, err)

	s, err := Call[string](ctx, proxy, "Reset")
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestCreateProxy(t *testing.T) {
	config := testConfig(t)
	builder, err := NewChainBuilder(NewRegistry(config), config)
	require.NoError(t, err)

	var configErr *types.ConfigurationError
	_, err = CreateProxy(nil, builder)
	assert.ErrorAs(t, err, &configErr)
	_, err = CreateProxy((*MathCalculator)(nil), builder)
	assert.ErrorAs(t, err, &configErr)
	_, err = CreateProxy(&MathCalculator{}, nil)
	assert.ErrorAs(t, err, &configErr)

	proxy, err := CreateProxy(&MathCalculator{}, builder, WithBeanName("calculator"))
	require.NoError(t, err)
	assert.Equal(t, "calculator", proxy.Name())

	chain, err := proxy.Chain("Div")
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Len())
}

func TestProxyConcurrentInvoke(t *testing.T) {
	var before, after atomic.Int64
	proxy, target := newTestProxy(t,
		types.Rule{Name: "before", Kind: types.Before, Pointcut: pointcut.Any(), Action: func(inv types.Invocation) error {
			before.Add(1)
			inv.Set("arg", inv.Arguments()[0])
			return nil
		}},
		types.Rule{Name: "after", Kind: types.AfterReturning, Pointcut: pointcut.Any(), Action: func(inv types.Invocation) error {
			after.Add(1)
			v, _ := inv.Get("arg")
			if v.(int)*2 != inv.Result().(int) {
				inv.SetThrown(errors.New("attributes leaked between invocations"))
			}
			return nil
		}},
	)

	const n = 200
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := proxy.Invoke(context.Background(), "Add", i, i)
			if err == nil && res != i*2 {
				err = errors.New("unexpected result")
			}
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, int64(n), before.Load())
	assert.Equal(t, int64(n), after.Load())
	assert.Equal(t, n, target.Calls())
}
