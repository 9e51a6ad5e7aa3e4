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
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/pointcut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter struct{}

func (g *Greeter) Hello(name string) string {
	return "hello " + name
}

func TestAutoProxyCreator(t *testing.T) {
	j := &journal{}
	config := testConfig(t)
	registry := NewRegistry(config)
	require.NoError(t, registry.Register(types.Rule{Name: "divLog", Kind: types.Before,
		Pointcut: pointcut.And(pointcut.Type("engine.MathCalculator"), pointcut.Method("Div")),
		Action: func(inv types.Invocation) error {
			j.add("divLog")
			return nil
		}}))
	require.NoError(t, registry.AddAspects(&auditAspect{j: j}))
	builder, err := NewChainBuilder(registry, config)
	require.NoError(t, err)
	creator := NewAutoProxyCreator(builder)

	calculator := &MathCalculator{}
	wrapped, ok := creator.Wrap("calculator", calculator)
	require.True(t, ok)
	proxy, isProxy := wrapped.(*Proxy)
	require.True(t, isProxy)
	assert.Equal(t, "calculator", proxy.Name())
	assert.Same(t, calculator, proxy.Target())

	greeter := &Greeter{}
	wrapped, ok = creator.Wrap("greeter", greeter)
	assert.False(t, ok)
	assert.Same(t, greeter, wrapped)

	// aspects and proxies are never proxied
	audit := &auditAspect{j: j}
	wrapped, ok = creator.Wrap("audit", audit)
	assert.False(t, ok)
	assert.Same(t, audit, wrapped)
	wrapped, ok = creator.Wrap("again", proxy)
	assert.False(t, ok)
	assert.Same(t, proxy, wrapped)

	wrapped, ok = creator.Wrap("nil", nil)
	assert.False(t, ok)
	assert.Nil(t, wrapped)

	assert.Equal(t, []string{"calculator"}, creator.Names())
	found, ok := creator.Proxy("calculator")
	require.True(t, ok)
	assert.Same(t, proxy, found)
	_, ok = creator.Proxy("greeter")
	assert.False(t, ok)

	res, err := found.Invoke(context.Background(), "Div", 6, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res)
	assert.Equal(t, []string{"divLog", "audit:around", "audit:before", "audit:after"}, j.get())
}

func TestAutoProxyCreatorCreate(t *testing.T) {
	config := testConfig(t)
	builder, err := NewChainBuilder(NewRegistry(config), config)
	require.NoError(t, err)
	creator := NewAutoProxyCreator(builder)

	proxy, err := creator.Create("greeter", &Greeter{})
	require.NoError(t, err)
	assert.Equal(t, "greeter", proxy.Name())
	res, err := Call[string](context.Background(), proxy, "Hello", "aop")
	require.NoError(t, err)
	assert.Equal(t, "hello aop", res)

	same, err := creator.Create("other", proxy)
	require.NoError(t, err)
	assert.Same(t, proxy, same)
	assert.Equal(t, []string{"greeter"}, creator.Names())

	_, err = creator.Create("nil", nil)
	var configErr *types.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}
