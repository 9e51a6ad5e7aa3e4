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
	"errors"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/pointcut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(types.Invocation) error { return nil }

func TestRegistryRegisterValidation(t *testing.T) {
	registry := NewRegistry(testConfig(t))
	var configErr *types.ConfigurationError

	err := registry.Register(types.Rule{Name: "a", Kind: types.Before, Pointcut: pointcut.Any()})
	assert.ErrorAs(t, err, &configErr)

	err = registry.Register(types.Rule{Name: "b", Kind: types.Kind(42), Pointcut: pointcut.Any(), Action: noop})
	assert.ErrorAs(t, err, &configErr)

	err = registry.Register(types.Rule{Name: "c", Kind: types.Before, Action: noop})
	assert.ErrorAs(t, err, &configErr)

	err = registry.Register(types.Rule{Name: "d", Kind: types.Before, Expression: "execution(* Div(", Action: noop})
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "d", configErr.Subject)

	assert.Equal(t, 0, registry.Len())
}

func TestRegistryExpressions(t *testing.T) {
	registry := NewRegistry(testConfig(t))
	expressions := map[string]string{
		"aspectj": "execution(* Div(..))",
		"expr":    `expr:Method == "Div"`,
		"js":      `js:return site.method === "Div";`,
		"regexp":  `regexp:\.Div$`,
	}
	for name, expression := range expressions {
		require.NoError(t, registry.Register(types.Rule{Name: name, Kind: types.Before, Expression: expression, Action: noop}), name)
	}
	div := types.CallSite{Type: "calc.MathCalculator", Method: "Div", Params: []string{"int", "int"}, Results: []string{"int", "error"}}
	add := types.CallSite{Type: "calc.MathCalculator", Method: "Add", Params: []string{"int", "int"}, Results: []string{"int"}}
	for _, rule := range registry.AllRules() {
		assert.True(t, rule.Pointcut.Matches(div), rule.Name)
		assert.False(t, rule.Pointcut.Matches(add), rule.Name)
	}
}

func TestRegistryOrder(t *testing.T) {
	registry := NewRegistry(testConfig(t))
	for _, rule := range []types.Rule{
		{Name: "late", Kind: types.After, Order: 100, Pointcut: pointcut.Any(), Action: noop},
		{Name: "first", Kind: types.Before, Order: 1, Pointcut: pointcut.Any(), Action: noop},
		{Name: "tie1", Kind: types.Around, Order: 50, Pointcut: pointcut.Any(), Action: noop},
		{Name: "tie2", Kind: types.Before, Order: 50, Pointcut: pointcut.Any(), Action: noop},
		{Kind: types.Before, Order: 50, Pointcut: pointcut.Any(), Action: noop},
	} {
		require.NoError(t, registry.Register(rule))
	}
	var names []string
	for _, rule := range registry.AllRules() {
		names = append(names, rule.Name)
	}
	assert.Equal(t, []string{"first", "tie1", "tie2", "before#4", "late"}, names)
}

func TestRegistryFreeze(t *testing.T) {
	registry := NewRegistry(testConfig(t))
	require.NoError(t, registry.Register(types.Rule{Name: "a", Kind: types.Before, Pointcut: pointcut.Any(), Action: noop}))
	builder, err := NewChainBuilder(registry, testConfig(t))
	require.NoError(t, err)
	assert.False(t, registry.Frozen())

	builder.Build(types.CallSite{Type: "calc.MathCalculator", Method: "Div"})
	assert.True(t, registry.Frozen())

	err = registry.Register(types.Rule{Name: "b", Kind: types.Before, Pointcut: pointcut.Any(), Action: noop})
	assert.True(t, errors.Is(err, types.ErrRegistryFrozen))
	assert.Equal(t, 1, registry.Len())
	// freezing twice is harmless
	registry.Freeze()
	assert.Len(t, registry.AllRules(), 1)

	rules := registry.AllRules()
	rules[0] = &types.Rule{Name: "replaced"}
	assert.Equal(t, "a", registry.AllRules()[0].Name)
}

type auditAspect struct {
	j *journal
}

func (a *auditAspect) Order() int { return 3 }

func (a *auditAspect) PointCut(site types.CallSite) bool { return site.Method == "Div" }

func (a *auditAspect) Before(inv types.Invocation) error {
	a.j.add("audit:before")
	return nil
}

func (a *auditAspect) After(inv types.Invocation) error {
	a.j.add("audit:after")
	return nil
}

func (a *auditAspect) Around(inv types.Invocation) error {
	a.j.add("audit:around")
	_, err := inv.Proceed()
	return err
}

type emptyAspect struct{}

func (a *emptyAspect) Order() int { return 0 }

func (a *emptyAspect) PointCut(types.CallSite) bool { return true }

func TestRegistryAddAspects(t *testing.T) {
	j := &journal{}
	registry := NewRegistry(testConfig(t))
	require.NoError(t, registry.AddAspects(&auditAspect{j: j}))

	rules := registry.AllRules()
	require.Len(t, rules, 3)
	assert.Equal(t, []types.Kind{types.Around, types.Before, types.After},
		[]types.Kind{rules[0].Kind, rules[1].Kind, rules[2].Kind})
	for _, rule := range rules {
		assert.Equal(t, "engine.auditAspect", rule.Name)
		assert.Equal(t, 3, rule.Order)
	}

	var configErr *types.ConfigurationError
	assert.ErrorAs(t, registry.AddAspects(&emptyAspect{}), &configErr)
	assert.ErrorAs(t, registry.AddAspects(nil), &configErr)

	builder, err := NewChainBuilder(registry, testConfig(t))
	require.NoError(t, err)
	proxy, err := CreateProxy(&MathCalculator{}, builder)
	require.NoError(t, err)
	_, err = proxy.Invoke(context.Background(), "Div", 4, 2)
	require.NoError(t, err)
	_, err = proxy.Invoke(context.Background(), "Add", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit:around", "audit:before", "audit:after"}, j.get())
}
