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
	"fmt"
	"sync"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/pointcut"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errDivByZero = errors.New("division by zero")

type ctxKey struct{}

type MathCalculator struct {
	mu    sync.Mutex
	calls []string
}

func (c *MathCalculator) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *MathCalculator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *MathCalculator) Div(a, b int) (int, error) {
	c.record("Div")
	if b == 0 {
		return 0, errDivByZero
	}
	return a / b, nil
}

func (c *MathCalculator) Add(a, b int) int {
	c.record("Add")
	return a + b
}

func (c *MathCalculator) Sum(prefix string, nums ...int) string {
	c.record("Sum")
	total := 0
	for _, n := range nums {
		total += n
	}
	return fmt.Sprintf("%s%d", prefix, total)
}

// QuoRem returns the quotient and the remainder.
func (c *MathCalculator) QuoRem(a, b int) (int, int, error) {
	c.record("QuoRem")
	if b == 0 {
		return 0, 0, errDivByZero
	}
	return a / b, a % b, nil
}

func (c *MathCalculator) Scale(ctx context.Context, v float64) float64 {
	c.record("Scale")
	if factor, ok := ctx.Value(ctxKey{}).(float64); ok {
		return v * factor
	}
	return v
}

func (c *MathCalculator) Reset() {
	c.record("Reset")
}

// IntDiv panics on a zero divisor.
func (c *MathCalculator) IntDiv(a, b int) int {
	c.record("IntDiv")
	return a / b
}

func (c *MathCalculator) Small(v int8) int8 {
	return v
}

func (c *MathCalculator) Total(items []int) int {
	total := 0
	for _, v := range items {
		total += v
	}
	return total
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c *MathCalculator) Norm(p *Point) int {
	if p == nil {
		return -1
	}
	return p.X*p.X + p.Y*p.Y
}

func testConfig(t *testing.T) types.Config {
	return types.NewConfig(types.WithLogger(types.NewZapLogger(zaptest.NewLogger(t))))
}

// newTestProxy registers the rules and proxies a new MathCalculator.
func newTestProxy(t *testing.T, rules ...types.Rule) (*Proxy, *MathCalculator) {
	t.Helper()
	return newTestProxyWithConfig(t, testConfig(t), rules...)
}

func newTestProxyWithConfig(t *testing.T, config types.Config, rules ...types.Rule) (*Proxy, *MathCalculator) {
	t.Helper()
	registry := NewRegistry(config)
	for _, rule := range rules {
		require.NoError(t, registry.Register(rule))
	}
	builder, err := NewChainBuilder(registry, config)
	require.NoError(t, err)
	target := &MathCalculator{}
	proxy, err := CreateProxy(target, builder)
	require.NoError(t, err)
	return proxy, target
}

// journal collects the advice events of an invocation.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// logRule returns a rule matching methodPattern that only records its name.
func logRule(j *journal, name string, kind types.Kind, order int, methodPattern string) types.Rule {
	return types.Rule{
		Name:     name,
		Kind:     kind,
		Order:    order,
		Pointcut: pointcut.Method(methodPattern),
		Action: func(inv types.Invocation) error {
			j.add(name)
			return nil
		},
	}
}

func aroundRule(j *journal, name string, order int, methodPattern string) types.Rule {
	return types.Rule{
		Name:     name,
		Kind:     types.Around,
		Order:    order,
		Pointcut: pointcut.Method(methodPattern),
		Action: func(inv types.Invocation) error {
			j.add(name + ":in")
			_, err := inv.Proceed()
			j.add(name + ":out")
			return err
		},
	}
}
