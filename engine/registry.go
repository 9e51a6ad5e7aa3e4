/*
 * Copyright 2023 The RuleGo Authors.
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
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/pointcut"
)

// Registry holds the advice rules known to the engine.
//
// Rules are registered during setup by a single writer. The first chain build
// freezes the registry; from then on it is read-only and reads take no locks.
//
// Registry 增强规则注册表。首次构建拦截器链后冻结，之后只读。
type Registry struct {
	config types.Config
	mu     sync.Mutex
	rules  []*types.Rule
	frozen atomic.Bool
	// sorted is the ordered snapshot taken on freeze.
	sorted []*types.Rule
}

// NewRegistry creates an empty registry.
func NewRegistry(config types.Config) *Registry {
	return &Registry{config: config}
}

// Register validates and adds a rule. A rule Expression is compiled here, so a
// malformed pattern is reported now and never at invocation time.
// An Expression may carry a kind prefix, e.g. "expr:Method == \"Div\"" or
// "js:return site.method === 'Div'"; without a prefix it is an AspectJ style expression.
func (r *Registry) Register(rule types.Rule) error {
	if r.frozen.Load() {
		return types.NewConfigurationError(rule.Name, "registration after the first chain build", types.ErrRegistryFrozen)
	}
	if rule.Action == nil {
		return types.NewConfigurationError(rule.Name, "advice action is nil", nil)
	}
	if !rule.Kind.Valid() {
		return types.NewConfigurationError(rule.Name, fmt.Sprintf("unknown advice kind %s", rule.Kind), nil)
	}
	if rule.Pointcut == nil {
		if strings.TrimSpace(rule.Expression) == "" {
			return types.NewConfigurationError(rule.Name, "pointcut and expression are both empty", nil)
		}
		p, err := r.compileExpression(rule.Expression)
		if err != nil {
			return types.NewConfigurationError(rule.Name, "invalid pointcut expression", err)
		}
		rule.Pointcut = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return types.NewConfigurationError(rule.Name, "registration after the first chain build", types.ErrRegistryFrozen)
	}
	if rule.Name == "" {
		rule.Name = fmt.Sprintf("%s#%d", rule.Kind, len(r.rules))
	}
	r.rules = append(r.rules, &rule)
	return nil
}

func (r *Registry) compileExpression(expression string) (types.Pointcut, error) {
	if i := strings.IndexByte(expression, ':'); i > 0 {
		switch kind := expression[:i]; kind {
		case pointcut.KindAspectJ, pointcut.KindExpr, pointcut.KindJs, pointcut.KindRegexp:
			return pointcut.Compile(kind, expression[i+1:], r.config)
		}
	}
	return pointcut.Compile(pointcut.KindAspectJ, expression, r.config)
}

// AddAspects expands aspect objects into rules. Each advice method the aspect
// implements becomes one rule sharing the aspect order and pointcut, registered in
// the order Around, Before, After, AfterReturning, AfterThrowing.
func (r *Registry) AddAspects(aspects ...types.Aspect) error {
	for _, a := range aspects {
		if err := r.addAspect(a); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) addAspect(a types.Aspect) error {
	rules, err := RulesOf(a)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// RulesOf expands an aspect into one rule per implemented advice method.
func RulesOf(a types.Aspect) ([]types.Rule, error) {
	if a == nil {
		return nil, types.NewConfigurationError("aspect", "nil aspect", nil)
	}
	name := AspectName(a)
	pc := types.PointcutFunc(a.PointCut)
	var rules []types.Rule
	add := func(kind types.Kind, action types.Action) {
		rules = append(rules, types.Rule{Name: name, Kind: kind, Pointcut: pc, Order: a.Order(), Action: action})
	}
	if v, ok := a.(types.AroundAspect); ok {
		add(types.Around, v.Around)
	}
	if v, ok := a.(types.BeforeAspect); ok {
		add(types.Before, v.Before)
	}
	if v, ok := a.(types.AfterAspect); ok {
		add(types.After, v.After)
	}
	if v, ok := a.(types.AfterReturningAspect); ok {
		add(types.AfterReturning, v.AfterReturning)
	}
	if v, ok := a.(types.AfterThrowingAspect); ok {
		add(types.AfterThrowing, v.AfterThrowing)
	}
	if len(rules) == 0 {
		return nil, types.NewConfigurationError(name, "aspect implements no advice", nil)
	}
	return rules, nil
}

// AspectName returns Type() for named aspects, otherwise the aspect type name.
func AspectName(a types.Aspect) string {
	if named, ok := a.(types.NamedAspect); ok && named.Type() != "" {
		return named.Type()
	}
	t := reflect.TypeOf(a)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// AllRules returns the rules ordered by Order, ties broken by registration order.
func (r *Registry) AllRules() []*types.Rule {
	if r.frozen.Load() {
		return append([]*types.Rule(nil), r.sorted...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortRules(r.rules)
}

func sortRules(rules []*types.Rule) []*types.Rule {
	sorted := make([]*types.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// Freeze makes the registry read-only. It is called on the first chain build and
// is idempotent.
func (r *Registry) Freeze() {
	if r.frozen.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return
	}
	r.sorted = sortRules(r.rules)
	r.frozen.Store(true)
}

// Frozen reports whether the registry is read-only.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	if r.frozen.Load() {
		return len(r.sorted)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rules)
}
