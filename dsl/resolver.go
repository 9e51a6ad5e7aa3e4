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

package dsl

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/pointcut"
	"github.com/rulego/aop/utils/str"
)

// Resolver turns aspect definitions into advice rules.
//
// Resolver 把切面定义解析为增强规则。
// 切面类型优先匹配切面原型，其次匹配命名增强动作。
type Resolver struct {
	config  types.Config
	aspects *engine.AspectRegistry
	logger  types.Logger

	mu sync.Mutex
	// stoppables are the resolved aspect instances holding background resources.
	stoppables []types.Stoppable
}

// NewResolver creates a resolver. A nil aspects registry means engine.Aspects.
func NewResolver(config types.Config, aspects *engine.AspectRegistry) *Resolver {
	if aspects == nil {
		aspects = engine.Aspects
	}
	return &Resolver{config: config, aspects: aspects, logger: types.NewLogger(config.Logger)}
}

// Resolve resolves every enabled aspect of def, in declaration order.
func (r *Resolver) Resolve(def *Definition) ([]types.Rule, error) {
	if def == nil {
		return nil, nil
	}
	var rules []types.Rule
	for _, a := range def.Aspects {
		if a.Disabled {
			continue
		}
		items, err := r.ResolveAspect(a)
		if err != nil {
			return nil, err
		}
		rules = append(rules, items...)
	}
	return rules, nil
}

// ResolveAspect resolves one aspect definition.
func (r *Resolver) ResolveAspect(def AspectDef) ([]types.Rule, error) {
	kinds, err := parseKinds(def)
	if err != nil {
		return nil, err
	}
	pc, err := r.compile(def)
	if err != nil {
		return nil, err
	}

	instance, err := r.aspects.NewAspect(def.Type)
	if err != nil {
		action, ok := r.aspects.Action(def.Type)
		if !ok {
			return nil, types.NewConfigurationError(def.Name, fmt.Sprintf("unknown aspect type %q", def.Type), err)
		}
		return r.actionRules(def, kinds, pc, action)
	}

	if err := instance.Init(r.config, r.expand(def.Configuration)); err != nil {
		var configErr *types.ConfigurationError
		if errors.As(err, &configErr) {
			return nil, err
		}
		return nil, types.NewConfigurationError(def.Name, "invalid configuration", err)
	}
	if s, ok := instance.(types.Stoppable); ok {
		r.mu.Lock()
		r.stoppables = append(r.stoppables, s)
		r.mu.Unlock()
	}

	all, err := engine.RulesOf(instance)
	if err != nil {
		return nil, err
	}
	var rules []types.Rule
	for _, rule := range all {
		if len(kinds) > 0 && !kinds[rule.Kind] {
			continue
		}
		rule.Name = def.Name
		if pc != nil {
			rule.Pointcut = pointcut.And(pc, rule.Pointcut)
		}
		if def.Order != nil {
			rule.Order = *def.Order
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, types.NewConfigurationError(def.Name, fmt.Sprintf("aspect type %s implements none of the kinds %v", def.Type, def.Kinds), nil)
	}
	r.logger.Printf("resolved aspect %s type=%s rules=%d", def.Name, def.Type, len(rules))
	return rules, nil
}

func (r *Resolver) actionRules(def AspectDef, kinds map[types.Kind]bool, pc types.Pointcut, action types.Action) ([]types.Rule, error) {
	if len(kinds) == 0 {
		return nil, types.NewConfigurationError(def.Name, "kinds is required by action "+def.Type, nil)
	}
	if pc == nil {
		return nil, types.NewConfigurationError(def.Name, "pointcut is required by action "+def.Type, nil)
	}
	order := 0
	if def.Order != nil {
		order = *def.Order
	}
	var rules []types.Rule
	// 按声明顺序生成，同一顺序值下保持声明顺序
	for _, name := range def.Kinds {
		kind, _ := types.ParseKind(name)
		if !kinds[kind] {
			continue
		}
		delete(kinds, kind)
		rules = append(rules, types.Rule{Name: def.Name, Kind: kind, Pointcut: pc, Order: order, Action: action})
	}
	r.logger.Printf("resolved action %s type=%s rules=%d", def.Name, def.Type, len(rules))
	return rules, nil
}

func (r *Resolver) compile(def AspectDef) (types.Pointcut, error) {
	source := strings.TrimSpace(def.Pointcut)
	if source == "" {
		return nil, nil
	}
	source = str.SprintfDict(source, r.vars())
	pc, err := pointcut.Compile(def.PointcutType, source, r.config)
	if err != nil {
		return nil, types.NewConfigurationError(def.Name, "invalid pointcut expression", err)
	}
	return pc, nil
}

// vars 返回 ${global.xx} 变量
func (r *Resolver) vars() map[string]string {
	vars := make(map[string]string, len(r.config.Properties))
	for k, v := range r.config.Properties {
		vars[types.Global+"."+k] = v
	}
	return vars
}

// expand 替换配置中字符串值的变量，返回新的配置
func (r *Resolver) expand(configuration types.Configuration) types.Configuration {
	if configuration == nil {
		return nil
	}
	vars := r.vars()
	result := make(types.Configuration, len(configuration))
	for k, v := range configuration {
		result[k] = expandValue(v, vars)
	}
	return result
}

func expandValue(v interface{}, vars map[string]string) interface{} {
	switch item := v.(type) {
	case string:
		if str.CheckHasVar(item) {
			return str.SprintfDict(item, vars)
		}
		return item
	case map[string]interface{}:
		m := make(map[string]interface{}, len(item))
		for k, value := range item {
			m[k] = expandValue(value, vars)
		}
		return m
	case []interface{}:
		list := make([]interface{}, len(item))
		for i, value := range item {
			list[i] = expandValue(value, vars)
		}
		return list
	default:
		return v
	}
}

// Stop stops the resolved aspects holding background resources, e.g. the cache
// eviction job.
func (r *Resolver) Stop() {
	r.mu.Lock()
	stoppables := r.stoppables
	r.stoppables = nil
	r.mu.Unlock()
	for _, s := range stoppables {
		s.Stop()
	}
}

func parseKinds(def AspectDef) (map[types.Kind]bool, error) {
	if len(def.Kinds) == 0 {
		return nil, nil
	}
	kinds := make(map[types.Kind]bool, len(def.Kinds))
	for _, name := range def.Kinds {
		kind, err := types.ParseKind(name)
		if err != nil {
			return nil, types.NewConfigurationError(def.Name, "invalid kinds", err)
		}
		kinds[kind] = true
	}
	return kinds, nil
}
