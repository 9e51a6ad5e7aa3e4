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
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	"go.uber.org/zap"
)

// Interceptor is a rule compiled for one call site. Its step function implements the
// execution shape of the rule kind.
type Interceptor struct {
	Rule *types.Rule
	step func(inv *invocation, index int)
}

// Name returns the rule name.
func (i *Interceptor) Name() string {
	return i.Rule.Name
}

// Kind returns the rule kind.
func (i *Interceptor) Kind() types.Kind {
	return i.Rule.Kind
}

// InterceptorChain is the ordered list of interceptors applying to a call site.
// The terminal step, which invokes the target, is implicit at index Len().
// A chain is immutable and shared by all invocations of the call site.
//
// InterceptorChain 某个方法的有序拦截器链，最后隐含一个调用目标方法的终结步骤。
type InterceptorChain struct {
	Site         types.CallSite
	Interceptors []Interceptor
}

// Len returns the number of interceptors, excluding the terminal step.
func (c *InterceptorChain) Len() int {
	return len(c.Interceptors)
}

// Names returns the interceptor names in chain order.
func (c *InterceptorChain) Names() []string {
	names := make([]string, len(c.Interceptors))
	for i := range c.Interceptors {
		names[i] = c.Interceptors[i].Rule.Name + ":" + c.Interceptors[i].Rule.Kind.String()
	}
	return names
}

// ChainStats reports the chain cache usage.
type ChainStats struct {
	Hits   int64
	Misses int64
	// Size is the number of cached chains.
	Size int64
}

// ChainBuilder builds interceptor chains and caches them per call site.
// Racing builds of the same call site are idempotent: one chain wins and every
// caller gets the same instance. Entries are never evicted.
//
// ChainBuilder 拦截器链构建器，按方法缓存。
type ChainBuilder struct {
	registry *Registry
	config   types.Config
	include  []*regexp.Regexp
	cache    sync.Map
	hits     atomic.Int64
	misses   atomic.Int64
	size     atomic.Int64
}

// NewChainBuilder creates a chain builder over a registry. When config.IncludePatterns
// is set, only rules whose name matches one of the patterns are eligible.
func NewChainBuilder(registry *Registry, config types.Config) (*ChainBuilder, error) {
	config.Logger = types.NewLogger(config.Logger)
	b := &ChainBuilder{registry: registry, config: config}
	for _, pattern := range config.IncludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, types.NewConfigurationError(pattern, "invalid include pattern", err)
		}
		b.include = append(b.include, re)
	}
	return b, nil
}

// Registry returns the registry the builder reads.
func (b *ChainBuilder) Registry() *Registry {
	return b.registry
}

// Config returns the engine configuration.
func (b *ChainBuilder) Config() types.Config {
	return b.config
}

// Build returns the chain for a call site, building and caching it on first use.
// The first build freezes the registry.
func (b *ChainBuilder) Build(site types.CallSite) *InterceptorChain {
	key := site.Key()
	if v, ok := b.cache.Load(key); ok {
		b.hits.Add(1)
		return v.(*InterceptorChain)
	}
	b.misses.Add(1)
	b.registry.Freeze()
	chain := b.compile(site)
	actual, loaded := b.cache.LoadOrStore(key, chain)
	if !loaded {
		b.size.Add(1)
		types.ZapOf(b.config.Logger).Debug("interceptor chain built",
			zap.String("site", site.String()),
			zap.Strings("interceptors", chain.Names()))
	}
	return actual.(*InterceptorChain)
}

// Eligible reports whether a rule may take part in chains.
func (b *ChainBuilder) Eligible(rule *types.Rule) bool {
	if len(b.include) == 0 {
		return true
	}
	for _, re := range b.include {
		if re.MatchString(rule.Name) {
			return true
		}
	}
	return false
}

func (b *ChainBuilder) compile(site types.CallSite) *InterceptorChain {
	chain := &InterceptorChain{Site: site}
	for _, rule := range b.registry.AllRules() {
		if !b.Eligible(rule) || !rule.Pointcut.Matches(site) {
			continue
		}
		chain.Interceptors = append(chain.Interceptors, Interceptor{Rule: rule, step: stepOf(rule.Kind)})
	}
	return chain
}

// Stats returns cache statistics.
func (b *ChainBuilder) Stats() ChainStats {
	return ChainStats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.size.Load(),
	}
}

func stepOf(kind types.Kind) func(inv *invocation, index int) {
	switch kind {
	case types.Before:
		return (*invocation).beforeStep
	case types.AfterReturning:
		return (*invocation).afterReturningStep
	case types.AfterThrowing:
		return (*invocation).afterThrowingStep
	case types.After:
		return (*invocation).afterStep
	default:
		return (*invocation).aroundStep
	}
}
