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

// Package aop weaves advice into plain Go objects through dynamic proxies.
//
// # Usage
//
// Declare the advice as rules, aspect objects or a declarative definition, then
// proxy the objects that need them. Every call made through a proxy runs the
// interceptor chain of the method: before, around, after returning, after throwing
// and after advice, ordered by their order value.
//
// Create a weaver:
//
//	weaver, err := aop.New(types.WithLogger(logger))
//
// Declare advice:
//
//	err = weaver.Register(types.Rule{
//		Name:       "log",
//		Kind:       types.Before,
//		Expression: "execution(* calc.MathCalculator.*(..))",
//		Action: func(inv types.Invocation) error {
//			log.Printf("enter %s", inv.CallSite())
//			return nil
//		},
//	})
//	err = weaver.AddAspects(aspect.NewConcurrencyLimiterAspect(100))
//	err = weaver.LoadDsl([]byte(`
//	aspects:
//	  - name: retryDiv
//	    type: retry
//	    pointcut: method(Div)
//	    configuration:
//	      maxAttempts: 3
//	`))
//
// Proxy and invoke:
//
//	proxy, err := weaver.Proxy("calculator", &calc.MathCalculator{})
//	quotient, err := aop.Call[int](ctx, proxy, "Div", 6, 3)
//
// The advice registry freezes when the first interceptor chain is built, so declare
// all advice before invoking proxies or wrapping beans.
//
// aop 包通过动态代理把增强点织入普通 Go 对象。
package aop

import (
	"context"
	"sync"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/config"
	"github.com/rulego/aop/dsl"
	"github.com/rulego/aop/engine"
)

// Weaver combines the advice registry, the chain builder and the auto-proxy creator.
//
// Weaver 织入器，组合增强规则注册表、拦截器链构建器和自动代理创建器
type Weaver struct {
	config   types.Config
	registry *engine.Registry
	builder  *engine.ChainBuilder
	creator  *engine.AutoProxyCreator
	resolver *dsl.Resolver

	mu sync.Mutex
	// stoppables are the aspects added with AddAspects holding background resources.
	stoppables []types.Stoppable
}

// New creates a weaver. Aspects set with types.WithAspects are added on creation.
func New(opts ...types.Option) (*Weaver, error) {
	c := types.NewConfig(opts...)
	registry := engine.NewRegistry(c)
	builder, err := engine.NewChainBuilder(registry, c)
	if err != nil {
		return nil, err
	}
	w := &Weaver{
		config:   builder.Config(),
		registry: registry,
		builder:  builder,
		creator:  engine.NewAutoProxyCreator(builder),
		resolver: dsl.NewResolver(builder.Config(), nil),
	}
	if err := w.AddAspects(c.Aspects...); err != nil {
		return nil, err
	}
	return w, nil
}

// NewFromSettings creates a weaver from loaded settings and loads the declared
// aspects file, if any. opts are applied after the settings.
func NewFromSettings(s *config.Settings, opts ...types.Option) (*Weaver, error) {
	settingsOpts, err := s.Options()
	if err != nil {
		return nil, err
	}
	w, err := New(append(settingsOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	if s.Aspects.File != "" {
		if err := w.LoadDslFile(s.Aspects.File); err != nil {
			w.Stop()
			return nil, err
		}
	}
	return w, nil
}

// Config returns the engine configuration.
func (w *Weaver) Config() types.Config {
	return w.config
}

// Registry returns the advice registry.
func (w *Weaver) Registry() *engine.Registry {
	return w.registry
}

// Builder returns the chain builder.
func (w *Weaver) Builder() *engine.ChainBuilder {
	return w.builder
}

// Register adds an advice rule.
func (w *Weaver) Register(rules ...types.Rule) error {
	for _, rule := range rules {
		if err := w.registry.Register(rule); err != nil {
			return err
		}
	}
	return nil
}

// AddAspects adds aspect objects. Aspects implementing types.Stoppable are stopped
// by Stop.
func (w *Weaver) AddAspects(aspects ...types.Aspect) error {
	if err := w.registry.AddAspects(aspects...); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range aspects {
		if s, ok := a.(types.Stoppable); ok {
			w.stoppables = append(w.stoppables, s)
		}
	}
	return nil
}

// LoadDsl registers the aspects of a yaml definition.
func (w *Weaver) LoadDsl(data []byte) error {
	def, err := dsl.ParseYAML(data)
	if err != nil {
		return err
	}
	return w.load(def)
}

// LoadDslFile registers the aspects of a yaml or json definition file.
func (w *Weaver) LoadDslFile(path string) error {
	def, err := dsl.Load(path)
	if err != nil {
		return err
	}
	return w.load(def)
}

// LoadDslDir registers the aspects of every definition file in a folder and its
// sub folders.
func (w *Weaver) LoadDslDir(folderPath string) error {
	def, err := dsl.LoadDir(folderPath)
	if err != nil {
		return err
	}
	return w.load(def)
}

func (w *Weaver) load(def *dsl.Definition) error {
	rules, err := w.resolver.Resolve(def)
	if err != nil {
		return err
	}
	return w.Register(rules...)
}

// Proxy proxies target under name, whether advice applies to it or not.
func (w *Weaver) Proxy(name string, target interface{}) (*engine.Proxy, error) {
	return w.creator.Create(name, target)
}

// Wrap proxies bean only when advice applies to at least one of its methods,
// otherwise it returns the bean itself and false.
func (w *Weaver) Wrap(name string, bean interface{}) (interface{}, bool) {
	return w.creator.Wrap(name, bean)
}

// Bean returns a proxy created by Proxy or Wrap.
func (w *Weaver) Bean(name string) (*engine.Proxy, bool) {
	return w.creator.Proxy(name)
}

// Beans returns the proxied beans, e.g. for the rest endpoint.
func (w *Weaver) Beans() *engine.AutoProxyCreator {
	return w.creator
}

// Stop releases the background resources of the aspects, e.g. cache eviction jobs.
func (w *Weaver) Stop() {
	w.resolver.Stop()
	w.mu.Lock()
	stoppables := w.stoppables
	w.stoppables = nil
	w.mu.Unlock()
	for _, s := range stoppables {
		s.Stop()
	}
}

// Call invokes a method through the proxy and converts the result to T.
func Call[T any](ctx context.Context, p *engine.Proxy, method string, args ...interface{}) (T, error) {
	return engine.Call[T](ctx, p, method, args...)
}
