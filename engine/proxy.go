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
	"fmt"
	"reflect"
	"sort"

	"github.com/rulego/aop/api/types"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Proxy wraps a target and routes every call of its exported methods through the
// interceptor chain of the call site. The target itself is never modified.
//
// Go cannot synthesize a type implementing the target's method set at runtime, so
// the proxy exposes the method set through Invoke and the typed helper Call.
//
// Proxy 代理对象，目标对象的每个导出方法调用都会经过该方法的拦截器链。
type Proxy struct {
	name    string
	target  interface{}
	builder *ChainBuilder
	config  types.Config
	methods map[string]*methodDesc
	sites   []types.CallSite
}

// ProxyOption configures a proxy.
type ProxyOption func(p *Proxy)

// WithBeanName sets the name the proxy is known by.
func WithBeanName(name string) ProxyOption {
	return func(p *Proxy) {
		p.name = name
	}
}

// CreateProxy builds the dispatch table of the exported methods of target.
func CreateProxy(target interface{}, builder *ChainBuilder, opts ...ProxyOption) (*Proxy, error) {
	if target == nil {
		return nil, types.NewConfigurationError("proxy", "target is nil", nil)
	}
	if builder == nil {
		return nil, types.NewConfigurationError("proxy", "chain builder is nil", nil)
	}
	methods, err := describe(target)
	if err != nil {
		return nil, err
	}
	p := &Proxy{
		target:  target,
		builder: builder,
		config:  builder.Config(),
		methods: make(map[string]*methodDesc, len(methods)),
	}
	for _, m := range methods {
		p.methods[m.site.Method] = m
		p.sites = append(p.sites, m.site)
	}
	sort.Slice(p.sites, func(i, j int) bool { return p.sites[i].Method < p.sites[j].Method })
	for _, opt := range opts {
		opt(p)
	}
	if p.name == "" && len(p.sites) > 0 {
		p.name = p.sites[0].Type
	}
	return p, nil
}

// Invoke calls a method of the target through its interceptor chain.
// An unknown method fails with types.ErrNoSuchMethod and arguments that do not fit
// the signature fail with *types.ArgumentError, both before any advice runs.
// A leading context.Context parameter of the method receives ctx and is not part of args.
func (p *Proxy) Invoke(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	desc, ok := p.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrNoSuchMethod, p.Name(), method)
	}
	normalized, err := desc.normalize(args)
	if err != nil {
		return nil, err
	}
	chain := p.builder.Build(desc.site)
	return newInvocation(ctx, p, desc, chain, normalized).run()
}

// Chain returns the interceptor chain of a method.
func (p *Proxy) Chain(method string) (*InterceptorChain, error) {
	desc, ok := p.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrNoSuchMethod, p.Name(), method)
	}
	return p.builder.Build(desc.site), nil
}

// Name returns the bean name of the proxy, defaulting to the target type name.
func (p *Proxy) Name() string {
	return p.name
}

// Target returns the proxied object.
func (p *Proxy) Target() interface{} {
	return p.target
}

// Methods returns the call sites of the exported methods, sorted by name.
func (p *Proxy) Methods() []types.CallSite {
	return append([]types.CallSite(nil), p.sites...)
}

// HasMethod reports whether the target exports the method.
func (p *Proxy) HasMethod(method string) bool {
	_, ok := p.methods[method]
	return ok
}

// Call invokes a method and asserts the result type.
func Call[T any](ctx context.Context, p *Proxy, method string, args ...interface{}) (T, error) {
	var zero T
	res, err := p.Invoke(ctx, method, args...)
	if err != nil || res == nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("result of %s.%s is %T, not %T", p.Name(), method, res, zero)
	}
	return v, nil
}

// methodDesc is one entry of the dispatch table.
type methodDesc struct {
	site   types.CallSite
	fn     reflect.Value
	params []reflect.Type
	// withCtx marks a leading context.Context parameter.
	withCtx  bool
	variadic bool
	// numOut is the number of results excluding a trailing error.
	numOut int
	hasErr bool
}

// describe reflects the exported method set of target.
func describe(target interface{}) ([]*methodDesc, error) {
	v := reflect.ValueOf(target)
	t := v.Type()
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, types.NewConfigurationError(t.String(), "target is a nil pointer", nil)
	}
	elem := t
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	var methods []*methodDesc
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		fn := v.Method(i)
		mt := fn.Type()
		desc := &methodDesc{
			site: types.CallSite{
				PkgPath:  elem.PkgPath(),
				Type:     elem.String(),
				Method:   m.Name,
				Variadic: mt.IsVariadic(),
			},
			fn:       fn,
			variadic: mt.IsVariadic(),
		}
		for j := 0; j < mt.NumIn(); j++ {
			in := mt.In(j)
			if j == 0 && in == contextType {
				desc.withCtx = true
				continue
			}
			desc.params = append(desc.params, in)
			name := in.String()
			if desc.variadic && j == mt.NumIn()-1 {
				name = "..." + in.Elem().String()
			}
			desc.site.Params = append(desc.site.Params, name)
		}
		for j := 0; j < mt.NumOut(); j++ {
			desc.site.Results = append(desc.site.Results, mt.Out(j).String())
		}
		desc.numOut = mt.NumOut()
		if desc.numOut > 0 && mt.Out(desc.numOut-1) == errorType {
			desc.hasErr = true
			desc.numOut--
		}
		methods = append(methods, desc)
	}
	return methods, nil
}

// normalize checks the arity and converts every argument to its parameter type, so
// advice sees typed values. Variadic arguments are kept flat.
func (m *methodDesc) normalize(args []interface{}) ([]interface{}, error) {
	values, err := m.convert(args)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}
	return out, nil
}

func (m *methodDesc) convert(args []interface{}) ([]reflect.Value, error) {
	fixed := len(m.params)
	if m.variadic {
		fixed--
		if len(args) < fixed {
			return nil, m.arityError(args)
		}
	} else if len(args) != fixed {
		return nil, m.arityError(args)
	}
	values := make([]reflect.Value, len(args))
	for i, arg := range args {
		t := m.paramType(i)
		v, err := convertArg(arg, t)
		if err != nil {
			return nil, &types.ArgumentError{Method: m.site.String(), Index: i, Reason: err.Error()}
		}
		values[i] = v
	}
	return values, nil
}

func (m *methodDesc) paramType(i int) reflect.Type {
	if m.variadic && i >= len(m.params)-1 {
		return m.params[len(m.params)-1].Elem()
	}
	return m.params[i]
}

func (m *methodDesc) arityError(args []interface{}) error {
	want := fmt.Sprintf("%d", len(m.params))
	if m.variadic {
		want = fmt.Sprintf("at least %d", len(m.params)-1)
	}
	return &types.ArgumentError{Method: m.site.String(), Index: -1,
		Reason: fmt.Sprintf("want %s arguments, got %d", want, len(args))}
}

// call invokes the target method with the current arguments.
func (m *methodDesc) call(ctx context.Context, args []interface{}) (interface{}, error) {
	values, err := m.convert(args)
	if err != nil {
		return nil, err
	}
	if m.withCtx {
		values = append([]reflect.Value{reflect.ValueOf(&ctx).Elem()}, values...)
	}
	outs := m.fn.Call(values)

	if m.hasErr {
		if errV := outs[len(outs)-1]; !errV.IsNil() {
			return nil, errV.Interface().(error)
		}
	}
	switch m.numOut {
	case 0:
		return nil, nil
	case 1:
		return outs[0].Interface(), nil
	default:
		results := make([]interface{}, m.numOut)
		for i := 0; i < m.numOut; i++ {
			results[i] = outs[i].Interface()
		}
		return results, nil
	}
}
