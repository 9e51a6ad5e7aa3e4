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
	"sort"
	"sync"

	"github.com/rulego/aop/api/types"
)

// AutoProxyCreator decides, bean by bean, whether an object needs a proxy.
// A bean is proxied only when at least one eligible rule matches at least one of its
// methods. Aspects themselves are infrastructure and are never proxied.
//
// AutoProxyCreator 自动代理创建器：只有存在匹配的增强规则时才创建代理。
type AutoProxyCreator struct {
	builder *ChainBuilder
	mu      sync.RWMutex
	proxies map[string]*Proxy
}

// NewAutoProxyCreator creates an auto-proxy creator over a chain builder.
func NewAutoProxyCreator(builder *ChainBuilder) *AutoProxyCreator {
	return &AutoProxyCreator{builder: builder, proxies: make(map[string]*Proxy)}
}

// Wrap returns a proxy for the bean and true when advice applies to it, otherwise
// the bean itself and false. Created proxies are kept by name.
func (c *AutoProxyCreator) Wrap(name string, bean interface{}) (interface{}, bool) {
	if bean == nil {
		return bean, false
	}
	switch bean.(type) {
	case types.Aspect, *Proxy:
		return bean, false
	}
	methods, err := describe(bean)
	if err != nil {
		c.builder.Config().Logger.Printf("skip auto proxy of bean %s: %s", name, err.Error())
		return bean, false
	}
	advised := false
	for _, m := range methods {
		if c.builder.Build(m.site).Len() > 0 {
			advised = true
			break
		}
	}
	if !advised {
		return bean, false
	}
	proxy, err := CreateProxy(bean, c.builder, WithBeanName(name))
	if err != nil {
		c.builder.Config().Logger.Printf("create proxy of bean %s error: %s", name, err.Error())
		return bean, false
	}
	c.mu.Lock()
	c.proxies[name] = proxy
	c.mu.Unlock()
	return proxy, true
}

// Create always proxies the bean, advised or not, and keeps the proxy by name.
// Create 无论是否存在匹配的增强规则都创建代理
func (c *AutoProxyCreator) Create(name string, bean interface{}) (*Proxy, error) {
	if p, ok := bean.(*Proxy); ok {
		return p, nil
	}
	proxy, err := CreateProxy(bean, c.builder, WithBeanName(name))
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.proxies[name] = proxy
	c.mu.Unlock()
	return proxy, nil
}

// Proxy returns a proxy created by Wrap or Create.
func (c *AutoProxyCreator) Proxy(name string) (*Proxy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.proxies[name]
	return p, ok
}

// Names returns the names of the proxied beans, sorted.
func (c *AutoProxyCreator) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.proxies))
	for k := range c.proxies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
