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

package aspect

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/cache"
	"github.com/rulego/aop/utils/json"
	"github.com/rulego/aop/utils/maps"
)

var (
	_ types.AroundAspect       = (*CacheAspect)(nil)
	_ types.ConfigurableAspect = (*CacheAspect)(nil)
	_ types.Stoppable          = (*CacheAspect)(nil)
)

// CacheHitKey is the invocation attribute set to true when the result came from the cache.
const CacheHitKey = "cache.hit"

// CacheConfig configures CacheAspect.
type CacheConfig struct {
	// Ttl is the lifetime of a cached result, e.g. "30s". 0 keeps results forever.
	Ttl time.Duration
	// EvictSpec is the cron spec of the expired entries cleanup. Default "@every 1m".
	EvictSpec string
	// Namespace prefixes the cache keys. Default "aop:".
	Namespace string
}

// CacheAspect caches the successful results of the advised methods, keyed by call
// site and json encoded arguments. A hit short-circuits the call: the inner advice
// and the target do not run. Errors are never cached.
//
// CacheAspect 缓存被增强方法的成功结果，缓存键由方法和 json 编码后的参数组成。
// 命中缓存时直接返回，内层增强点和目标方法都不会执行。错误结果不缓存。
//
// Expired entries are removed by a cron job, started by Init and stopped by Stop.
// 过期缓存由定时任务清除，Init 时启动，Stop 时停止。
//
// Usage:
// 使用方法：
//
//	cacheAspect := aspect.NewCacheAspect(time.Minute)
//	defer cacheAspect.Stop()
//	registry.AddAspects(cacheAspect)
type CacheAspect struct {
	Config CacheConfig
	// Cache is the result store. Defaults to an in-memory cache.
	Cache cache.Cache
	// PointCutFunc selects the call sites to cache. If nil, all call sites are cached.
	PointCutFunc func(site types.CallSite) bool
	store        *cache.NamespaceCache
	cron         *cron.Cron
	logger       types.Logger
	mu           sync.Mutex
}

// NewCacheAspect creates a cache aspect over an in-memory store and starts the
// eviction job.
func NewCacheAspect(ttl time.Duration) *CacheAspect {
	a := &CacheAspect{Config: CacheConfig{Ttl: ttl}}
	_ = a.Init(types.NewConfig(), nil)
	return a
}

// Order 返回执行顺序
func (a *CacheAspect) Order() int {
	return 30
}

// New 创建新实例
func (a *CacheAspect) New() types.Aspect {
	return &CacheAspect{Config: a.Config, PointCutFunc: a.PointCutFunc}
}

// Type 返回切面类型
func (a *CacheAspect) Type() string {
	return "cache"
}

// Init 初始化，configuration 例如 {"ttl": "30s", "evictSpec": "@every 10s"}
func (a *CacheAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if a.Config.Ttl < 0 {
		return types.NewConfigurationError(a.Type(), "ttl must not be negative", nil)
	}
	if a.Config.EvictSpec == "" {
		a.Config.EvictSpec = "@every 1m"
	}
	if a.Config.Namespace == "" {
		a.Config.Namespace = "aop:"
	}
	if a.Cache == nil {
		a.Cache = cache.NewMemoryCache()
	}
	a.store = cache.NewNamespaceCache(a.Cache, a.Config.Namespace)
	a.logger = types.NewLogger(config.Logger)
	return a.startEviction()
}

func (a *CacheAspect) startEviction() error {
	evictor, ok := a.Cache.(interface{ DeleteExpired() int })
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		a.cron.Stop()
	}
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.Config.EvictSpec, func() {
		if n := evictor.DeleteExpired(); n > 0 && a.logger != nil {
			a.logger.Printf("cache aspect evicted %d expired entries", n)
		}
	}); err != nil {
		a.cron = nil
		return types.NewConfigurationError(a.Type(), "invalid evictSpec", err)
	}
	a.cron.Start()
	return nil
}

// Stop stops the eviction job.
// Stop 停止过期清除任务
func (a *CacheAspect) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
}

// PointCut 默认切入所有方法
func (a *CacheAspect) PointCut(site types.CallSite) bool {
	return matchAll(a.PointCutFunc, site)
}

// Around returns the cached result or proceeds and caches the result.
// Around 命中缓存则直接返回，否则继续执行并缓存结果
func (a *CacheAspect) Around(inv types.Invocation) error {
	if a.store == nil {
		_, err := inv.Proceed()
		return err
	}
	key, ok := a.key(inv)
	if !ok {
		_, err := inv.Proceed()
		return err
	}
	if v, found := a.store.Get(key); found {
		inv.Set(CacheHitKey, true)
		inv.SetResult(v)
		return nil
	}
	res, err := inv.Proceed()
	if err != nil {
		return err
	}
	a.store.Set(key, res, a.Config.Ttl)
	return nil
}

// Evict removes the cached results of a call site.
// Evict 清除某个方法的缓存结果
func (a *CacheAspect) Evict(site types.CallSite) {
	if a.store != nil {
		a.store.DeleteByPrefix(site.Key() + ":")
	}
}

// Clear removes every cached result.
func (a *CacheAspect) Clear() {
	if a.store != nil {
		a.store.Clear()
	}
}

func (a *CacheAspect) key(inv types.Invocation) (string, bool) {
	b, err := json.Marshal(inv.Arguments())
	if err != nil {
		return "", false
	}
	return inv.CallSite().Key() + ":" + string(b), true
}
