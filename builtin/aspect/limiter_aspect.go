/*
 * Copyright 2024 The RuleGo Authors.
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
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/maps"
)

var (
	_ types.AroundAspect       = (*ConcurrencyLimiterAspect)(nil)
	_ types.ConfigurableAspect = (*ConcurrencyLimiterAspect)(nil)
)

// LimiterConfig configures ConcurrencyLimiterAspect.
type LimiterConfig struct {
	// Max is the maximum number of concurrent calls  最大并发调用数量
	Max int64
}

// ConcurrencyLimiterAspect implements a concurrency limiter using atomic operations
// to restrict the number of concurrent calls of the advised methods.
//
// ConcurrencyLimiterAspect 使用原子操作实现并发限制器，限制被增强方法的并发调用数量。
//
// Features:
// 功能特性：
//   - Compare-and-swap (CAS) for consistent state  比较并交换（CAS）确保状态一致性
//   - The slot is released when the call leaves, whatever its outcome  调用离开时释放名额，无论结果如何
//   - Returns ErrConcurrencyLimitReached when limit exceeded, the target is not called
//     超过限制时返回 ErrConcurrencyLimitReached，目标方法不会被调用
//
// Usage:
// 使用方法：
//
//	// Create aspect with maximum 100 concurrent calls
//	// 创建最大 100 个并发调用的切面
//	limiter := aspect.NewConcurrencyLimiterAspect(100)
//	registry.AddAspects(limiter)
type ConcurrencyLimiterAspect struct {
	Max int64 // Maximum number of concurrent calls  最大并发调用数量
	// PointCutFunc selects the call sites to limit. If nil, all call sites share the limit.
	PointCutFunc func(site types.CallSite) bool
	currentCount int64 // Current number of concurrent calls  当前并发调用数量
}

// NewConcurrencyLimiterAspect creates a new concurrency limiter aspect with the specified
// maximum number of concurrent calls.
//
// NewConcurrencyLimiterAspect 创建具有指定最大并发调用数量的并发限制切面。
func NewConcurrencyLimiterAspect(max int) *ConcurrencyLimiterAspect {
	return &ConcurrencyLimiterAspect{
		Max: int64(max),
	}
}

// Order returns the execution priority of this aspect. Lower values execute earlier.
// This aspect has order 10, so rejected calls skip most of the other aspects.
//
// Order 返回此切面的执行优先级。值越低，执行越早。
// 此切面的顺序为 10，被拒绝的调用不会进入大部分其他切面。
func (a *ConcurrencyLimiterAspect) Order() int {
	return 10
}

// New creates a new instance of the aspect. Each instance maintains its own
// concurrency counter starting from zero.
//
// New 创建切面的新实例。每个实例维护自己的并发计数器，从零开始。
func (a *ConcurrencyLimiterAspect) New() types.Aspect {
	return &ConcurrencyLimiterAspect{
		Max:          a.Max,
		PointCutFunc: a.PointCutFunc,
	}
}

// Type 返回切面类型
func (a *ConcurrencyLimiterAspect) Type() string {
	return "limiter"
}

// Init 初始化，configuration 例如 {"max": 100}
func (a *ConcurrencyLimiterAspect) Init(config types.Config, configuration types.Configuration) error {
	c := LimiterConfig{Max: a.Max}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.Max <= 0 {
		return types.NewConfigurationError(a.Type(), "max must be greater than 0", nil)
	}
	a.Max = c.Max
	return nil
}

// PointCut determines which call sites this aspect applies to.
// PointCut 确定此切面应用于哪些方法。
func (a *ConcurrencyLimiterAspect) PointCut(site types.CallSite) bool {
	return matchAll(a.PointCutFunc, site)
}

// Around acquires a slot, proceeds and releases the slot.
//
// Around 获取名额，继续执行，最后释放名额。
//
// Algorithm:
// 算法：
//  1. Load current count atomically  原子加载当前计数
//  2. Check if limit would be exceeded  检查是否会超过限制
//  3. Use CAS to increment if within limit  如果在限制内则使用 CAS 增加
//  4. Retry if CAS fails due to concurrent modification  如果由于并发修改导致 CAS 失败则重试
func (a *ConcurrencyLimiterAspect) Around(inv types.Invocation) error {
	if !a.acquire() {
		return types.ErrConcurrencyLimitReached
	}
	defer a.release()
	_, err := inv.Proceed()
	return err
}

// Current returns the number of calls in progress.
// Current 返回当前并发调用数
func (a *ConcurrencyLimiterAspect) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}

func (a *ConcurrencyLimiterAspect) acquire() bool {
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return false
		}
		// 尝试原子地增加计数器，如果成功则退出循环
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			return true
		}
		// 如果CAS失败，说明有其他goroutine修改了计数器，重试
	}
}

func (a *ConcurrencyLimiterAspect) release() {
	atomic.AddInt64(&a.currentCount, -1)
}
