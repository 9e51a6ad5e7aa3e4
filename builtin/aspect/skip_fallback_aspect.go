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

package aspect

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/maps"
)

var (
	// Compile-time check SkipFallbackAspect implements types.AroundAspect.
	_ types.AroundAspect = (*SkipFallbackAspect)(nil)
	// Compile-time check SkipFallbackAspect implements types.AfterThrowingAspect.
	_ types.AfterThrowingAspect = (*SkipFallbackAspect)(nil)
	_ types.ConfigurableAspect  = (*SkipFallbackAspect)(nil)
)

// FallbackConfig configures SkipFallbackAspect.
type FallbackConfig struct {
	// ErrorCountLimit is the number of consecutive errors opening the circuit.
	ErrorCountLimit int64
	// LimitDuration is how long the circuit stays open, e.g. "10s" or 10000 (ms).
	LimitDuration time.Duration
}

// SkipFallbackAspect implements a circuit breaker pattern for failing methods.
// It automatically skips the call when the error count of a method reaches the
// threshold, preventing cascade failures.
//
// SkipFallbackAspect 实现方法故障处理的熔断器模式。
// 当某方法的错误计数达到阈值时，它自动跳过调用，防止级联故障。
//
// Circuit Breaker Logic:
// 熔断器逻辑：
//  1. Track consecutive errors per call site  跟踪每个方法的连续错误计数
//  2. Skip execution when error count >= ErrorCountLimit  错误计数 >= ErrorCountLimit 时跳过执行
//  3. Automatically recover after LimitDuration expires  LimitDuration 过期后自动恢复
//  4. Reset error count on success  调用成功时重置错误计数
//
// A skipped call fails with types.ErrFallback and is not counted as an error.
// 被跳过的调用返回 types.ErrFallback，且不计入错误次数。
//
// Usage:
// 使用方法：
//
//	fallback := &SkipFallbackAspect{
//		ErrorCountLimit: 5,
//		LimitDuration:   time.Minute * 2,
//	}
//	registry.AddAspects(fallback.New())
type SkipFallbackAspect struct {
	// ErrorCountLimit is the maximum number of consecutive errors before
	// triggering circuit breaker. Default is 3 if not specified.
	//
	// ErrorCountLimit 是触发熔断器之前的最大连续错误数。如果未指定，默认为 3。
	ErrorCountLimit int64

	// LimitDuration is the time period for which the circuit breaker remains
	// active. After this duration, the method will be retried. Default is 10 seconds.
	//
	// LimitDuration 是熔断器保持活跃的时间周期。在此持续时间后，方法将重试。默认为 10 秒。
	LimitDuration time.Duration

	// PointCutFunc is an optional function to determine which call sites should
	// have circuit breaker applied. If nil, applies to all call sites.
	//
	// PointCutFunc 是一个可选函数，用于确定哪些方法应该应用熔断器。如果为 nil，则应用于所有方法。
	PointCutFunc func(site types.CallSite) bool

	// siteErrors stores error information per call site.
	// Key: site.Key(), Value: *SiteError
	//
	// siteErrors 存储每个方法的错误信息
	siteErrors sync.Map
}

// Order returns the execution order of this aspect. Lower values execute earlier.
//
// Order 返回此切面的执行顺序。值越低，执行越早。
func (aspect *SkipFallbackAspect) Order() int {
	return 10
}

// New creates a new instance of the circuit breaker aspect.
// It applies default values if ErrorCountLimit or LimitDuration are not specified.
//
// New 创建熔断器切面新实例。如果未指定 ErrorCountLimit 或 LimitDuration，它会应用默认值。
//
// Default Values:
// 默认值：
//   - ErrorCountLimit: 3 consecutive errors  连续 3 次错误
//   - LimitDuration: 10 seconds  10 秒
func (aspect *SkipFallbackAspect) New() types.Aspect {
	var errorCountLimit = aspect.ErrorCountLimit
	var limitDuration = aspect.LimitDuration
	if errorCountLimit == 0 {
		errorCountLimit = 3
	}
	if limitDuration == 0 {
		limitDuration = time.Second * 10
	}
	return &SkipFallbackAspect{ErrorCountLimit: errorCountLimit, LimitDuration: limitDuration, PointCutFunc: aspect.PointCutFunc}
}

// Type returns the unique identifier for this aspect type.
//
// Type 返回此切面类型的唯一标识符。
func (aspect *SkipFallbackAspect) Type() string {
	return "fallback"
}

// Init 初始化，configuration 例如 {"errorCountLimit": 5, "limitDuration": "1m"}
func (aspect *SkipFallbackAspect) Init(config types.Config, configuration types.Configuration) error {
	c := FallbackConfig{ErrorCountLimit: aspect.ErrorCountLimit, LimitDuration: aspect.LimitDuration}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.ErrorCountLimit < 0 || c.LimitDuration < 0 {
		return types.NewConfigurationError(aspect.Type(), "errorCountLimit and limitDuration must not be negative", nil)
	}
	if c.ErrorCountLimit > 0 {
		aspect.ErrorCountLimit = c.ErrorCountLimit
	}
	if c.LimitDuration > 0 {
		aspect.LimitDuration = c.LimitDuration
	}
	return nil
}

// PointCut determines which call sites should have circuit breaker logic applied.
//
// PointCut 确定哪些方法应该应用熔断器逻辑。
func (aspect *SkipFallbackAspect) PointCut(site types.CallSite) bool {
	return matchAll(aspect.PointCutFunc, site)
}

// Around 判断是否执行降级逻辑，调用成功则重置错误计数
func (aspect *SkipFallbackAspect) Around(inv types.Invocation) error {
	key := inv.CallSite().Key()
	if siteError, ok := aspect.getSiteError(key); ok &&
		atomic.LoadInt64(&siteError.errorCount) >= aspect.ErrorCountLimit {
		if atomic.LoadInt64(&siteError.lastErrorTime)+aspect.LimitDuration.Milliseconds() < time.Now().UnixMilli() {
			//超过时间，清除错误记录
			aspect.siteErrors.Delete(key)
		} else {
			//出错次数达到阈值，执行降级
			return types.ErrFallback
		}
	}
	if _, err := inv.Proceed(); err != nil {
		return err
	}
	aspect.siteErrors.Delete(key)
	return nil
}

// AfterThrowing 如果出现错误，则记录错误次数
func (aspect *SkipFallbackAspect) AfterThrowing(inv types.Invocation) error {
	if errors.Is(inv.Thrown(), types.ErrFallback) {
		return nil
	}
	siteError := &SiteError{}
	if v, loaded := aspect.siteErrors.LoadOrStore(inv.CallSite().Key(), siteError); loaded {
		siteError = v.(*SiteError)
	}
	atomic.AddInt64(&siteError.errorCount, 1)
	atomic.StoreInt64(&siteError.lastErrorTime, time.Now().UnixMilli())
	return nil
}

// ErrorCount returns the consecutive error count of a call site.
// ErrorCount 返回方法的连续错误次数
func (aspect *SkipFallbackAspect) ErrorCount(site types.CallSite) int64 {
	if siteError, ok := aspect.getSiteError(site.Key()); ok {
		return atomic.LoadInt64(&siteError.errorCount)
	}
	return 0
}

func (aspect *SkipFallbackAspect) getSiteError(key string) (*SiteError, bool) {
	if v, ok := aspect.siteErrors.Load(key); ok {
		if siteError, ok := v.(*SiteError); ok {
			return siteError, true
		}
	}
	return nil, false
}

// SiteError represents the error tracking information for a specific call site.
//
// SiteError 表示特定方法的错误跟踪信息。
type SiteError struct {
	// errorCount tracks the number of consecutive errors.
	// errorCount 跟踪连续错误数量。
	errorCount int64

	// lastErrorTime stores the timestamp (in milliseconds) of the most recent error.
	// lastErrorTime 存储最近错误的时间戳（毫秒）。
	lastErrorTime int64
}
