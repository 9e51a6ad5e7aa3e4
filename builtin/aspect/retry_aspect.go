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
	"context"
	"errors"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/maps"
)

var (
	_ types.AroundAspect       = (*RetryAspect)(nil)
	_ types.ConfigurableAspect = (*RetryAspect)(nil)
)

// RetryConfig configures RetryAspect.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, the first call included.
	MaxAttempts int
	// Delay is the pause between attempts, e.g. "100ms" or 100 (ms).
	Delay time.Duration
}

// RetryAspect retries a failed call. Every attempt runs on a clone of the
// invocation, so it proceeds through the inner advice and the target again with
// the original arguments.
//
// RetryAspect 失败重试切面。每次尝试都基于调用上下文的副本，
// 使用原始参数重新经过内层增强点和目标方法。
//
// Not retried:
// 以下错误不重试：
//   - chain protocol violations (*types.InvalidChainStateError)  调用链协议错误
//   - invalid arguments (*types.ArgumentError)  参数错误
//   - types.ErrFallback and types.ErrConcurrencyLimitReached  熔断和限流错误
//   - errors rejected by Retryable  Retryable 返回 false 的错误
//
// The wait between attempts stops when the invocation context is done.
// 当调用的 context 结束时，停止等待并返回 context 错误。
type RetryAspect struct {
	Config RetryConfig
	// Retryable decides whether an error is retried. If nil, all errors except the
	// ones listed above are retried.
	Retryable func(err error) bool
	// PointCutFunc selects the call sites to retry. If nil, all call sites are retried.
	PointCutFunc func(site types.CallSite) bool
}

// Order 返回执行顺序
func (aspect *RetryAspect) Order() int {
	return 15
}

// New 创建新实例，默认最多尝试 3 次
func (aspect *RetryAspect) New() types.Aspect {
	c := aspect.Config
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return &RetryAspect{Config: c, Retryable: aspect.Retryable, PointCutFunc: aspect.PointCutFunc}
}

// Type 返回切面类型
func (aspect *RetryAspect) Type() string {
	return "retry"
}

// Init 初始化，configuration 例如 {"maxAttempts": 5, "delay": "200ms"}
func (aspect *RetryAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &aspect.Config); err != nil {
		return err
	}
	if aspect.Config.MaxAttempts <= 0 {
		return types.NewConfigurationError(aspect.Type(), "maxAttempts must be greater than 0", nil)
	}
	if aspect.Config.Delay < 0 {
		return types.NewConfigurationError(aspect.Type(), "delay must not be negative", nil)
	}
	return nil
}

// PointCut 默认切入所有方法
func (aspect *RetryAspect) PointCut(site types.CallSite) bool {
	return matchAll(aspect.PointCutFunc, site)
}

// Around runs up to MaxAttempts attempts and keeps the first success.
// Around 最多尝试 MaxAttempts 次，返回第一次成功的结果
func (aspect *RetryAspect) Around(inv types.Invocation) error {
	maxAttempts := aspect.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if waitErr := wait(inv.Context(), aspect.Config.Delay); waitErr != nil {
				return waitErr
			}
		}
		var res interface{}
		res, err = inv.Clone().Proceed()
		if err == nil {
			inv.SetResult(res)
			inv.Set(AttemptsKey, attempt)
			return nil
		}
		inv.Set(AttemptsKey, attempt)
		if !aspect.retryable(err) {
			break
		}
	}
	return err
}

// AttemptsKey is the invocation attribute holding the number of attempts made.
const AttemptsKey = "retry.attempts"

func (aspect *RetryAspect) retryable(err error) bool {
	var chainErr *types.InvalidChainStateError
	var argErr *types.ArgumentError
	if errors.As(err, &chainErr) || errors.As(err, &argErr) ||
		errors.Is(err, types.ErrFallback) || errors.Is(err, types.ErrConcurrencyLimitReached) {
		return false
	}
	if aspect.Retryable != nil {
		return aspect.Retryable(err)
	}
	return true
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
