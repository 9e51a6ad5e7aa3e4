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

// Package aspect provides the built-in aspects of the AOP engine.
// Each aspect bundles a pointcut and one or more advice methods addressing a
// cross-cutting concern, so the concern stays out of the business code.
//
// Package aspect 提供 AOP 引擎的内置切面。
// 每个切面由切入点和一个或多个增强方法组成，使横切关注点与业务代码分离。
//
// Available Built-in Aspects:
// 可用的内置切面：
//
//   - TracingAspect: Opens an OpenTelemetry span around every call
//     TracingAspect：为每次调用创建 OpenTelemetry span
//
//   - ConcurrencyLimiterAspect: Limits the concurrent calls of the advised methods
//     ConcurrencyLimiterAspect：限制被增强方法的并发调用数
//
//   - SkipFallbackAspect: Circuit breaker skipping methods that keep failing
//     SkipFallbackAspect：熔断器，跳过持续失败的方法
//
//   - ValidatorAspect: Validates struct arguments with validator tags
//     ValidatorAspect：使用 validator 标签校验结构体参数
//
//   - RetryAspect: Retries failed calls
//     RetryAspect：失败重试
//
//   - MetricsAspect: Collects call metrics
//     MetricsAspect：收集调用指标
//
//   - CacheAspect: Caches results by method and arguments
//     CacheAspect：按方法和参数缓存结果
//
//   - Debug: Logs the arguments and the outcome of every call
//     Debug：记录每次调用的参数和结果
//
// Aspect Execution Order:
// 切面执行顺序：
//
// Aspects enter the chain in order based on their Order() method:
// 切面根据其 Order() 方法按顺序进入调用链：
//  1. TracingAspect (order: 5)
//  2. ConcurrencyLimiterAspect (order: 10)
//  3. SkipFallbackAspect (order: 10)
//  4. ValidatorAspect (order: 10)
//  5. RetryAspect (order: 15)
//  6. MetricsAspect (order: 20)
//  7. CacheAspect (order: 30)
//  8. Debug (order: 900)
//
// Usage Examples:
// 使用示例：
//
//	registry := engine.NewRegistry(config)
//	_ = registry.AddAspects(&aspect.Debug{}, aspect.NewConcurrencyLimiterAspect(100))
//	builder, _ := engine.NewChainBuilder(registry, config)
//	proxy, _ := engine.CreateProxy(&Calculator{}, builder)
//
// Every built-in aspect is also registered as a prototype, so it can be declared by
// its Type() in a DSL file and configured through Init.
// 每个内置切面同时注册为原型，可以在 DSL 文件中按 Type() 声明并通过 Init 配置。
package aspect

import (
	"github.com/rulego/aop/api/types"
)

// Builtins returns the prototypes of the built-in aspects.
// Builtins 返回内置切面原型列表。
func Builtins() []types.ConfigurableAspect {
	return []types.ConfigurableAspect{
		&TracingAspect{},
		&ConcurrencyLimiterAspect{},
		&SkipFallbackAspect{},
		&ValidatorAspect{},
		&RetryAspect{},
		&MetricsAspect{},
		&CacheAspect{},
		&Debug{},
	}
}

// matchAll is the default pointcut of the built-in aspects.
func matchAll(pointCut func(site types.CallSite) bool, site types.CallSite) bool {
	if pointCut != nil {
		return pointCut(site)
	}
	return true
}
