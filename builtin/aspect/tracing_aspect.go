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
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/maps"
	"github.com/rulego/aop/utils/str"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ types.AroundAspect       = (*TracingAspect)(nil)
	_ types.ConfigurableAspect = (*TracingAspect)(nil)
)

// DefaultTracerName is the instrumentation name of the spans.
const DefaultTracerName = "github.com/rulego/aop"

// Span attribute keys.
const (
	AttrInvocationId = "aop.invocation_id"
	AttrType         = "aop.type"
	AttrMethod       = "aop.method"
	AttrArguments    = "aop.arguments"
)

// TracingConfig configures TracingAspect.
type TracingConfig struct {
	// TracerName is the instrumentation name. Default DefaultTracerName.
	TracerName string
	// RecordArguments adds the json encoded arguments to the span.
	RecordArguments bool
}

// TracingAspect opens an OpenTelemetry span around every advised call.
// The span context is installed on the invocation, so inner advice and a target
// taking a context.Context see it as the parent span.
//
// TracingAspect 为每次被增强的调用创建 OpenTelemetry span。
// span 上下文会设置到调用上下文中，内层增强点和接收 context.Context 的目标方法都能获得父 span。
//
// Span:
//   - name: the call site, e.g. "calc.MathCalculator.Div(int,int)"  名称为方法签名
//   - attributes: invocation id, type, method  属性：调用 ID、类型、方法
//   - status: codes.Error with the error recorded when the call fails  调用失败时状态为 codes.Error 并记录错误
//
// Order 5 puts the span outside of every other built-in aspect.
// 顺序为 5，span 包含所有其他内置切面。
type TracingAspect struct {
	Config TracingConfig
	// TracerProvider defaults to the global provider, read at call time.
	TracerProvider trace.TracerProvider
	// PointCutFunc selects the call sites to trace. If nil, all call sites are traced.
	PointCutFunc func(site types.CallSite) bool
}

// Order 返回执行顺序
func (aspect *TracingAspect) Order() int {
	return 5
}

// New 创建新实例
func (aspect *TracingAspect) New() types.Aspect {
	return &TracingAspect{Config: aspect.Config, TracerProvider: aspect.TracerProvider, PointCutFunc: aspect.PointCutFunc}
}

// Type 返回切面类型
func (aspect *TracingAspect) Type() string {
	return "tracing"
}

// Init 初始化，configuration 例如 {"tracerName": "orders", "recordArguments": true}
func (aspect *TracingAspect) Init(config types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &aspect.Config)
}

// PointCut 默认切入所有方法
func (aspect *TracingAspect) PointCut(site types.CallSite) bool {
	return matchAll(aspect.PointCutFunc, site)
}

// Around 创建 span，继续执行，记录结果
func (aspect *TracingAspect) Around(inv types.Invocation) error {
	site := inv.CallSite()
	ctx, span := aspect.tracer().Start(inv.Context(), site.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrInvocationId, inv.ID()),
			attribute.String(AttrType, site.QualifiedType()),
			attribute.String(AttrMethod, site.Method),
		))
	defer span.End()
	if aspect.Config.RecordArguments {
		span.SetAttributes(attribute.String(AttrArguments, str.ToString(inv.Arguments())))
	}

	parent := inv.Context()
	inv.SetContext(ctx)
	_, err := inv.Proceed()
	inv.SetContext(parent)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (aspect *TracingAspect) tracer() trace.Tracer {
	provider := aspect.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	name := aspect.Config.TracerName
	if name == "" {
		name = DefaultTracerName
	}
	return provider.Tracer(name)
}
