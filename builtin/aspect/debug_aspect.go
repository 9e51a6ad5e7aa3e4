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
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/maps"
	"github.com/rulego/aop/utils/str"
	"go.uber.org/zap"
)

var (
	// Compile-time check Debug implements types.BeforeAspect.
	_ types.BeforeAspect = (*Debug)(nil)
	// Compile-time check Debug implements types.AfterAspect.
	_ types.AfterAspect = (*Debug)(nil)
	_ types.ConfigurableAspect = (*Debug)(nil)
)

// DebugConfig configures the Debug aspect.
type DebugConfig struct {
	// Arguments logs the call arguments when true.
	Arguments bool
	// Result logs the call result when true.
	Result bool
}

// Debug is a debug logging aspect that logs every advised call when it enters and
// when it leaves, with its arguments, result and error.
//
// Debug 是一个调试日志切面，在调用进入和离开时记录参数、结果和错误。
//
// Features:
// 功能特性：
//   - Logs the call when it enters (In flow)  记录调用进入（In 流）
//   - Logs the outcome when it leaves (Out flow)  记录调用离开（Out 流）
//   - Forwards both flows to Config.OnDebug  同时转发到 Config.OnDebug 回调
//
// Usage:
// 使用方法：
//
//	registry.AddAspects(&aspect.Debug{Logger: zap.NewExample()})
type Debug struct {
	Config DebugConfig
	// Logger receives the debug entries. Defaults to the engine logger.
	Logger *zap.Logger
	// PointCutFunc selects the call sites to log. If nil, all call sites are logged.
	PointCutFunc func(site types.CallSite) bool
	onDebug      func(flowType string, site types.CallSite, advice string, err error)
}

// Order returns the execution order of this aspect. Higher values execute later.
// Debug aspect executes with order 900, making it one of the last aspects to enter,
// so it sees the arguments as the target receives them.
//
// Order 返回此切面的执行顺序。值越高，执行越晚。
// Debug 切面的执行顺序为 900，最后进入调用链，记录的参数与目标方法收到的一致。
func (aspect *Debug) Order() int {
	return 900
}

// New creates a new instance of the Debug aspect.
// New 创建 Debug 切面的新实例。
func (aspect *Debug) New() types.Aspect {
	return &Debug{Config: DebugConfig{Arguments: true, Result: true}}
}

// Type returns the unique identifier for this aspect type.
//
// Type 返回此切面类型的唯一标识符。
func (aspect *Debug) Type() string {
	return "debug"
}

// Init 初始化
func (aspect *Debug) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &aspect.Config); err != nil {
		return err
	}
	if aspect.Logger == nil {
		aspect.Logger = types.ZapOf(config.Logger)
	}
	aspect.onDebug = config.OnDebug
	return nil
}

// PointCut applies to all call sites unless PointCutFunc is set.
// PointCut 默认切入所有方法
func (aspect *Debug) PointCut(site types.CallSite) bool {
	return matchAll(aspect.PointCutFunc, site)
}

// Before logs the In flow.
// Before 记录流入
func (aspect *Debug) Before(inv types.Invocation) error {
	site := inv.CallSite()
	fields := []zap.Field{zap.String("id", inv.ID()), zap.String("site", site.String())}
	if aspect.Config.Arguments {
		fields = append(fields, zap.String("arguments", str.ToString(inv.Arguments())))
	}
	aspect.logger().Debug(types.In, fields...)
	if aspect.onDebug != nil {
		aspect.onDebug(types.In, site, aspect.Type(), nil)
	}
	return nil
}

// After logs the Out flow.
// After 记录流出
func (aspect *Debug) After(inv types.Invocation) error {
	site := inv.CallSite()
	fields := []zap.Field{zap.String("id", inv.ID()), zap.String("site", site.String())}
	if err := inv.Thrown(); err != nil {
		fields = append(fields, zap.Error(err))
	} else if aspect.Config.Result {
		fields = append(fields, zap.String("result", str.ToString(inv.Result())))
	}
	aspect.logger().Debug(types.Out, fields...)
	if aspect.onDebug != nil {
		aspect.onDebug(types.Out, site, aspect.Type(), inv.Thrown())
	}
	return nil
}

func (aspect *Debug) logger() *zap.Logger {
	if aspect.Logger == nil {
		return zap.NewNop()
	}
	return aspect.Logger
}
