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

// Package dsl defines the declarative aspect definition format and resolves a
// definition into advice rules.
//
// A definition lists the aspects to weave, for example:
//
//	aspects:
//	  - name: cacheDiv
//	    type: cache
//	    order: 30
//	    pointcut: execution(* Div(..))
//	    configuration:
//	      ttl: 30s
//	  - name: audit
//	    type: auditAction
//	    kinds: [before, afterThrowing]
//	    pointcutType: expr
//	    pointcut: Type == "calc.MathCalculator"
//
// `type` is either a registered aspect prototype (see engine.AspectRegistry) or a
// registered named action.
//
// dsl 包定义声明式切面配置格式，并把配置解析为增强规则。
package dsl

import (
	"github.com/rulego/aop/api/types"
)

// Definition 切面配置定义
type Definition struct {
	//Aspects 切面列表
	Aspects []AspectDef `json:"aspects" yaml:"aspects" validate:"dive"`
}

// AspectDef 切面定义
type AspectDef struct {
	//Name 切面名称，作为规则名称，在日志、错误和 IncludePatterns 中使用
	Name string `json:"name" yaml:"name" validate:"required"`
	//Type 切面类型，与已注册的切面原型类型或命名增强动作匹配
	Type string `json:"type" yaml:"type" validate:"required"`
	//Order 执行顺序，值越小越先进入。为空时使用切面原型的 Order()，命名增强动作默认为 0
	Order *int `json:"order,omitempty" yaml:"order,omitempty"`
	//Pointcut 切入点表达式。切面原型的切入点与该表达式同时满足时才生效
	//命名增强动作必须配置切入点
	Pointcut string `json:"pointcut,omitempty" yaml:"pointcut,omitempty"`
	//PointcutType 切入点表达式类型：aspectj(默认)、expr、js、regexp
	PointcutType string `json:"pointcutType,omitempty" yaml:"pointcutType,omitempty" validate:"omitempty,oneof=aspectj expr js javascript regexp regex"`
	//Kinds 增强类型：before、afterReturning、afterThrowing、after、around
	//命名增强动作必须配置，切面原型则用于只启用部分增强方法
	Kinds []string `json:"kinds,omitempty" yaml:"kinds,omitempty" validate:"dive,required"`
	//Disabled 是否禁用
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	//Configuration 切面配置，具体内容取决于切面类型，字符串值支持 ${global.xx} 变量
	Configuration types.Configuration `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}
