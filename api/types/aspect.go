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

package types

import (
	"fmt"
	"strings"
)

// The package provides AOP (Aspect Oriented Programming) mechanism for plain Go values.
// A proxy wraps a target and routes every method call through an ordered chain of
// advice, without modifying the target itself.
//
// 该包为普通 Go 对象提供 AOP(面向切面编程)机制。代理对象包装目标对象，
// 每次方法调用都会经过一条有序的增强链，而无需修改目标对象本身。

// Kind is the kind of advice. It decides where an advice runs relative to the
// remaining chain.
// Kind 增强类型，决定增强点相对于后续调用链的执行位置。
type Kind int

const (
	// Before runs before the remaining chain.
	Before Kind = iota + 1
	// AfterReturning runs on the unwind path when the inner chain completed without error.
	AfterReturning
	// AfterThrowing runs on the unwind path when the inner chain produced an error.
	AfterThrowing
	// After runs on the unwind path regardless of the outcome.
	After
	// Around wraps the remaining chain and decides whether and when to proceed.
	Around
)

var kindNames = map[Kind]string{
	Before:         "before",
	AfterReturning: "afterReturning",
	AfterThrowing:  "afterThrowing",
	After:          "after",
	Around:         "around",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses a kind name case-insensitively. Both "afterReturning" and
// "after_returning" are accepted.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for k, v := range kindNames {
		if strings.ToLower(v) == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown advice kind %q", name)
}

// Action is the behavior of an advice. Around actions continue the chain with
// inv.Proceed(); returning a non-nil error raises it from the advice.
type Action func(inv Invocation) error

// Rule is a registered advice: which call sites it applies to, when it runs and in
// which order. A Rule is immutable once registered.
//
// Rule 增强规则：作用于哪些方法、何时执行以及执行顺序。注册后不可修改。
type Rule struct {
	// Name identifies the rule in logs and errors, usually the aspect name.
	Name string
	// Kind is the advice kind.
	Kind Kind
	// Pointcut selects call sites. Either Pointcut or Expression must be set.
	Pointcut Pointcut
	// Expression is a pointcut expression compiled at registration when Pointcut is nil.
	Expression string
	// Order is the execution order, the smaller the value, the earlier the advice enters.
	Order int
	// Action is the advice behavior.
	Action Action
}

func (r Rule) String() string {
	return fmt.Sprintf("%s[%s,order=%d]", r.Name, r.Kind, r.Order)
}

// Aspect is the base interface for aspect objects. An aspect bundles a pointcut and
// one or more advice methods; the registry expands it into rules.
//
// Aspect 切面接口的基类
type Aspect interface {
	//Order returns the execution order, the smaller the value, the higher the priority
	//Order 返回执行顺序，值越小，优先级越高
	Order() int
	//PointCut declares a cut-in point, used to determine whether to execute the advice
	//PointCut 声明一个切入点，用于判断是否需要执行增强点
	//For example: return site.Type == "calc.MathCalculator"
	PointCut(site CallSite) bool
}

// BeforeAspect is the interface for pre-execution advice.
// BeforeAspect 方法执行之前的增强点接口
type BeforeAspect interface {
	Aspect
	// Before runs before the remaining chain. Returning an error, or setting a result,
	// short-circuits the call.
	Before(inv Invocation) error
}

// AfterReturningAspect is the interface for advice that runs after a successful call.
// AfterReturningAspect 方法正常返回之后的增强点接口
type AfterReturningAspect interface {
	Aspect
	// AfterReturning may rewrite the result with inv.SetResult.
	AfterReturning(inv Invocation) error
}

// AfterThrowingAspect is the interface for advice that runs after a failed call.
// AfterThrowingAspect 方法抛出错误之后的增强点接口
type AfterThrowingAspect interface {
	Aspect
	// AfterThrowing observes inv.Thrown(). Returning a different error translates it,
	// returning nil keeps the original error.
	AfterThrowing(inv Invocation) error
}

// AfterAspect is the interface for advice that always runs on the unwind path.
// AfterAspect 方法执行之后(无论成功与否)的增强点接口
type AfterAspect interface {
	Aspect
	After(inv Invocation) error
}

// AroundAspect is the interface for around advice.
// AroundAspect 方法执行环绕增强点接口
type AroundAspect interface {
	Aspect
	//Around wraps the remaining chain. The aspect must call inv.Proceed() to continue,
	//otherwise the target method is not invoked.
	//Around 环绕增强点。切面需要调用 inv.Proceed() 继续执行，否则目标方法不会被调用。
	Around(inv Invocation) error
}

// NamedAspect is implemented by aspects that provide a readable name for their rules.
type NamedAspect interface {
	Aspect
	Type() string
}

// Configuration is a raw key/value configuration of a declared aspect.
type Configuration map[string]interface{}

// ConfigurableAspect is an aspect prototype that can be instantiated from a
// declarative definition, the same way rule chain components are.
//
// ConfigurableAspect 可通过声明式配置创建的切面原型
type ConfigurableAspect interface {
	NamedAspect
	// New returns a fresh, unconfigured instance.
	New() Aspect
	// Init configures the instance.
	Init(config Config, configuration Configuration) error
}

// Stoppable is implemented by aspects holding background resources.
type Stoppable interface {
	Stop()
}
