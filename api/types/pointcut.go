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

package types

import (
	"strings"
)

// CallSite describes one operation of a proxied target: the declaring type and the
// method signature. It is the only input a Pointcut sees, so a pointcut decision for a
// given CallSite never changes during the lifetime of a proxy.
//
// CallSite 描述被代理目标的一个方法：声明类型和方法签名。切入点只依赖该描述进行判断。
type CallSite struct {
	// PkgPath is the import path of the package declaring the type, e.g. "example.com/calc".
	PkgPath string
	// Type is the short type name without pointer marker, e.g. "calc.MathCalculator".
	Type string
	// Method is the method name, e.g. "Div".
	Method string
	// Params are the parameter type names. A leading context.Context parameter is omitted.
	Params []string
	// Results are the result type names, including a trailing error if declared.
	Results []string
	// Variadic reports whether the last parameter is variadic.
	Variadic bool
}

// QualifiedType returns the type name qualified with its full package path,
// e.g. "example.com/calc.MathCalculator".
func (s CallSite) QualifiedType() string {
	if s.PkgPath == "" {
		return s.Type
	}
	return s.PkgPath + "." + s.TypeName()
}

// TypeName returns the type name without its package name, type arguments included,
// e.g. "MathCalculator" or "Box[example.com/calc.A]".
func (s CallSite) TypeName() string {
	name := s.Type
	// the package separator comes before the type arguments of a generic type
	head := name
	if i := strings.IndexByte(head, '['); i >= 0 {
		head = head[:i]
	}
	if i := strings.LastIndexByte(head, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Key returns the identity of the call site used to cache interceptor chains.
func (s CallSite) Key() string {
	return s.QualifiedType() + "#" + s.Method
}

// String returns a readable signature, e.g. "calc.MathCalculator.Div(int,int)".
func (s CallSite) String() string {
	var b strings.Builder
	b.WriteString(s.Type)
	b.WriteByte('.')
	b.WriteString(s.Method)
	b.WriteByte('(')
	b.WriteString(strings.Join(s.Params, ","))
	b.WriteByte(')')
	return b.String()
}

// Pointcut decides whether advice applies to a call site.
// Implementations must be pure and safe for concurrent use.
//
// Pointcut 切入点，判断增强点是否作用于某个方法。实现必须是无副作用且并发安全的。
type Pointcut interface {
	Matches(site CallSite) bool
}

// PointcutFunc adapts a function to the Pointcut interface.
type PointcutFunc func(site CallSite) bool

// Matches implements Pointcut.
func (f PointcutFunc) Matches(site CallSite) bool {
	return f(site)
}
