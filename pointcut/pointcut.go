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

// Package pointcut implements the pointcut matchers used to select call sites.
//
// Pointcuts can be built programmatically:
//
//	pointcut.And(pointcut.Type("calc.MathCalculator"), pointcut.Method("Div*"))
//
// or compiled from an expression:
//
//	pointcut.Parse("execution(* calc.MathCalculator.*(..)) && !method(Sub)")
//	pointcut.Expr(`Type == "calc.MathCalculator" && len(Params) == 2`)
//	pointcut.Script(config, `return site.method.indexOf("Get") === 0`)
//
// Every pointcut is a pure function of the CallSite and is safe for concurrent use.
// Malformed patterns are reported as *types.ConfigurationError when the pointcut is
// built, never when it is matched.
//
// 切入点匹配器，用于选择需要增强的方法。
package pointcut

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/str"
)

const (
	// KindAspectJ AspectJ style expression, see Parse.
	KindAspectJ = "aspectj"
	// KindExpr expr-lang boolean expression over the CallSite fields.
	KindExpr = "expr"
	// KindJs JavaScript function body receiving `site`.
	KindJs = "js"
	// KindRegexp regular expression over "Type.Method".
	KindRegexp = "regexp"
)

// Compile builds a pointcut of the given kind. An empty kind defaults to KindAspectJ.
func Compile(kind, source string, config types.Config) (types.Pointcut, error) {
	switch strings.ToLower(kind) {
	case "", KindAspectJ:
		e, err := Parse(source)
		if err != nil {
			return nil, err
		}
		return e, nil
	case KindExpr:
		e, err := Expr(source)
		if err != nil {
			return nil, err
		}
		return e, nil
	case KindJs, "javascript":
		s, err := Script(config, source)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindRegexp, "regex":
		return Regexp(source)
	default:
		return nil, types.NewConfigurationError(source, fmt.Sprintf("unknown pointcut kind %q", kind), nil)
	}
}

// Any matches every call site.
func Any() types.Pointcut {
	return types.PointcutFunc(func(types.CallSite) bool { return true })
}

// Func wraps a predicate.
func Func(f func(site types.CallSite) bool) types.Pointcut {
	return types.PointcutFunc(f)
}

// Type matches the call sites declared by the named type. The name may be the short
// form ("calc.MathCalculator") or qualified with its package path.
func Type(name string) types.Pointcut {
	return types.PointcutFunc(func(site types.CallSite) bool {
		return site.Type == name || site.QualifiedType() == name
	})
}

// Method matches method names against a wildcard pattern, e.g. "Get*".
func Method(pattern string) types.Pointcut {
	m := newNameMatcher(pattern)
	return types.PointcutFunc(func(site types.CallSite) bool {
		return m.match(site.Method)
	})
}

// Arity matches methods declaring exactly n parameters.
func Arity(n int) types.Pointcut {
	return types.PointcutFunc(func(site types.CallSite) bool {
		return len(site.Params) == n
	})
}

// Params matches the parameter list. Each pattern matches one parameter type name;
// "*" matches any single parameter and ".." matches zero or more parameters.
func Params(patterns ...string) types.Pointcut {
	m := newParamMatcher(patterns)
	return types.PointcutFunc(func(site types.CallSite) bool {
		return m.match(site.Params)
	})
}

// Regexp matches "Type.Method" against a regular expression.
func Regexp(expr string) (types.Pointcut, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, types.NewConfigurationError(expr, "invalid regular expression", err)
	}
	return types.PointcutFunc(func(site types.CallSite) bool {
		return re.MatchString(site.Type + "." + site.Method)
	}), nil
}

// And matches when all pointcuts match. And() matches everything.
func And(pointcuts ...types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(site types.CallSite) bool {
		for _, p := range pointcuts {
			if !p.Matches(site) {
				return false
			}
		}
		return true
	})
}

// Or matches when any pointcut matches. Or() matches nothing.
func Or(pointcuts ...types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(site types.CallSite) bool {
		for _, p := range pointcuts {
			if p.Matches(site) {
				return true
			}
		}
		return false
	})
}

// Not negates a pointcut.
func Not(p types.Pointcut) types.Pointcut {
	return types.PointcutFunc(func(site types.CallSite) bool {
		return !p.Matches(site)
	})
}

// nameMatcher matches a name exactly, or against a wildcard pattern.
type nameMatcher struct {
	literal string
	re      *regexp.Regexp
	any     bool
}

func newNameMatcher(pattern string) nameMatcher {
	if pattern == "*" || pattern == "" {
		return nameMatcher{any: true}
	}
	if !str.IsGlob(pattern) {
		return nameMatcher{literal: pattern}
	}
	// A glob of quoted literals and wildcards always compiles.
	re, _ := str.GlobToRegexp(pattern)
	return nameMatcher{re: re}
}

func (m nameMatcher) match(name string) bool {
	if m.any {
		return true
	}
	if m.re != nil {
		return m.re.MatchString(name)
	}
	return m.literal == name
}

// typeMatcher matches the short or the qualified type name of a call site.
type typeMatcher struct {
	name nameMatcher
}

func newTypeMatcher(pattern string) typeMatcher {
	return typeMatcher{name: newNameMatcher(pattern)}
}

func (m typeMatcher) match(site types.CallSite) bool {
	return m.name.match(site.Type) || m.name.match(site.QualifiedType())
}

const anyParams = ".."

// paramMatcher matches a parameter list with "*" and ".." wildcards.
type paramMatcher struct {
	elems []nameMatcher
	// rest marks the positions holding "..".
	rest []bool
}

func newParamMatcher(patterns []string) paramMatcher {
	m := paramMatcher{
		elems: make([]nameMatcher, len(patterns)),
		rest:  make([]bool, len(patterns)),
	}
	for i, p := range patterns {
		p = strings.TrimSpace(p)
		if p == anyParams {
			m.rest[i] = true
			continue
		}
		m.elems[i] = newNameMatcher(p)
	}
	return m
}

func (m paramMatcher) match(params []string) bool {
	return m.matchFrom(0, params)
}

func (m paramMatcher) matchFrom(i int, params []string) bool {
	if i == len(m.elems) {
		return len(params) == 0
	}
	if m.rest[i] {
		for k := 0; k <= len(params); k++ {
			if m.matchFrom(i+1, params[k:]) {
				return true
			}
		}
		return false
	}
	if len(params) == 0 || !m.elems[i].match(params[0]) {
		return false
	}
	return m.matchFrom(i+1, params[1:])
}
