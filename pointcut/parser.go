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

package pointcut

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rulego/aop/api/types"
)

// Expression is a compiled AspectJ style pointcut expression.
//
// Grammar:
//
//	expr       = or
//	or         = and { ("||" | "or") and }
//	and        = unary { ("&&" | "and") unary }
//	unary      = ("!" | "not") unary | "(" expr ")" | designator
//	designator = name "(" body ")"
//
// Designators:
//
//	execution([RetPattern] [TypePattern.]MethodPattern(ParamList))
//	within(TypePattern)
//	method(MethodPattern)
//	args(ParamList)
//
// `*` matches any run of characters. Inside a ParamList `*` matches exactly one
// parameter and `..` matches zero or more parameters.
type Expression struct {
	source string
	root   types.Pointcut
}

// Matches implements types.Pointcut.
func (e *Expression) Matches(site types.CallSite) bool {
	return e.root.Matches(site)
}

func (e *Expression) String() string {
	return e.source
}

// Parse compiles an AspectJ style pointcut expression.
func Parse(source string) (*Expression, error) {
	p := &parser{src: source}
	if strings.TrimSpace(source) == "" {
		return nil, p.errorf("empty pointcut expression")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return &Expression{source: source, root: root}, nil
}

// MustParse is like Parse but panics if the expression is malformed.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return types.NewConfigurationError(p.src, fmt.Sprintf("%s at position %d", fmt.Sprintf(format, args...), p.pos), nil)
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

// accept consumes op if it is next. Word operators must not be followed by an
// identifier character.
func (p *parser) accept(op string) bool {
	p.skipSpaces()
	if !strings.HasPrefix(p.src[p.pos:], op) {
		return false
	}
	end := p.pos + len(op)
	if isIdentChar(op[0]) && end < len(p.src) && isIdentChar(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) parseOr() (types.Pointcut, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []types.Pointcut{left}
	for p.accept("||") || p.accept("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return Or(terms...), nil
}

func (p *parser) parseAnd() (types.Pointcut, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []types.Pointcut{left}
	for p.accept("&&") || p.accept("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, right)
	}
	if len(terms) == 1 {
		return left, nil
	}
	return And(terms...), nil
}

func (p *parser) parseUnary() (types.Pointcut, error) {
	if p.accept("!") || p.accept("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	if p.accept("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, p.errorf("missing )")
		}
		return inner, nil
	}
	return p.parseDesignator()
}

func (p *parser) parseDesignator() (types.Pointcut, error) {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		if p.pos >= len(p.src) {
			return nil, p.errorf("unexpected end of expression")
		}
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	if !p.accept("(") {
		return nil, p.errorf("expected ( after %s", name)
	}
	body, err := p.balancedBody()
	if err != nil {
		return nil, err
	}
	switch name {
	case "execution":
		return p.execution(body)
	case "within":
		if body == "" {
			return nil, p.errorf("within requires a type pattern")
		}
		if !validType(body) {
			return nil, p.errorf("malformed type pattern %q", body)
		}
		m := newTypeMatcher(body)
		return types.PointcutFunc(m.match), nil
	case "method":
		if body == "" {
			return nil, p.errorf("method requires a name pattern")
		}
		if !validName(body) {
			return nil, p.errorf("malformed name pattern %q", body)
		}
		return Method(body), nil
	case "args":
		params, err := p.params(body)
		if err != nil {
			return nil, err
		}
		return Params(params...), nil
	default:
		return nil, p.errorf("unknown designator %q", name)
	}
}

// balancedBody returns the trimmed text up to the ) matching an already consumed (.
func (p *parser) balancedBody() (string, error) {
	depth := 1
	start := p.pos
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := strings.TrimSpace(p.src[start:p.pos])
				p.pos++
				return body, nil
			}
		}
	}
	return "", p.errorf("missing )")
}

// execution parses "[ret] [type.]method(params)".
func (p *parser) execution(body string) (types.Pointcut, error) {
	open := strings.IndexByte(body, '(')
	if open < 0 || !strings.HasSuffix(body, ")") {
		return nil, p.errorf("execution requires a parameter list in %q", body)
	}
	params, err := p.params(body[open+1 : len(body)-1])
	if err != nil {
		return nil, err
	}
	head := strings.Fields(body[:open])
	var retPattern, qualified string
	switch len(head) {
	case 1:
		qualified = head[0]
	case 2:
		retPattern, qualified = head[0], head[1]
	default:
		return nil, p.errorf("malformed execution pattern %q", body)
	}

	typePattern, methodPattern := "*", qualified
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		typePattern, methodPattern = qualified[:i], qualified[i+1:]
	}
	if !validType(typePattern) || !validName(methodPattern) || retPattern != "" && !validType(retPattern) {
		return nil, p.errorf("malformed execution pattern %q", body)
	}

	typeM := newTypeMatcher(typePattern)
	methodM := newNameMatcher(methodPattern)
	paramM := newParamMatcher(params)
	var retM *nameMatcher
	if retPattern != "" && retPattern != "*" {
		m := newNameMatcher(retPattern)
		retM = &m
	}
	return types.PointcutFunc(func(site types.CallSite) bool {
		if !methodM.match(site.Method) || !typeM.match(site) || !paramM.match(site.Params) {
			return false
		}
		return retM == nil || retM.match(returnType(site))
	}), nil
}

// returnType is the result list without a trailing error, or "void".
func returnType(site types.CallSite) string {
	results := site.Results
	if n := len(results); n > 0 && results[n-1] == "error" {
		results = results[:n-1]
	}
	if len(results) == 0 {
		return "void"
	}
	return strings.Join(results, ",")
}

// params splits a parameter list. Every item is "..", "*" or a type pattern,
// optionally prefixed with "..." for a variadic parameter.
func (p *parser) params(list string) ([]string, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	for i := range parts {
		item := strings.TrimSpace(parts[i])
		if item == "" {
			return nil, p.errorf("empty parameter in %q", list)
		}
		if item != ".." && !validType(strings.TrimPrefix(item, "...")) {
			return nil, p.errorf("malformed parameter %q", item)
		}
		parts[i] = item
	}
	return parts, nil
}

// validName reports whether pattern is an identifier glob, e.g. "Get*" or "D?v".
func validName(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if c := pattern[i]; !isIdentChar(c) && c != '*' && c != '?' {
			return false
		}
	}
	return pattern != ""
}

// validType reports whether pattern is a type glob such as "example.com/calc.*Calculator",
// "[]*calc.Point" or "map[string]int". Path and name segments must not be empty.
func validType(pattern string) bool {
	if pattern == "" {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if c := pattern[i]; !isIdentChar(c) && strings.IndexByte("*?./[]", c) < 0 {
			return false
		}
	}
	if strings.Contains(pattern, "..") || strings.Contains(pattern, "//") ||
		strings.Contains(pattern, "/.") || strings.Contains(pattern, "./") {
		return false
	}
	first, last := pattern[0], pattern[len(pattern)-1]
	return first != '.' && first != '/' && last != '.' && last != '/'
}

func isIdentChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
