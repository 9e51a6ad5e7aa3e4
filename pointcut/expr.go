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
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/aop/api/types"
)

// ExprPointcut evaluates an expr-lang boolean expression against the CallSite.
// The CallSite fields are the expression variables, for example:
//
//	Type == "calc.MathCalculator" && Method startsWith "Div" && len(Params) == 2
//	"string" in Params
type ExprPointcut struct {
	source  string
	program *vm.Program
}

// Expr compiles an expr-lang pointcut. The expression is type-checked against
// types.CallSite and must evaluate to a bool.
func Expr(source string) (*ExprPointcut, error) {
	program, err := expr.Compile(source, expr.Env(types.CallSite{}), expr.AsBool())
	if err != nil {
		return nil, types.NewConfigurationError(source, "invalid expr pointcut", err)
	}
	return &ExprPointcut{source: source, program: program}, nil
}

// Matches implements types.Pointcut. A runtime evaluation error is a mismatch.
func (p *ExprPointcut) Matches(site types.CallSite) bool {
	out, err := vm.Run(p.program, site)
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}

func (p *ExprPointcut) String() string {
	return p.source
}
