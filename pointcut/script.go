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

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/js"
)

// JsPointCutFuncName is the name of the generated script function.
const JsPointCutFuncName = "PointCut"

// JsPointCutFuncTemplate wraps the user script body.
// The call site is exposed as `site` with lower camel case fields:
// site.pkgPath, site.type, site.method, site.params, site.results, site.variadic.
const JsPointCutFuncTemplate = "function PointCut(site) { %s }"

// ScriptPointcut evaluates a JavaScript predicate with goja.
type ScriptPointcut struct {
	source string
	engine *js.GojaJsEngine
	logger types.Logger
}

// Script compiles a JavaScript pointcut body, e.g. `return site.method === "Div";`.
func Script(config types.Config, body string) (*ScriptPointcut, error) {
	engine, err := js.NewGojaJsEngine(config, fmt.Sprintf(JsPointCutFuncTemplate, body), nil)
	if err != nil {
		return nil, types.NewConfigurationError(body, "invalid js pointcut", err)
	}
	return &ScriptPointcut{source: body, engine: engine, logger: config.Logger}, nil
}

// Matches implements types.Pointcut. Script errors and non-bool results are a mismatch.
func (p *ScriptPointcut) Matches(site types.CallSite) bool {
	out, err := p.engine.Execute(JsPointCutFuncName, site)
	if err != nil {
		if p.logger != nil {
			p.logger.Printf("js pointcut %s on %s error: %s", p.source, site, err.Error())
		}
		return false
	}
	matched, _ := out.(bool)
	return matched
}

func (p *ScriptPointcut) String() string {
	return p.source
}
