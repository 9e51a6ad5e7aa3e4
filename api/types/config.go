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
	"time"
)

const (
	// In flow type of the debug callback, an advice or the target is entered.
	In = "IN"
	// Out flow type of the debug callback, an advice or the target has returned.
	Out = "OUT"
)

// Config defines the configuration for the weaving engine.
// Config 织入引擎配置
type Config struct {
	// OnDebug is a callback for chain debug information. It is called when an advice or
	// the target is entered (In) and when it returns (Out).
	// - flowType: In or Out.
	// - site: the call site being invoked.
	// - advice: the rule name, or "target" for the terminal step.
	// - err: error raised by the step, if any.
	OnDebug func(flowType string, site CallSite, advice string, err error)
	// ScriptMaxExecutionTime is the maximum execution time of a script pointcut, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// IncludePatterns restricts which rules the auto-proxy creator considers eligible.
	// Each entry is a regular expression over rule names. Empty means all rules.
	IncludePatterns []string
	// Aspects are registered with the engine on creation.
	Aspects []Aspect
	// Properties are global properties available to declared aspects, e.g. ${global.key}.
	Properties map[string]string
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             make(map[string]string),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// Debug forwards debug information to OnDebug if it is set.
func (c Config) Debug(flowType string, site CallSite, advice string, err error) {
	if c.OnDebug != nil {
		c.OnDebug(flowType, site, advice, err)
	}
}
