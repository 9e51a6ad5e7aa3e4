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

package engine

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/runtime"
)

// TargetAdviceName is the name reported to OnDebug for the terminal step.
const TargetAdviceName = "target"

var _ types.Invocation = (*invocation)(nil)

// invocation walks an interceptor chain by index. Element i runs through its step
// function; Proceed from the advice at i runs element i+1, and index Len() is the
// terminal step. The result-or-error slot holds the outcome of the innermost
// completed step and is rewritten as the chain unwinds.
type invocation struct {
	ctx    context.Context
	id     string
	proxy  *Proxy
	method *methodDesc
	chain  *InterceptorChain
	args   []interface{}

	result interface{}
	err    error
	// version is bumped by SetResult and SetThrown; before advice uses it to detect
	// a short-circuit.
	version int

	phase types.Phase
	attrs map[string]interface{}

	// current is the chain index of the running advice, -1 outside of any advice.
	current   int
	proceeded []bool
	// chainErr is the first protocol violation. It is returned to the caller
	// whatever the advice does with the Proceed error.
	chainErr error
	parent   *invocation
}

func newInvocation(ctx context.Context, proxy *Proxy, method *methodDesc, chain *InterceptorChain, args []interface{}) *invocation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &invocation{
		ctx:       ctx,
		proxy:     proxy,
		method:    method,
		chain:     chain,
		args:      args,
		phase:     types.PhaseEntered,
		current:   -1,
		proceeded: make([]bool, len(chain.Interceptors)),
	}
}

func (inv *invocation) Context() context.Context {
	return inv.ctx
}

func (inv *invocation) SetContext(ctx context.Context) {
	if ctx != nil {
		inv.ctx = ctx
	}
}

func (inv *invocation) ID() string {
	if inv.id == "" {
		inv.id = uuid.Must(uuid.NewV4()).String()
	}
	return inv.id
}

func (inv *invocation) Target() interface{} {
	return inv.proxy.target
}

func (inv *invocation) CallSite() types.CallSite {
	return inv.method.site
}

func (inv *invocation) Arguments() []interface{} {
	return inv.args
}

func (inv *invocation) SetArguments(args ...interface{}) {
	inv.args = args
}

func (inv *invocation) Result() interface{} {
	return inv.result
}

func (inv *invocation) SetResult(v interface{}) {
	inv.result = v
	inv.err = nil
	inv.version++
}

func (inv *invocation) Thrown() error {
	return inv.err
}

func (inv *invocation) SetThrown(err error) {
	inv.err = err
	inv.result = nil
	inv.version++
}

func (inv *invocation) Phase() types.Phase {
	return inv.phase
}

func (inv *invocation) Get(key string) (interface{}, bool) {
	v, ok := inv.attrs[key]
	return v, ok
}

func (inv *invocation) Set(key string, value interface{}) {
	if inv.attrs == nil {
		inv.attrs = make(map[string]interface{})
	}
	inv.attrs[key] = value
}

// Proceed runs the rest of the chain after the calling advice and returns its outcome.
func (inv *invocation) Proceed() (interface{}, error) {
	if inv.phase.Terminal() {
		return nil, inv.violation(inv.current, "proceed after the invocation completed")
	}
	if inv.current < 0 {
		return nil, inv.violation(inv.current, "proceed outside of an advice")
	}
	if inv.proceeded[inv.current] {
		return nil, inv.violation(inv.current, "proceed called more than once")
	}
	inv.proceeded[inv.current] = true
	res, err := inv.runFrom(inv.current + 1)
	inv.phase = types.PhaseUnwinding
	return res, err
}

// Clone returns a copy positioned at the running advice. The copy owns its
// arguments, attributes and outcome slot and may proceed once.
func (inv *invocation) Clone() types.Invocation {
	c := &invocation{
		ctx:       inv.ctx,
		id:        inv.ID(),
		proxy:     inv.proxy,
		method:    inv.method,
		chain:     inv.chain,
		args:      append([]interface{}(nil), inv.args...),
		phase:     inv.phase,
		current:   inv.current,
		proceeded: make([]bool, len(inv.proceeded)),
		parent:    inv,
	}
	if c.phase.Terminal() {
		c.phase = types.PhaseAdvising
	}
	// Elements outside the running advice are never re-entered by the copy.
	for i := 0; i < inv.current; i++ {
		c.proceeded[i] = true
	}
	if len(inv.attrs) > 0 {
		c.attrs = make(map[string]interface{}, len(inv.attrs))
		for k, v := range inv.attrs {
			c.attrs[k] = v
		}
	}
	return c
}

func (inv *invocation) violation(index int, reason string) error {
	advice := "none"
	if index >= 0 && index < len(inv.chain.Interceptors) {
		advice = inv.chain.Interceptors[index].Rule.Name
	}
	err := &types.InvalidChainStateError{Site: inv.method.site, Advice: advice, Index: index, Reason: reason}
	for p := inv; p != nil; p = p.parent {
		if p.chainErr == nil {
			p.chainErr = err
		}
	}
	return err
}

// run drives the whole chain and settles the final phase.
func (inv *invocation) run() (interface{}, error) {
	res, err := inv.runFrom(0)
	if inv.chainErr != nil {
		res, err = nil, inv.chainErr
	}
	if err != nil {
		inv.phase = types.PhaseFailed
	} else {
		inv.phase = types.PhaseCompleted
	}
	return res, err
}

// runFrom runs element i and everything inside it, then returns the slot.
func (inv *invocation) runFrom(i int) (interface{}, error) {
	if i >= len(inv.chain.Interceptors) {
		inv.invokeTarget()
		return inv.result, inv.err
	}
	prev := inv.current
	inv.current = i
	inv.chain.Interceptors[i].step(inv, i)
	inv.current = prev
	return inv.result, inv.err
}

// proceedFor continues on behalf of the advice at i.
func (inv *invocation) proceedFor(i int) {
	inv.proceeded[i] = true
	inv.runFrom(i + 1)
}

func (inv *invocation) beforeStep(i int) {
	inv.phase = types.PhaseAdvising
	version := inv.version
	if err := inv.callAdvice(i); err != nil {
		inv.SetThrown(err)
		return
	}
	if inv.proceeded[i] || inv.version != version {
		return
	}
	inv.proceedFor(i)
}

func (inv *invocation) aroundStep(i int) {
	inv.phase = types.PhaseAdvising
	if err := inv.callAdvice(i); err != nil {
		inv.SetThrown(err)
	}
}

func (inv *invocation) afterReturningStep(i int) {
	inv.proceedFor(i)
	if inv.err != nil {
		return
	}
	inv.phase = types.PhaseUnwinding
	if err := inv.callAdvice(i); err != nil {
		inv.SetThrown(err)
	}
}

func (inv *invocation) afterThrowingStep(i int) {
	inv.proceedFor(i)
	thrown := inv.err
	if thrown == nil {
		return
	}
	inv.phase = types.PhaseUnwinding
	if err := inv.callAdvice(i); err != nil {
		inv.SetThrown(err)
		return
	}
	// SetThrown translates the error, it can not be swallowed.
	if inv.err == nil {
		inv.result, inv.err = nil, thrown
	}
}

func (inv *invocation) afterStep(i int) {
	inv.proceedFor(i)
	inv.phase = types.PhaseUnwinding
	if err := inv.callAdvice(i); err != nil {
		inv.SetThrown(err)
	}
}

// callAdvice runs the action of element i. A panic becomes an AdvicePanicError.
func (inv *invocation) callAdvice(i int) (err error) {
	rule := inv.chain.Interceptors[i].Rule
	config := inv.proxy.config
	config.Debug(types.In, inv.method.site, rule.Name, nil)
	defer func() {
		if v := recover(); v != nil {
			err = &types.AdvicePanicError{Advice: rule.Name, Value: v, Stack: runtime.Stack()}
		}
		config.Debug(types.Out, inv.method.site, rule.Name, err)
	}()
	return rule.Action(inv)
}

// invokeTarget is the terminal step. A panic of the target becomes a TargetOperationError.
func (inv *invocation) invokeTarget() {
	inv.phase = types.PhaseInvoking
	config := inv.proxy.config
	config.Debug(types.In, inv.method.site, TargetAdviceName, nil)

	res, err := func() (res interface{}, err error) {
		defer func() {
			if v := recover(); v != nil {
				err = &types.TargetOperationError{Site: inv.method.site, Value: v, Stack: runtime.Stack()}
			}
		}()
		return inv.method.call(inv.ctx, inv.args)
	}()

	if err != nil {
		inv.SetThrown(err)
	} else {
		inv.SetResult(res)
	}
	inv.phase = types.PhaseUnwinding
	config.Debug(types.Out, inv.method.site, TargetAdviceName, err)
}
