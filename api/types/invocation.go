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

import "context"

// Phase is the state of an invocation.
//
//	Entered -> Advising -> Invoking -> Unwinding -> Completed | Failed
type Phase int

const (
	PhaseEntered Phase = iota
	// PhaseAdvising is set while before/around advice runs on the way in.
	PhaseAdvising
	// PhaseInvoking is set while the target method runs.
	PhaseInvoking
	// PhaseUnwinding is set while after-kind advice runs on the way out.
	PhaseUnwinding
	PhaseCompleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseEntered:
		return "entered"
	case PhaseAdvising:
		return "advising"
	case PhaseInvoking:
		return "invoking"
	case PhaseUnwinding:
		return "unwinding"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase is Completed or Failed.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Invocation is the per-call context threaded through the interceptor chain.
// It is created fresh for every call and must not be shared across goroutines.
//
// Invocation 方法调用上下文，每次调用创建，沿拦截器链传递，不能跨协程共享。
type Invocation interface {
	// Context returns the context of the call.
	Context() context.Context
	// SetContext replaces the context seen by the rest of the chain and by a target
	// method declaring a leading context.Context parameter.
	SetContext(ctx context.Context)
	// ID returns a unique id of the call.
	ID() string
	// Target returns the proxied object.
	Target() interface{}
	// CallSite returns the descriptor of the invoked method.
	CallSite() CallSite
	// Arguments returns the current arguments. The slice may be modified in place;
	// changes are visible to the rest of the chain.
	Arguments() []interface{}
	// SetArguments replaces the arguments.
	SetArguments(args ...interface{})
	// Proceed continues with the next element of the chain and returns its outcome.
	// Each advice may proceed at most once.
	Proceed() (interface{}, error)
	// Result returns the current result.
	Result() interface{}
	// SetResult sets the result and clears any error.
	SetResult(v interface{})
	// Thrown returns the current error, if any.
	Thrown() error
	// SetThrown sets the error and clears the result.
	SetThrown(err error)
	// Phase returns the current phase.
	Phase() Phase
	// Get returns an invocation scoped attribute.
	Get(key string) (interface{}, bool)
	// Set stores an invocation scoped attribute.
	Set(key string, value interface{})
	// Clone returns a copy positioned at the current advice which can proceed once on
	// its own. It is used by advice that needs to run the rest of the chain more than
	// once, e.g. retries.
	Clone() Invocation
}
