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
	"errors"
	"fmt"
)

var (
	// ErrNoSuchMethod the proxied target has no exported method with the given name.
	ErrNoSuchMethod = errors.New("no such method")
	// ErrRegistryFrozen rules can not be registered once a chain has been built.
	ErrRegistryFrozen = errors.New("advice registry is frozen")
	// ErrConcurrencyLimitReached the concurrency limit of an aspect is reached.
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrFallback the call was skipped by an open circuit.
	ErrFallback = errors.New("skip fallback error")
)

// ConfigurationError is raised while registering rules or compiling pointcuts.
// It is never raised at invocation time.
type ConfigurationError struct {
	// Subject is the rule, aspect or expression being configured.
	Subject string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(subject, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: reason, Err: err}
}

// InvalidChainStateError is raised when an advice misuses the chain protocol,
// e.g. proceeds twice or proceeds after the invocation completed.
type InvalidChainStateError struct {
	Site   CallSite
	Advice string
	// Index is the chain position of the offending advice.
	Index  int
	Reason string
}

func (e *InvalidChainStateError) Error() string {
	return fmt.Sprintf("invalid chain state at %s, advice %s (index %d): %s", e.Site, e.Advice, e.Index, e.Reason)
}

// TargetOperationError wraps a panic raised by the target method.
// Errors returned by the target are delivered as they are and never wrapped.
type TargetOperationError struct {
	Site  CallSite
	Value interface{}
	Stack string
}

func (e *TargetOperationError) Error() string {
	return fmt.Sprintf("target %s panicked: %v", e.Site, e.Value)
}

// Unwrap returns the panic value when it is an error, e.g. runtime.Error.
func (e *TargetOperationError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AdvicePanicError wraps a panic raised by an advice action. It is treated as an
// error raised by that advice.
type AdvicePanicError struct {
	Advice string
	Value  interface{}
	Stack  string
}

func (e *AdvicePanicError) Error() string {
	return fmt.Sprintf("advice %s panicked: %v", e.Advice, e.Value)
}

func (e *AdvicePanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ArgumentError is raised when call arguments do not fit the method signature.
type ArgumentError struct {
	Method string
	// Index is the argument position, or -1 for an arity mismatch.
	Index  int
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Method, e.Reason)
	}
	return fmt.Sprintf("invalid argument %d for %s: %s", e.Index, e.Method, e.Reason)
}
