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

package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/builtin/aspect"
)

// Aspects is the default registry of aspect prototypes and named actions used by
// declarative aspect definitions.
var Aspects = new(AspectRegistry)

// init registers the builtin aspects to the default registry.
func init() {
	for _, a := range aspect.Builtins() {
		_ = Aspects.Register(a)
	}
}

// AspectRegistry maps a type name to an aspect prototype, and an action name to a
// plain advice action.
type AspectRegistry struct {
	prototypes map[string]types.ConfigurableAspect
	actions    map[string]types.Action
	sync.RWMutex
}

// Register adds an aspect prototype.
func (r *AspectRegistry) Register(a types.ConfigurableAspect) error {
	r.Lock()
	defer r.Unlock()
	if r.prototypes == nil {
		r.prototypes = make(map[string]types.ConfigurableAspect)
	}
	if _, ok := r.prototypes[a.Type()]; ok {
		return errors.New("the aspect already exists. aspectType=" + a.Type())
	}
	r.prototypes[a.Type()] = a
	return nil
}

// RegisterAction adds a named advice action.
func (r *AspectRegistry) RegisterAction(name string, action types.Action) error {
	if action == nil {
		return errors.New("nil action. name=" + name)
	}
	r.Lock()
	defer r.Unlock()
	if r.actions == nil {
		r.actions = make(map[string]types.Action)
	}
	if _, ok := r.actions[name]; ok {
		return errors.New("the action already exists. name=" + name)
	}
	r.actions[name] = action
	return nil
}

// Unregister removes an aspect prototype or a named action.
func (r *AspectRegistry) Unregister(name string) error {
	r.Lock()
	defer r.Unlock()
	_, isAspect := r.prototypes[name]
	_, isAction := r.actions[name]
	if !isAspect && !isAction {
		return fmt.Errorf("aspect not found. aspectType=%s", name)
	}
	delete(r.prototypes, name)
	delete(r.actions, name)
	return nil
}

// NewAspect creates a new, unconfigured instance of an aspect prototype.
func (r *AspectRegistry) NewAspect(aspectType string) (types.ConfigurableAspect, error) {
	r.RLock()
	defer r.RUnlock()
	prototype, ok := r.prototypes[aspectType]
	if !ok {
		return nil, fmt.Errorf("aspect not found. aspectType=%s", aspectType)
	}
	instance, ok := prototype.New().(types.ConfigurableAspect)
	if !ok {
		return nil, fmt.Errorf("aspect %s New() does not return a configurable aspect", aspectType)
	}
	return instance, nil
}

// Action returns a named action.
func (r *AspectRegistry) Action(name string) (types.Action, bool) {
	r.RLock()
	defer r.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}

// Types returns the registered aspect types and action names, sorted.
func (r *AspectRegistry) Types() []string {
	r.RLock()
	defer r.RUnlock()
	var names []string
	for k := range r.prototypes {
		names = append(names, k)
	}
	for k := range r.actions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
