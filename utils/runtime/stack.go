/*
 * Copyright 2024 The RuleGo Authors.
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

// Package runtime captures stack traces for recovered panics.
//
// Usage example:
//
//	defer func() {
//		if v := recover(); v != nil {
//			err = &types.TargetOperationError{Value: v, Stack: runtime.Stack()}
//		}
//	}()
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// maxDepth is the maximum number of captured frames.
const maxDepth = 32

// Stack 获取堆栈信息
// Stack returns the stack of the caller, one frame per line.
func Stack() string {
	return StackSkip(1)
}

// StackSkip returns the stack of the caller skipping the given number of extra frames.
func StackSkip(skip int) string {
	var pc = make([]uintptr, maxDepth)
	n := runtime.Callers(2+skip, pc)
	frames := runtime.CallersFrames(pc[:n])

	var build strings.Builder
	for {
		frame, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s %s:%d \n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return build.String()
}
