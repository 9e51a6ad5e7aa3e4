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

package aspect

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rulego/aop/api/types"
)

var (
	_ types.BeforeAspect       = (*ValidatorAspect)(nil)
	_ types.ConfigurableAspect = (*ValidatorAspect)(nil)
)

// ValidatorAspect validates the struct arguments of a call before the target runs,
// using the `validate` struct tags of go-playground/validator.
// A call with an invalid argument fails before any inner advice or the target runs.
//
// ValidatorAspect 在目标方法执行前，使用 go-playground/validator 的 `validate` 标签
// 校验调用的结构体参数。参数无效时调用直接失败。
//
// Usage:
// 使用方法：
//
//	type Order struct {
//		Id  string `json:"id" validate:"required"`
//		Qty int    `json:"qty" validate:"gte=1"`
//	}
//	registry.AddAspects(&aspect.ValidatorAspect{})
//
// The returned error wraps validator.ValidationErrors, field names follow the json tag.
// 返回的错误包装了 validator.ValidationErrors，字段名使用 json 标签。
type ValidatorAspect struct {
	// PointCutFunc selects the call sites to validate. If nil, all call sites are validated.
	PointCutFunc func(site types.CallSite) bool
	validate     *validator.Validate
}

// Order 返回执行顺序
func (aspect *ValidatorAspect) Order() int {
	return 10
}

// New 创建新实例
func (aspect *ValidatorAspect) New() types.Aspect {
	return &ValidatorAspect{PointCutFunc: aspect.PointCutFunc, validate: newValidate()}
}

// Type 返回切面类型
func (aspect *ValidatorAspect) Type() string {
	return "validator"
}

// Init 初始化
func (aspect *ValidatorAspect) Init(config types.Config, configuration types.Configuration) error {
	if aspect.validate == nil {
		aspect.validate = newValidate()
	}
	return nil
}

// PointCut 默认切入所有方法
func (aspect *ValidatorAspect) PointCut(site types.CallSite) bool {
	return matchAll(aspect.PointCutFunc, site)
}

// Before validates every struct or pointer to struct argument.
// Before 校验所有结构体参数
func (aspect *ValidatorAspect) Before(inv types.Invocation) error {
	validate := aspect.validate
	if validate == nil {
		validate = defaultValidate
	}
	for i, arg := range inv.Arguments() {
		if !isStructArg(arg) {
			continue
		}
		if err := validate.Struct(arg); err != nil {
			return fmt.Errorf("invalid argument %d of %s: %w", i, inv.CallSite(), err)
		}
	}
	return nil
}

var defaultValidate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func isStructArg(arg interface{}) bool {
	if arg == nil {
		return false
	}
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.Kind() == reflect.Struct
}
