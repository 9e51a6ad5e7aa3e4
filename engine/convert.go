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
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/rulego/aop/utils/maps"
)

// convertArg converts an argument to the parameter type t.
// Supported conversions: assignable values, nil for nillable kinds, lossless numeric
// conversion (including json.Number), string kinds, element-wise slices and
// map[string]interface{} decoded into structs.
func convertArg(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		if nillable(t.Kind()) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if n, ok := arg.(json.Number); ok {
		return convertNumber(n, t)
	}
	switch {
	case isNumber(v.Kind()) && isNumber(t.Kind()):
		return convertNumeric(v, t)
	case v.Kind() == reflect.String && t.Kind() == reflect.String:
		return v.Convert(t), nil
	case v.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := convertArg(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case v.Kind() == reflect.Map && isStruct(t):
		return decodeStruct(arg, t)
	}
	return reflect.Value{}, fmt.Errorf("%T is not assignable to %s", arg, t)
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct || t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct
}

// convertNumeric converts between numeric kinds, rejecting truncation and overflow.
func convertNumeric(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch {
	case isInt(t.Kind()):
		var i int64
		switch {
		case isInt(v.Kind()):
			i = v.Int()
		case isUint(v.Kind()):
			if v.Uint() > math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("%v overflows %s", v.Interface(), t)
			}
			i = int64(v.Uint())
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
				return reflect.Value{}, fmt.Errorf("%v is not a valid %s", f, t)
			}
			i = int64(f)
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i, t)
		}
		out.SetInt(i)
	case isUint(t.Kind()):
		var u uint64
		switch {
		case isInt(v.Kind()):
			if v.Int() < 0 {
				return reflect.Value{}, fmt.Errorf("%d is not a valid %s", v.Int(), t)
			}
			u = uint64(v.Int())
		case isUint(v.Kind()):
			u = v.Uint()
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < 0 || f > math.MaxUint64 {
				return reflect.Value{}, fmt.Errorf("%v is not a valid %s", f, t)
			}
			u = uint64(f)
		}
		if out.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", u, t)
		}
		out.SetUint(u)
	default:
		var f float64
		switch {
		case isInt(v.Kind()):
			f = float64(v.Int())
		case isUint(v.Kind()):
			f = float64(v.Uint())
		default:
			f = v.Float()
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", f, t)
		}
		out.SetFloat(f)
	}
	return out, nil
}

func convertNumber(n json.Number, t reflect.Type) (reflect.Value, error) {
	switch {
	case t.Kind() == reflect.String:
		return reflect.ValueOf(n.String()).Convert(t), nil
	case isInt(t.Kind()) || isUint(t.Kind()):
		if i, err := n.Int64(); err == nil {
			return convertNumeric(reflect.ValueOf(i), t)
		}
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, err
		}
		return convertNumeric(reflect.ValueOf(f), t)
	case isNumber(t.Kind()):
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, err
		}
		return convertNumeric(reflect.ValueOf(f), t)
	case t.Kind() == reflect.Interface:
		if i, err := n.Int64(); err == nil {
			return reflect.ValueOf(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f), nil
	}
	return reflect.Value{}, fmt.Errorf("number %s is not assignable to %s", n, t)
}

// decodeStruct decodes a map into a struct or a pointer to struct.
func decodeStruct(arg interface{}, t reflect.Type) (reflect.Value, error) {
	structType := t
	if t.Kind() == reflect.Ptr {
		structType = t.Elem()
	}
	ptr := reflect.New(structType)
	if err := maps.Map2Struct(arg, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	if t.Kind() == reflect.Ptr {
		return ptr, nil
	}
	return ptr.Elem(), nil
}
