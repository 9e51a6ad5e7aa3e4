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

package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errDivByZero = errors.New("division by zero")

type Person struct {
	Name string `json:"name"`
}

type Calculator struct {
}

func (c *Calculator) Div(a, b int) (int, error) {
	if b == 0 {
		return 0, errDivByZero
	}
	return a / b, nil
}

func (c *Calculator) Greet(p Person) string {
	return "hello " + p.Name
}

func (c *Calculator) Closed() string {
	return "unreachable"
}

func (c *Calculator) Boom() {
	panic("boom")
}

type testEndpoint struct {
	rest    *Rest
	audited atomic.Int32
}

func newTestEndpoint(t *testing.T) *testEndpoint {
	te := &testEndpoint{}
	logger := types.NewZapLogger(zaptest.NewLogger(t))
	config := types.NewConfig(types.WithLogger(logger))
	registry := engine.NewRegistry(config)
	require.NoError(t, registry.Register(types.Rule{
		Name:       "audit",
		Kind:       types.Before,
		Expression: "execution(* rest.Calculator.*(..))",
		Action: func(inv types.Invocation) error {
			te.audited.Add(1)
			return nil
		},
	}))
	require.NoError(t, registry.Register(types.Rule{
		Name:       "breaker",
		Kind:       types.Around,
		Expression: "method(Closed)",
		Action: func(inv types.Invocation) error {
			return types.ErrFallback
		},
	}))
	builder, err := engine.NewChainBuilder(registry, config)
	require.NoError(t, err)
	creator := engine.NewAutoProxyCreator(builder)
	_, proxied := creator.Wrap("calc", &Calculator{})
	require.True(t, proxied)

	te.rest = New(Config{Addr: "127.0.0.1:0"}, creator, logger)
	return te
}

func (te *testEndpoint) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	te.rest.ServeHTTP(w, req)
	assert.Equal(t, JsonContextType, w.Header().Get(ContentTypeKey))
	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestListBeans(t *testing.T) {
	te := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, ApiPrefix, nil)
	w := httptest.NewRecorder()
	te.rest.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var beans []BeanInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &beans))
	require.Len(t, beans, 1)
	assert.Equal(t, "calc", beans[0].Name)
	assert.Equal(t, "github.com/rulego/aop/endpoint/rest.Calculator", beans[0].Type)
	assert.Empty(t, beans[0].Methods)
}

func TestGetBean(t *testing.T) {
	te := newTestEndpoint(t)
	req := httptest.NewRequest(http.MethodGet, ApiPrefix+"/calc", nil)
	w := httptest.NewRecorder()
	te.rest.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var bean BeanInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bean))
	methods := make(map[string]MethodInfo)
	for _, m := range bean.Methods {
		methods[m.Name] = m
	}
	require.Len(t, methods, 4)
	assert.Equal(t, "rest.Calculator.Div(int,int)", methods["Div"].Signature)
	assert.Equal(t, []string{"int", "error"}, methods["Div"].Results)
	assert.Equal(t, []string{"audit:before"}, methods["Div"].Advice)
	assert.Equal(t, []string{"audit:before", "breaker:around"}, methods["Closed"].Advice)

	w, out := te.do(t, http.MethodGet, ApiPrefix+"/none", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "bean not found: none", out["error"])
}

func TestInvoke(t *testing.T) {
	te := newTestEndpoint(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		result interface{}
		errMsg string
	}{
		{"result", "/calc/Div", "[6, 3]", http.StatusOK, float64(2), ""},
		{"struct argument", "/calc/Greet", `[{"name": "Ann"}]`, http.StatusOK, "hello Ann", ""},
		{"target error", "/calc/Div", "[1, 0]", http.StatusInternalServerError, nil, "division by zero"},
		{"invalid argument", "/calc/Div", `["a", 1]`, http.StatusBadRequest, nil, ""},
		{"arity", "/calc/Div", "[1]", http.StatusBadRequest, nil, ""},
		{"not an array", "/calc/Div", "{", http.StatusBadRequest, nil, ""},
		{"no such method", "/calc/Mul", "[1, 2]", http.StatusNotFound, nil, ""},
		{"no such bean", "/none/Div", "[1, 2]", http.StatusNotFound, nil, "bean not found: none"},
		{"fallback", "/calc/Closed", "", http.StatusServiceUnavailable, nil, types.ErrFallback.Error()},
		{"target panic", "/calc/Boom", "[]", http.StatusInternalServerError, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := te.do(t, http.MethodPost, ApiPrefix+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.result, out["result"])
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, out["error"])
			}
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, out["error"])
			}
		})
	}
	// 参数错误在进入拦截器链之前返回
	assert.Equal(t, int32(5), te.audited.Load())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusOf(types.ErrConcurrencyLimitReached))
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(types.ErrFallback))
	assert.Equal(t, http.StatusBadRequest, statusOf(&types.ArgumentError{Method: "Div", Index: 0, Reason: "bad"}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errDivByZero))
}

func TestStartStop(t *testing.T) {
	te := newTestEndpoint(t)
	errCh := make(chan error, 1)
	go func() {
		errCh <- te.rest.Start()
	}()
	require.Eventually(t, func() bool {
		te.rest.mu.Lock()
		defer te.rest.mu.Unlock()
		return te.rest.server != nil
	}, time.Second, 10*time.Millisecond)
	te.rest.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	// 重复停止无影响
	te.rest.Stop()
}
