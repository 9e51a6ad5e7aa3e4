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

// Package rest exposes the proxied beans over http. Every invocation goes through
// the interceptor chain of the method, exactly as a call made in process.
//
// Routes:
//
//	GET  /api/v1/beans                 list the proxied beans
//	GET  /api/v1/beans/:bean           describe a bean, its methods and advice
//	POST /api/v1/beans/:bean/:method   invoke a method, the body is a json array of arguments
//
// rest 包通过 http 暴露代理对象，每次调用都会经过方法的拦截器链。
package rest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/json"
)

const (
	ContentTypeKey  = "Content-Type"
	JsonContextType = "application/json"
	// ApiPrefix 路由前缀
	ApiPrefix = "/api/v1/beans"
)

// Beans is the source of the proxied beans, e.g. *engine.AutoProxyCreator.
type Beans interface {
	Proxy(name string) (*engine.Proxy, bool)
	Names() []string
}

// Config Rest 服务配置
type Config struct {
	Addr        string
	CertFile    string
	CertKeyFile string
	// ShutdownTimeout 停止服务时等待请求完成的时间，默认5秒
	ShutdownTimeout time.Duration
}

// BeanInfo 代理对象信息
type BeanInfo struct {
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Methods []MethodInfo `json:"methods,omitempty"`
}

// MethodInfo 方法信息
type MethodInfo struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	Params    []string `json:"params"`
	Results   []string `json:"results"`
	// Advice 方法拦截器链，格式 name:kind
	Advice []string `json:"advice"`
}

// InvokeResult 调用结果
type InvokeResult struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Rest 调用端点
type Rest struct {
	//配置
	Config Config
	Beans  Beans
	Logger types.Logger
	//路由器
	router *httprouter.Router
	server *http.Server
	once   sync.Once
	mu     sync.Mutex
}

// New creates the endpoint. A nil logger means types.DefaultLogger().
func New(config Config, beans Beans, logger types.Logger) *Rest {
	return &Rest{Config: config, Beans: beans, Logger: types.NewLogger(logger)}
}

// Router returns the router with the bean routes registered.
func (r *Rest) Router() *httprouter.Router {
	r.once.Do(func() {
		if r.Logger == nil {
			r.Logger = types.DefaultLogger()
		}
		r.router = httprouter.New()
		r.router.GET(ApiPrefix, r.listBeans)
		r.router.GET(ApiPrefix+"/:bean", r.getBean)
		r.router.POST(ApiPrefix+"/:bean/:method", r.invoke)
		r.router.PanicHandler = func(w http.ResponseWriter, req *http.Request, e interface{}) {
			//捕捉异常
			r.Logger.Printf("rest handler err :%v", e)
			writeJson(w, http.StatusInternalServerError, InvokeResult{Error: "internal error"})
		}
	})
	return r.router
}

func (r *Rest) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Router().ServeHTTP(w, req)
}

// Start serves until Stop is called. It returns http.ErrServerClosed after Stop.
func (r *Rest) Start() error {
	r.mu.Lock()
	r.server = &http.Server{Addr: r.Config.Addr, Handler: r.Router()}
	server := r.server
	r.mu.Unlock()
	if r.Config.CertKeyFile != "" && r.Config.CertFile != "" {
		r.Logger.Printf("starting server with TLS on %s", r.Config.Addr)
		return server.ListenAndServeTLS(r.Config.CertFile, r.Config.CertKeyFile)
	}
	r.Logger.Printf("starting server on %s", r.Config.Addr)
	return server.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (r *Rest) Stop() {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.mu.Unlock()
	if server == nil {
		return
	}
	timeout := r.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		r.Logger.Printf("stop server error: %s", err.Error())
	}
}

func (r *Rest) listBeans(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	beans := make([]BeanInfo, 0)
	for _, name := range r.Beans.Names() {
		if proxy, ok := r.Beans.Proxy(name); ok {
			beans = append(beans, BeanInfo{Name: name, Type: typeOf(proxy)})
		}
	}
	writeJson(w, http.StatusOK, beans)
}

func (r *Rest) getBean(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	name := params.ByName("bean")
	proxy, ok := r.Beans.Proxy(name)
	if !ok {
		writeJson(w, http.StatusNotFound, InvokeResult{Error: "bean not found: " + name})
		return
	}
	info := BeanInfo{Name: name, Type: typeOf(proxy)}
	for _, site := range proxy.Methods() {
		m := MethodInfo{Name: site.Method, Signature: site.String(), Params: site.Params, Results: site.Results}
		if chain, err := proxy.Chain(site.Method); err == nil {
			m.Advice = chain.Names()
		}
		info.Methods = append(info.Methods, m)
	}
	writeJson(w, http.StatusOK, info)
}

func (r *Rest) invoke(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
	name := params.ByName("bean")
	proxy, ok := r.Beans.Proxy(name)
	if !ok {
		writeJson(w, http.StatusNotFound, InvokeResult{Error: "bean not found: " + name})
		return
	}
	defer func() {
		_ = req.Body.Close()
	}()
	args, err := json.DecodeArgs(req.Body)
	if err != nil {
		writeJson(w, http.StatusBadRequest, InvokeResult{Error: "the body must be a json array of arguments: " + err.Error()})
		return
	}
	res, err := proxy.Invoke(req.Context(), params.ByName("method"), args...)
	if err != nil {
		writeJson(w, statusOf(err), InvokeResult{Error: err.Error()})
		return
	}
	writeJson(w, http.StatusOK, InvokeResult{Result: res})
}

func typeOf(proxy *engine.Proxy) string {
	if sites := proxy.Methods(); len(sites) > 0 {
		return sites[0].QualifiedType()
	}
	return ""
}

// statusOf maps an invocation error to a http status
func statusOf(err error) int {
	var argErr *types.ArgumentError
	switch {
	case errors.Is(err, types.ErrNoSuchMethod):
		return http.StatusNotFound
	case errors.As(err, &argErr):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConcurrencyLimitReached):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrFallback):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + http.StatusText(status) + `"}`)
	}
	w.Header().Set(ContentTypeKey, JsonContextType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
