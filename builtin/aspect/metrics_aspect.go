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
	"sync"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/api/types/metrics"
)

// MetricsAspect 实现了统计方法调用指标的功能，包括全局指标和每个方法的指标
type MetricsAspect struct {
	// PointCutFunc selects the call sites to measure. If nil, all call sites are measured.
	PointCutFunc func(site types.CallSite) bool
	metrics      *metrics.InvocationMetrics
	sites        sync.Map
}

var (
	_ types.BeforeAspect         = (*MetricsAspect)(nil)
	_ types.AfterAspect          = (*MetricsAspect)(nil)
	_ types.AfterReturningAspect = (*MetricsAspect)(nil)
	_ types.AfterThrowingAspect  = (*MetricsAspect)(nil)
	_ types.ConfigurableAspect   = (*MetricsAspect)(nil)
)

func NewMetricsAspect(m *metrics.InvocationMetrics) *MetricsAspect {
	if m == nil {
		m = metrics.NewInvocationMetrics()
	}
	return &MetricsAspect{
		metrics: m,
	}
}

func (a *MetricsAspect) Order() int {
	return 20
}

func (a *MetricsAspect) New() types.Aspect {
	if a.metrics == nil {
		a.metrics = metrics.NewInvocationMetrics()
	}
	a.metrics.Reset()
	return &MetricsAspect{
		metrics:      a.metrics,
		PointCutFunc: a.PointCutFunc,
	}
}

func (a *MetricsAspect) Type() string {
	return "metrics"
}

func (a *MetricsAspect) Init(config types.Config, configuration types.Configuration) error {
	if a.metrics == nil {
		a.metrics = metrics.NewInvocationMetrics()
	}
	return nil
}

func (a *MetricsAspect) PointCut(site types.CallSite) bool {
	return matchAll(a.PointCutFunc, site)
}

func (a *MetricsAspect) Before(inv types.Invocation) error {
	site := a.site(inv.CallSite())
	a.metrics.IncrementCurrent()
	a.metrics.IncrementTotal()
	site.IncrementCurrent()
	site.IncrementTotal()
	return nil
}

func (a *MetricsAspect) After(inv types.Invocation) error {
	a.metrics.DecrementCurrent()
	a.site(inv.CallSite()).DecrementCurrent()
	return nil
}

func (a *MetricsAspect) AfterReturning(inv types.Invocation) error {
	a.metrics.IncrementSuccess()
	a.site(inv.CallSite()).IncrementSuccess()
	return nil
}

func (a *MetricsAspect) AfterThrowing(inv types.Invocation) error {
	a.metrics.IncrementFailed()
	a.site(inv.CallSite()).IncrementFailed()
	return nil
}

// GetMetrics 返回全局指标
func (a *MetricsAspect) GetMetrics() *metrics.InvocationMetrics {
	return a.metrics
}

// SiteMetrics 返回某个方法的指标快照
func (a *MetricsAspect) SiteMetrics(site types.CallSite) metrics.InvocationMetrics {
	if v, ok := a.sites.Load(site.Key()); ok {
		return v.(*metrics.InvocationMetrics).Get()
	}
	return metrics.InvocationMetrics{}
}

func (a *MetricsAspect) site(site types.CallSite) *metrics.InvocationMetrics {
	if v, ok := a.sites.Load(site.Key()); ok {
		return v.(*metrics.InvocationMetrics)
	}
	v, _ := a.sites.LoadOrStore(site.Key(), metrics.NewInvocationMetrics())
	return v.(*metrics.InvocationMetrics)
}
