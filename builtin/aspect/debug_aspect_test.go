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

package aspect_test

import (
	"context"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/builtin/aspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebugAspect(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	debug := &aspect.Debug{Logger: zap.New(core), Config: aspect.DebugConfig{Arguments: true, Result: true}}
	proxy := newProxy(t, &Calculator{}, debug)
	ctx := context.Background()

	_, err := proxy.Invoke(ctx, "Div", 4, 2)
	require.NoError(t, err)
	_, err = proxy.Invoke(ctx, "Div", 1, 0)
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 4)
	div := siteOf(t, proxy, "Div")

	assert.Equal(t, types.In, entries[0].Message)
	assert.Equal(t, div.String(), entries[0].ContextMap()["site"])
	assert.Equal(t, "[4,2]", entries[0].ContextMap()["arguments"])
	assert.Equal(t, types.Out, entries[1].Message)
	assert.Equal(t, "2", entries[1].ContextMap()["result"])
	assert.Equal(t, entries[0].ContextMap()["id"], entries[1].ContextMap()["id"])

	assert.Equal(t, types.Out, entries[3].Message)
	assert.Equal(t, errDivByZero.Error(), entries[3].ContextMap()["error"])
}

func TestDebugAspectOnDebug(t *testing.T) {
	var flows []string
	config := types.NewConfig(types.WithOnDebug(func(flowType string, site types.CallSite, advice string, err error) {
		if advice == "debug" {
			flows = append(flows, flowType+":"+site.Method)
		}
	}))
	debug := &aspect.Debug{}
	require.NoError(t, debug.Init(config, nil))

	proxy := newProxy(t, &Calculator{}, debug)
	_, err := proxy.Invoke(context.Background(), "Div", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{types.In + ":Div", types.Out + ":Div"}, flows)
}
