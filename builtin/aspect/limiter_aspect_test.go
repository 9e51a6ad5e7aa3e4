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

package aspect_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/builtin/aspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyLimiterAspect(t *testing.T) {
	target := &Calculator{}
	limiter := aspect.NewConcurrencyLimiterAspect(1)
	proxy := newProxy(t, target, limiter)

	started, release := make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := proxy.Invoke(context.Background(), "Wait", started, release)
		done <- err
	}()
	<-started
	assert.Equal(t, int64(1), limiter.Current())

	_, err := proxy.Invoke(context.Background(), "Wait", make(chan struct{}), make(chan struct{}))
	assert.True(t, errors.Is(err, types.ErrConcurrencyLimitReached))
	assert.Equal(t, int32(1), target.calls.Load())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(0), limiter.Current())

	// the slot is released on errors too
	_, err = proxy.Invoke(context.Background(), "Div", 1, 0)
	assert.ErrorIs(t, err, errDivByZero)
	assert.Equal(t, int64(0), limiter.Current())
	res, err := proxy.Invoke(context.Background(), "Div", 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res)
}
