/*
 * Copyright 2025 The airsink Authors.
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

package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsink/airsink/pkg/logger"
)

type fakeService struct {
	startErr error
	stopErr  error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeService) Start(_ context.Context) error {
	s.started.Store(true)

	return s.startErr
}

func (s *fakeService) Stop(_ context.Context) error {
	s.stopped.Store(true)

	return s.stopErr
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := &fakeService{}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &RunOptions{
			ServiceName: "airsink",
			Service:     svc,
			Logger:      logger.NewTestLogger(),
			StopTimeout: time.Second,
		})
	}()

	require.Eventually(t, func() bool {
		return svc.started.Load()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	assert.True(t, svc.stopped.Load())
}

func TestRunReturnsStartFailure(t *testing.T) {
	startErr := errors.New("subscription failed")
	svc := &fakeService{startErr: startErr}

	err := Run(context.Background(), &RunOptions{
		ServiceName: "airsink",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, startErr)
	assert.False(t, svc.stopped.Load())
}

func TestRunPropagatesStopFailure(t *testing.T) {
	stopErr := errors.New("drain timed out")
	svc := &fakeService{stopErr: stopErr}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, &RunOptions{
		ServiceName: "airsink",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
		StopTimeout: 100 * time.Millisecond,
	})

	assert.ErrorIs(t, err, stopErr)
}

func TestInitializeLoggerDefaults(t *testing.T) {
	require.NoError(t, InitializeLogger(context.Background(), nil))
}

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger(context.Background(), "test", &logger.Config{Level: "info"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}
