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

// Package lifecycle owns process startup and shutdown: logger bootstrap,
// signal handling, and the run loop for a long-lived service.
package lifecycle

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/airsink/airsink/pkg/logger"
)

const defaultStopTimeout = 10 * time.Second

// Service is a long-running component with explicit start and stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RunOptions configures the run loop.
type RunOptions struct {
	ServiceName string
	Service     Service
	Logger      logger.Logger

	// StopTimeout bounds the graceful shutdown. Zero means the default.
	StopTimeout time.Duration
}

// Run starts the service and blocks until the context is canceled or a
// SIGINT/SIGTERM arrives, then stops the service under a deadline. A
// Start failure is returned as-is so the caller can exit non-zero.
func Run(ctx context.Context, opts *RunOptions) error {
	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := opts.Logger

	if err := opts.Service.Start(runCtx); err != nil {
		return err
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	<-runCtx.Done()

	log.Info().Str("service", opts.ServiceName).Msg("Shutdown signal received")

	stopTimeout := opts.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err := opts.Service.Stop(stopCtx); err != nil {
		log.Error().Err(err).Str("service", opts.ServiceName).Msg("Shutdown did not complete cleanly")

		return err
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	return nil
}
