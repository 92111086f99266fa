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

// Package reconciler drives announced receivers through resolution and
// sink activation, recording every loaded module in a grow-only registry.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/airsink/airsink/pkg/activator"
	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
	"github.com/airsink/airsink/pkg/resolver"
)

const (
	backoffMultiplier    = 1.6
	backoffRandomization = 0.2
)

// Reconciler subscribes to receiver announcements and reconciles each
// one into a loaded sink module. Every announcement is handled on its
// own goroutine so a slow resolution never delays later events.
type Reconciler struct {
	cfg       *config.Config
	browser   Browser
	resolver  Resolver
	activator Activator
	registry  *Registry
	logger    logger.Logger

	mu      sync.Mutex
	claims  map[string]State
	started bool
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

// New creates a reconciler wired to the given discovery and activation
// backends.
func New(cfg *config.Config, browser Browser, res Resolver, act Activator, log logger.Logger) (*Reconciler, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	return &Reconciler{
		cfg:       cfg,
		browser:   browser,
		resolver:  res,
		activator: act,
		registry:  NewRegistry(),
		logger:    log,
		claims:    make(map[string]State),
	}, nil
}

// Registry exposes the record of loaded modules.
func (r *Reconciler) Registry() *Registry {
	return r.registry
}

// Start subscribes to announcements and begins reconciling. A failed
// subscription is fatal; everything after that is handled per event.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	events, err := r.browser.Browse(runCtx)
	if err != nil {
		cancel()

		return fmt.Errorf("%w: %w", resolver.ErrBrowseFailed, err)
	}

	r.cancel = cancel
	r.started = true

	r.logger.Info().
		Str("service_type", r.cfg.ServiceType).
		Str("domain", r.cfg.Domain).
		Str("backend", r.cfg.Backend).
		Msg("Reconciler started")

	r.wg.Add(1)

	go r.consume(runCtx, events)

	return nil
}

// Stop cancels the subscription and waits for in-flight tasks until the
// context deadline.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()

	if !r.started {
		r.mu.Unlock()

		return ErrNotStarted
	}

	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.browser.Close()

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info().Int("modules_loaded", r.registry.Len()).Msg("Reconciler stopped")

		return nil
	case <-ctx.Done():
		return ErrStopTimeout
	}
}

func (r *Reconciler) consume(ctx context.Context, events <-chan models.ServiceInstance) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case inst, ok := <-events:
			if !ok {
				return
			}

			r.wg.Add(1)

			go r.handle(ctx, inst)
		}
	}
}

// handle runs one announcement through the full state machine.
func (r *Reconciler) handle(ctx context.Context, inst models.ServiceInstance) {
	defer r.wg.Done()

	taskID := uuid.NewString()

	r.logger.Debug().
		Str("task_id", taskID).
		Str("instance", inst.Key()).
		Str("state", StateAnnounced.String()).
		Msg("Receiver announced")

	ep, err := r.resolve(ctx, inst)
	if err != nil {
		r.finish(taskID, inst, err)

		return
	}

	key := ep.PairKey(inst)

	if !r.claim(key) {
		r.logger.Debug().
			Str("task_id", taskID).
			Str("pair", key).
			Msg("Duplicate announcement absorbed")

		return
	}

	module, err := r.activate(ctx, inst, ep)
	if err != nil {
		r.release(key)
		r.finish(taskID, inst, err)

		return
	}

	r.setClaim(key, StateActive)

	seq := r.registry.Insert(module)

	r.logger.Info().
		Str("task_id", taskID).
		Str("instance", inst.Key()).
		Str("server", ep.HostPort()).
		Str("sink_name", module.Label).
		Uint64("registry_key", seq).
		Str("state", StateActive.String()).
		Msg("Sink active")
}

// resolve retries transient resolution failures with exponential
// backoff. Malformed responses and policy refusals are permanent.
func (r *Reconciler) resolve(ctx context.Context, inst models.ServiceInstance) (*models.ResolvedEndpoint, error) {
	operation := func() (*models.ResolvedEndpoint, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Resolve.Timeout))
		defer cancel()

		ep, err := r.resolver.Resolve(attemptCtx, inst)
		if err != nil {
			if isPermanentResolve(err) {
				return nil, backoff.Permanent(err)
			}

			return nil, err
		}

		return ep, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff(r.cfg.Resolve)),
		backoff.WithMaxElapsedTime(time.Duration(r.cfg.Resolve.MaxElapsed)))
}

// activate loads the sink module, retrying transient control channel
// failures. A sink name collision gets exactly one more attempt under a
// suffixed name.
func (r *Reconciler) activate(ctx context.Context, inst models.ServiceInstance, ep *models.ResolvedEndpoint) (*models.SinkModule, error) {
	label := activator.DeriveLabel(inst.Name)

	module, err := r.loadWithRetry(ctx, inst, ep, label)
	if errors.Is(err, activator.ErrDuplicateLabel) {
		module, err = r.loadWithRetry(ctx, inst, ep, activator.Disambiguate(label, 2))
	}

	return module, err
}

func (r *Reconciler) loadWithRetry(ctx context.Context, inst models.ServiceInstance, ep *models.ResolvedEndpoint, label string) (*models.SinkModule, error) {
	operation := func() (*models.SinkModule, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Activate.Timeout))
		defer cancel()

		module, err := r.activator.Load(attemptCtx, inst, ep, label)
		if err != nil {
			if errors.Is(err, activator.ErrControlUnavailable) {
				return nil, err
			}

			return nil, backoff.Permanent(err)
		}

		return module, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff(r.cfg.Activate)),
		backoff.WithMaxElapsedTime(time.Duration(r.cfg.Activate.MaxElapsed)))
}

func (r *Reconciler) newBackOff(rc config.RetryConfig) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(rc.InitialBackoff)
	bo.MaxInterval = time.Duration(rc.MaxBackoff)
	bo.Multiplier = backoffMultiplier
	bo.RandomizationFactor = backoffRandomization

	return bo
}

// claim reserves an (identity, address) pair. It fails when another
// task already holds the pair in Activating or Active.
func (r *Reconciler) claim(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.claims[key]; exists {
		return false
	}

	r.claims[key] = StateActivating

	return true
}

func (r *Reconciler) setClaim(key string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.claims[key] = state
}

func (r *Reconciler) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.claims, key)
}

// finish logs the terminal state for a task that did not reach Active.
func (r *Reconciler) finish(taskID string, inst models.ServiceInstance, err error) {
	state := StateDropped
	if isPermanentFailure(err) {
		state = StateFailed
	}

	r.logger.Warn().
		Err(err).
		Str("task_id", taskID).
		Str("instance", inst.Key()).
		Str("state", state.String()).
		Msg("Receiver not activated")
}

func isPermanentResolve(err error) bool {
	return errors.Is(err, resolver.ErrMalformedResponse) ||
		errors.Is(err, resolver.ErrUnsupportedAddressFamily)
}

func isPermanentFailure(err error) bool {
	return isPermanentResolve(err) || errors.Is(err, activator.ErrModuleRejected)
}
