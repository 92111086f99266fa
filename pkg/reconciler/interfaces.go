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

package reconciler

//go:generate mockgen -destination=mock_reconciler.go -package=reconciler github.com/airsink/airsink/pkg/reconciler Browser,Resolver,Activator

import (
	"context"

	"github.com/airsink/airsink/pkg/models"
)

// Browser delivers service announcements from the discovery backend.
type Browser interface {
	// Browse subscribes to announcements for the configured service type.
	// The returned channel closes when the subscription ends.
	Browse(ctx context.Context) (<-chan models.ServiceInstance, error)

	// Close tears down the subscription and the backend connection.
	Close()
}

// Resolver turns an announced instance into a concrete endpoint.
type Resolver interface {
	Resolve(ctx context.Context, inst models.ServiceInstance) (*models.ResolvedEndpoint, error)
}

// Activator installs a sink module for a resolved receiver.
type Activator interface {
	Load(ctx context.Context, inst models.ServiceInstance, ep *models.ResolvedEndpoint, label string) (*models.SinkModule, error)
}
