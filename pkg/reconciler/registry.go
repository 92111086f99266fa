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

import (
	"sort"
	"sync"

	"github.com/airsink/airsink/pkg/models"
)

// Registry records every sink module loaded during the process lifetime.
// Entries are keyed by a monotonically increasing sequence number and are
// never mutated or removed; the same receiver identity may appear more
// than once when it re-announces under a different address.
type Registry struct {
	mu      sync.RWMutex
	nextKey uint64
	entries map[uint64]*models.SinkModule
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint64]*models.SinkModule),
	}
}

// Insert appends a loaded module and returns its sequence key.
func (r *Registry) Insert(module *models.SinkModule) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextKey++
	r.entries[r.nextKey] = copySinkModule(module)

	return r.nextKey
}

// Len returns the number of recorded modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Entries returns a snapshot in insertion order. Mutating the result
// does not affect the registry.
func (r *Registry) Entries() []*models.SinkModule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]uint64, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]*models.SinkModule, 0, len(keys))
	for _, k := range keys {
		out = append(out, copySinkModule(r.entries[k]))
	}

	return out
}

func copySinkModule(module *models.SinkModule) *models.SinkModule {
	cp := *module

	if module.Endpoint.Records != nil {
		records := make(map[string]string, len(module.Endpoint.Records))
		for k, v := range module.Endpoint.Records {
			records[k] = v
		}

		cp.Endpoint.Records = records
	}

	if module.Endpoint.Address != nil {
		addr := make([]byte, len(module.Endpoint.Address))
		copy(addr, module.Endpoint.Address)
		cp.Endpoint.Address = addr
	}

	return &cp
}
