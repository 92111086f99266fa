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

// Package resolver turns DNS-SD announcements into concrete network
// endpoints. Two backends implement the same browse/resolve surface:
// the Avahi daemon reached over the system bus, and an in-process
// multicast resolver.
package resolver

import (
	"context"
	"net"
	"strings"

	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

// Client is the resolver surface the reconciler consumes. Browse may
// only be called once per client; the returned channel is closed when
// the subscription ends.
type Client interface {
	Browse(ctx context.Context) (<-chan models.ServiceInstance, error)
	Resolve(ctx context.Context, inst models.ServiceInstance) (*models.ResolvedEndpoint, error)
	Close()
}

// New constructs the backend selected by cfg.Backend.
func New(cfg *config.Config, log logger.Logger) (Client, error) {
	if cfg.Backend == config.BackendMDNS {
		return NewMDNS(cfg, log)
	}

	return NewAvahi(cfg, log)
}

// parseTXT splits DNS-SD TXT records into a key/value map. Unknown keys
// are preserved as opaque strings; a record without '=' maps to "".
func parseTXT(records []string) map[string]string {
	if len(records) == 0 {
		return nil
	}

	out := make(map[string]string, len(records))

	for _, rec := range records {
		if rec == "" {
			continue
		}

		key, value, _ := strings.Cut(rec, "=")
		if key == "" {
			continue
		}

		out[key] = value
	}

	return out
}

// buildEndpoint validates a resolved address against the family policy
// and assembles the immutable endpoint value.
func buildEndpoint(address string, port uint16, hostname string, records map[string]string, family string) (*models.ResolvedEndpoint, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return nil, ErrMalformedResponse
	}

	fam := models.FamilyIPv6
	if ip.To4() != nil {
		fam = models.FamilyIPv4
	}

	switch family {
	case config.FamilyIPv4:
		if fam != models.FamilyIPv4 {
			return nil, ErrUnsupportedAddressFamily
		}
	case config.FamilyIPv6:
		if fam != models.FamilyIPv6 {
			return nil, ErrUnsupportedAddressFamily
		}
	}

	// The sink backend cannot bind a link-local address to a specific
	// interface, so these are refused regardless of policy.
	if fam == models.FamilyIPv6 && ip.IsLinkLocalUnicast() {
		return nil, ErrUnsupportedAddressFamily
	}

	return &models.ResolvedEndpoint{
		Address:  ip,
		Family:   fam,
		Port:     port,
		Hostname: hostname,
		Records:  records,
	}, nil
}
