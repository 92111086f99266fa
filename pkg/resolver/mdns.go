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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

// MDNSClient browses and resolves with an in-process multicast
// resolver, for hosts that run no Avahi daemon.
type MDNSClient struct {
	cfg    *config.Config
	logger logger.Logger
}

func NewMDNS(cfg *config.Config, log logger.Logger) (*MDNSClient, error) {
	return &MDNSClient{cfg: cfg, logger: log}, nil
}

// Browse streams service-added notifications for the configured type.
// The multicast library has no separate removal signal to ignore; TTL
// expiry is simply never acted on.
func (c *MDNSClient) Browse(ctx context.Context) (<-chan models.ServiceInstance, error) {
	resolver, err := zeroconf.NewResolver(c.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowseFailed, err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	events := make(chan models.ServiceInstance)

	if err := resolver.Browse(ctx, c.cfg.ServiceType, c.cfg.Domain, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowseFailed, err)
	}

	go func() {
		defer close(events)

		for entry := range entries {
			if entry == nil {
				continue
			}

			inst := models.ServiceInstance{
				Name:   entry.Instance,
				Type:   entry.Service,
				Domain: entry.Domain,
			}

			select {
			case events <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Resolve looks the instance up again and waits for the first usable
// entry. The per-call timeout comes from the resolve config block.
func (c *MDNSClient) Resolve(ctx context.Context, inst models.ServiceInstance) (*models.ResolvedEndpoint, error) {
	timeout := time.Duration(c.cfg.Resolve.Timeout)
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(c.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	if err := resolver.Lookup(lookupCtx, inst.Name, inst.Type, inst.Domain, entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return nil, ErrNotFound
			}

			if entry == nil || entry.Instance != inst.Name {
				continue
			}

			ep, err := c.endpointFromEntry(entry)
			if err != nil {
				return nil, err
			}

			return ep, nil
		case <-lookupCtx.Done():
			if errors.Is(lookupCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, ErrResolveTimeout
			}

			return nil, lookupCtx.Err()
		}
	}
}

func (*MDNSClient) Close() {
	// Per-call resolvers are torn down by their contexts.
}

func (c *MDNSClient) clientOptions() []zeroconf.ClientOption {
	switch c.cfg.AddressFamily {
	case config.FamilyIPv4:
		return []zeroconf.ClientOption{zeroconf.SelectIPTraffic(zeroconf.IPv4)}
	case config.FamilyIPv6:
		return []zeroconf.ClientOption{zeroconf.SelectIPTraffic(zeroconf.IPv6)}
	default:
		return []zeroconf.ClientOption{zeroconf.SelectIPTraffic(zeroconf.IPv4AndIPv6)}
	}
}

// endpointFromEntry picks an address under the family policy: IPv4
// first, then routable IPv6. An entry carrying only link-local IPv6 is
// a policy failure, not a retry candidate.
func (c *MDNSClient) endpointFromEntry(entry *zeroconf.ServiceEntry) (*models.ResolvedEndpoint, error) {
	if entry.Port <= 0 || entry.Port > 65535 {
		return nil, ErrMalformedResponse
	}

	records := parseTXT(entry.Text)
	port := uint16(entry.Port)
	family := c.cfg.AddressFamily

	if family != config.FamilyIPv6 {
		for _, ip := range entry.AddrIPv4 {
			if ip == nil {
				continue
			}

			return buildEndpoint(ip.String(), port, entry.HostName, records, family)
		}
	}

	if family != config.FamilyIPv4 {
		if ip := firstRoutableIPv6(entry.AddrIPv6); ip != nil {
			return buildEndpoint(ip.String(), port, entry.HostName, records, family)
		}

		if len(entry.AddrIPv6) > 0 {
			return nil, ErrUnsupportedAddressFamily
		}
	}

	if family == config.FamilyIPv4 && len(entry.AddrIPv6) > 0 && len(entry.AddrIPv4) == 0 {
		return nil, ErrUnsupportedAddressFamily
	}

	return nil, ErrNotFound
}

func firstRoutableIPv6(addrs []net.IP) net.IP {
	for _, ip := range addrs {
		if ip == nil || ip.IsLinkLocalUnicast() {
			continue
		}

		return ip
	}

	return nil
}
