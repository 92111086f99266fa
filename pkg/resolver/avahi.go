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
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/holoplot/go-avahi"

	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

// AvahiClient browses and resolves through the Avahi daemon on the
// system bus.
type AvahiClient struct {
	conn    *dbus.Conn
	server  *avahi.Server
	cfg     *config.Config
	logger  logger.Logger
	browser *avahi.ServiceBrowser
}

// NewAvahi connects to the system bus and binds the Avahi server
// object. Failure here is fatal for the process: without the daemon
// there is nothing to subscribe to.
func NewAvahi(cfg *config.Config, log logger.Logger) (*AvahiClient, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: system bus: %w", ErrDaemonUnavailable, err)
	}

	server, err := avahi.ServerNew(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: avahi server: %w", ErrDaemonUnavailable, err)
	}

	return &AvahiClient{
		conn:   conn,
		server: server,
		cfg:    cfg,
		logger: log,
	}, nil
}

// Browse subscribes to service-added notifications for the configured
// type and streams them until ctx is cancelled. Removal notifications
// are logged and otherwise ignored: once a sink exists it is kept for
// the process lifetime.
func (c *AvahiClient) Browse(ctx context.Context) (<-chan models.ServiceInstance, error) {
	browser, err := c.server.ServiceBrowserNew(
		avahi.InterfaceUnspec, avahi.ProtoUnspec,
		c.cfg.ServiceType, c.cfg.Domain, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowseFailed, err)
	}

	c.browser = browser

	events := make(chan models.ServiceInstance)

	go func() {
		defer close(events)

		for {
			select {
			case <-ctx.Done():
				return
			case svc, ok := <-browser.AddChannel:
				if !ok {
					return
				}

				inst := models.ServiceInstance{
					Name:      svc.Name,
					Type:      svc.Type,
					Domain:    svc.Domain,
					Interface: svc.Interface,
				}

				select {
				case events <- inst:
				case <-ctx.Done():
					return
				}
			case svc, ok := <-browser.RemoveChannel:
				if !ok {
					return
				}

				c.logger.Debug().
					Str("instance", svc.Name).
					Msg("Receiver disappeared, sink retained")
			}
		}
	}()

	return events, nil
}

// Resolve asks the daemon for one concrete endpoint of the instance.
func (c *AvahiClient) Resolve(ctx context.Context, inst models.ServiceInstance) (*models.ResolvedEndpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	svc, err := c.server.ResolveService(
		inst.Interface, avahi.ProtoUnspec,
		inst.Name, inst.Type, inst.Domain,
		c.resolveProto(), 0)
	if err != nil {
		return nil, classifyAvahiError(err)
	}

	records := parseTXT(txtToStrings(svc.Txt))

	return buildEndpoint(svc.Address, svc.Port, svc.Host, records, c.cfg.AddressFamily)
}

// Close frees the browser and drops the daemon connection.
func (c *AvahiClient) Close() {
	if c.browser != nil {
		c.server.ServiceBrowserFree(c.browser)
		c.browser = nil
	}

	c.server.Close()
}

// resolveProto narrows the daemon-side resolution to the configured
// family so unusable addresses are filtered before they travel.
func (c *AvahiClient) resolveProto() int32 {
	switch c.cfg.AddressFamily {
	case config.FamilyIPv4:
		return avahi.ProtoInet
	case config.FamilyIPv6:
		return avahi.ProtoInet6
	default:
		return avahi.ProtoUnspec
	}
}

func txtToStrings(txt [][]byte) []string {
	if len(txt) == 0 {
		return nil
	}

	out := make([]string, 0, len(txt))
	for _, rec := range txt {
		out = append(out, string(rec))
	}

	return out
}

// classifyAvahiError maps D-Bus failures onto the package taxonomy.
func classifyAvahiError(err error) error {
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		return fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}

	name := dbusErr.Name

	switch {
	case strings.Contains(name, "Timeout"):
		return fmt.Errorf("%w: %s", ErrResolveTimeout, name)
	case strings.Contains(name, "NotFound"), strings.Contains(name, "DnsError"):
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	case strings.Contains(name, "Invalid"):
		return fmt.Errorf("%w: %s", ErrMalformedResponse, name)
	default:
		return fmt.Errorf("%w: %s", ErrDaemonUnavailable, name)
	}
}
