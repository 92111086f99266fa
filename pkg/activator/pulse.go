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

// Package activator loads RAOP sink modules into the media server over
// its D-Bus control interface.
package activator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

const (
	raopModuleName = "module-raop-sink"

	lookupDest  = "org.PulseAudio1"
	lookupPath  = "/org/pulseaudio/server_lookup1"
	lookupIface = "org.PulseAudio.ServerLookup1"

	corePath       = "/org/pulseaudio/core1"
	coreLoadModule = "org.PulseAudio.Core1.LoadModule"
)

// PulseClient loads sink modules through the PulseAudio core D-Bus
// interface. The control connection is established lazily so the media
// server may start after the daemon does.
type PulseClient struct {
	cfg    *config.Config
	logger logger.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewPulse returns a client for the media server named in cfg.Pulse.
// No connection is made until the first Load.
func NewPulse(cfg *config.Config, log logger.Logger) *PulseClient {
	return &PulseClient{
		cfg:    cfg,
		logger: log,
	}
}

// Load installs a module-raop-sink instance for the resolved receiver
// under the given sink name and returns the module handle.
func (c *PulseClient) Load(ctx context.Context, inst models.ServiceInstance, ep *models.ResolvedEndpoint, label string) (*models.SinkModule, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	warnUnknownRecords(c.logger, inst, ep.Records)

	args := buildModuleArgs(inst, ep, label, c.cfg.Pulse.LatencyMsec)

	var path dbus.ObjectPath

	call := conn.Object("", corePath).CallWithContext(ctx, coreLoadModule, 0, raopModuleName, args)
	if call.Err != nil {
		c.dropConnOnTransient(call.Err)

		return nil, classifyLoadError(call.Err)
	}

	if err := call.Store(&path); err != nil {
		return nil, fmt.Errorf("%w: decoding module handle: %w", ErrModuleRejected, err)
	}

	c.logger.Info().
		Str("sink_name", label).
		Str("server", args["server"]).
		Str("module", string(path)).
		Msg("Sink module loaded")

	return &models.SinkModule{
		Handle:    string(path),
		Instance:  inst,
		Endpoint:  *ep,
		Label:     label,
		CreatedAt: time.Now(),
	}, nil
}

// Close releases the control connection if one was established.
func (c *PulseClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *PulseClient) connect(ctx context.Context) (*dbus.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	address := c.cfg.Pulse.Address
	if address == "" {
		address = os.Getenv("PULSE_DBUS_SERVER")
	}

	if address == "" {
		discovered, err := lookupServerAddress()
		if err != nil {
			return nil, err
		}

		address = discovered
	}

	conn, err := dbus.Dial(address, dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %w", ErrControlUnavailable, address, err)
	}

	// The media server speaks peer to peer D-Bus: authenticate, no Hello.
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("%w: authenticating to %s: %w", ErrControlUnavailable, address, err)
	}

	c.logger.Debug().Str("address", address).Msg("Connected to media server control channel")

	c.conn = conn

	return conn, nil
}

// dropConnOnTransient forces a fresh dial after a failure that suggests
// the control connection is gone.
func (c *PulseClient) dropConnOnTransient(err error) {
	if !errors.Is(classifyLoadError(err), ErrControlUnavailable) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// lookupServerAddress asks the per-session lookup service where the
// media server control socket lives.
func lookupServerAddress() (string, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return "", fmt.Errorf("%w: session bus: %w", ErrControlUnavailable, err)
	}

	obj := session.Object(lookupDest, lookupPath)

	variant, err := obj.GetProperty(lookupIface + ".Address")
	if err != nil {
		return "", fmt.Errorf("%w: server lookup: %w", ErrControlUnavailable, err)
	}

	address, ok := variant.Value().(string)
	if !ok || address == "" {
		return "", fmt.Errorf("%w: server lookup returned no address", ErrControlUnavailable)
	}

	return address, nil
}

// classifyLoadError maps a D-Bus failure from LoadModule onto the
// package taxonomy. Connection level failures are retryable; argument
// and module init failures are not.
func classifyLoadError(err error) error {
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		return fmt.Errorf("%w: %w", ErrControlUnavailable, err)
	}

	name := dbusErr.Name
	body := dbusErrorText(dbusErr)

	switch {
	case strings.Contains(body, "exist") || strings.Contains(body, "in use"):
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, body)
	case strings.Contains(name, "NoReply"),
		strings.Contains(name, "Timeout"),
		strings.Contains(name, "ServiceUnknown"),
		strings.Contains(name, "Disconnected"),
		strings.Contains(name, "LimitsExceeded"):
		return fmt.Errorf("%w: %s", ErrControlUnavailable, name)
	default:
		return fmt.Errorf("%w: %s: %s", ErrModuleRejected, name, body)
	}
}

func dbusErrorText(err dbus.Error) string {
	if len(err.Body) == 0 {
		return ""
	}

	if s, ok := err.Body[0].(string); ok {
		return s
	}

	return fmt.Sprint(err.Body[0])
}
