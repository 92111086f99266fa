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

// Package config loads and validates the airsink daemon configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

var (
	ErrUnknownBackend       = errors.New("unknown resolver backend")
	ErrUnknownAddressFamily = errors.New("unknown address family")
	ErrServiceTypeRequired  = errors.New("service_type cannot be empty")
	ErrDomainRequired       = errors.New("domain cannot be empty")
)

// Resolver backends.
const (
	BackendAvahi = "avahi"
	BackendMDNS  = "mdns"
)

// Address family policies. FamilyIPv4 is the default: the RAOP sink
// backend cannot bind link-local IPv6 addresses to a specific interface,
// so IPv6 is opt-in and link-local IPv6 results are always refused.
const (
	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
	FamilyAny  = "any"
)

// RetryConfig bounds the backoff loop around one class of external call.
type RetryConfig struct {
	Timeout        models.Duration `json:"timeout"`
	InitialBackoff models.Duration `json:"initial_backoff"`
	MaxBackoff     models.Duration `json:"max_backoff"`
	MaxElapsed     models.Duration `json:"max_elapsed"`
}

// PulseConfig points at the media server control channel. An empty
// Address means the socket is discovered through the session bus
// (org.PulseAudio.ServerLookup1).
type PulseConfig struct {
	Address     string `json:"address"`
	LatencyMsec int    `json:"latency_msec"`
}

// Config is the full daemon configuration.
type Config struct {
	ServiceType   string         `json:"service_type"`
	Domain        string         `json:"domain"`
	Backend       string         `json:"backend"`
	AddressFamily string         `json:"address_family"`
	Resolve       RetryConfig    `json:"resolve"`
	Activate      RetryConfig    `json:"activate"`
	Pulse         PulseConfig    `json:"pulse"`
	Logging       *logger.Config `json:"logging"`
}

// DefaultConfig returns the documented defaults. Retry and backoff
// parameters are deliberately explicit here rather than buried at the
// call sites.
func DefaultConfig() *Config {
	return &Config{
		ServiceType:   "_raop._tcp",
		Domain:        "local",
		Backend:       BackendAvahi,
		AddressFamily: FamilyIPv4,
		Resolve: RetryConfig{
			Timeout:        models.Duration(2 * time.Second),
			InitialBackoff: models.Duration(500 * time.Millisecond),
			MaxBackoff:     models.Duration(5 * time.Second),
			MaxElapsed:     models.Duration(30 * time.Second),
		},
		Activate: RetryConfig{
			Timeout:        models.Duration(2 * time.Second),
			InitialBackoff: models.Duration(500 * time.Millisecond),
			MaxBackoff:     models.Duration(5 * time.Second),
			MaxElapsed:     models.Duration(30 * time.Second),
		},
		Pulse: PulseConfig{
			LatencyMsec: 200,
		},
		Logging: logger.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the JSON file at path
// (if any), then AIRSINK_* environment overrides, then validation.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		loader := &FileLoader{}
		if err := loader.Load(ctx, path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies the small fixed set of environment
// overrides. The config struct is flat enough that an explicit list is
// clearer than reflection.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AIRSINK_SERVICE_TYPE"); v != "" {
		cfg.ServiceType = v
	}

	if v := os.Getenv("AIRSINK_DOMAIN"); v != "" {
		cfg.Domain = v
	}

	if v := os.Getenv("AIRSINK_BACKEND"); v != "" {
		cfg.Backend = v
	}

	if v := os.Getenv("AIRSINK_ADDRESS_FAMILY"); v != "" {
		cfg.AddressFamily = v
	}

	if v := os.Getenv("AIRSINK_PULSE_ADDRESS"); v != "" {
		cfg.Pulse.Address = v
	}
}

// Validate checks enumerated fields and required strings.
func (c *Config) Validate() error {
	if c.ServiceType == "" {
		return ErrServiceTypeRequired
	}

	if c.Domain == "" {
		return ErrDomainRequired
	}

	switch c.Backend {
	case BackendAvahi, BackendMDNS:
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownBackend, c.Backend, BackendAvahi, BackendMDNS)
	}

	switch c.AddressFamily {
	case FamilyIPv4, FamilyIPv6, FamilyAny:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAddressFamily, c.AddressFamily)
	}

	return nil
}
