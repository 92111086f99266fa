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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/airsink/airsink/pkg/activator"
	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/lifecycle"
	"github.com/airsink/airsink/pkg/reconciler"
	"github.com/airsink/airsink/pkg/resolver"
)

var (
	configFile  = flag.String("config", "", "Path to config file (optional)")
	serviceType = flag.String("service-type", "", "DNS-SD service type to browse")
	domain      = flag.String("domain", "", "Browse domain")
	backend     = flag.String("backend", "", "Discovery backend (avahi, mdns)")
	logLevel    = flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "airsink: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, *configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	log, err := lifecycle.CreateComponentLogger(ctx, "airsink", cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	defer func() {
		_ = lifecycle.ShutdownLogger()
	}()

	disc, err := resolver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("connecting discovery backend: %w", err)
	}

	pulse := activator.NewPulse(cfg, log)
	defer pulse.Close()

	rec, err := reconciler.New(cfg, disc, disc, pulse, log)
	if err != nil {
		return err
	}

	return lifecycle.Run(ctx, &lifecycle.RunOptions{
		ServiceName: "airsink",
		Service:     rec,
		Logger:      log,
	})
}

// applyFlags lets command line flags override file and environment
// configuration.
func applyFlags(cfg *config.Config) {
	if *serviceType != "" {
		cfg.ServiceType = *serviceType
	}

	if *domain != "" {
		cfg.Domain = *domain
	}

	if *backend != "" {
		cfg.Backend = *backend
	}

	if cfg.Logging == nil {
		cfg.Logging = config.DefaultConfig().Logging
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if *debug {
		cfg.Logging.Debug = true
	}
}
