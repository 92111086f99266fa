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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godbus/dbus/v5"
	"github.com/grandcat/zeroconf"

	"github.com/airsink/airsink/pkg/config"
	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

func TestParseTXT(t *testing.T) {
	tests := []struct {
		name     string
		records  []string
		expected map[string]string
	}{
		{
			name:     "empty",
			records:  nil,
			expected: nil,
		},
		{
			name:    "typical raop records",
			records: []string{"tp=UDP", "am=AppleTV3,2", "cn=0,1", "et=0,4"},
			expected: map[string]string{
				"tp": "UDP",
				"am": "AppleTV3,2",
				"cn": "0,1",
				"et": "0,4",
			},
		},
		{
			name:    "valueless and unknown keys preserved",
			records: []string{"flag", "xx=opaque", ""},
			expected: map[string]string{
				"flag": "",
				"xx":   "opaque",
			},
		},
		{
			name:    "value containing equals sign",
			records: []string{"pk=ab=cd"},
			expected: map[string]string{
				"pk": "ab=cd",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTXT(tt.records))
		})
	}
}

func TestBuildEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		address string
		family  string
		wantErr error
		wantFam models.AddressFamily
	}{
		{
			name:    "ipv4 under ipv4 policy",
			address: "10.0.0.5",
			family:  config.FamilyIPv4,
			wantFam: models.FamilyIPv4,
		},
		{
			name:    "ipv6 under ipv4 policy refused",
			address: "2001:db8::5",
			family:  config.FamilyIPv4,
			wantErr: ErrUnsupportedAddressFamily,
		},
		{
			name:    "routable ipv6 under any policy",
			address: "2001:db8::5",
			family:  config.FamilyAny,
			wantFam: models.FamilyIPv6,
		},
		{
			name:    "link-local ipv6 always refused",
			address: "fe80::1",
			family:  config.FamilyAny,
			wantErr: ErrUnsupportedAddressFamily,
		},
		{
			name:    "link-local ipv6 refused even under ipv6 policy",
			address: "fe80::1",
			family:  config.FamilyIPv6,
			wantErr: ErrUnsupportedAddressFamily,
		},
		{
			name:    "garbage address",
			address: "not-an-ip",
			family:  config.FamilyIPv4,
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := buildEndpoint(tt.address, 7000, "host.local", nil, tt.family)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFam, ep.Family)
			assert.Equal(t, uint16(7000), ep.Port)
			assert.Equal(t, "host.local", ep.Hostname)
		})
	}
}

func TestEndpointHostPort(t *testing.T) {
	ep := &models.ResolvedEndpoint{Address: net.ParseIP("10.0.0.5"), Port: 7000}
	assert.Equal(t, "10.0.0.5:7000", ep.HostPort())

	ep6 := &models.ResolvedEndpoint{Address: net.ParseIP("2001:db8::5"), Port: 7000}
	assert.Equal(t, "[2001:db8::5]:7000", ep6.HostPort())
}

func TestEndpointFromEntryPrefersIPv4(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AddressFamily = config.FamilyAny

	client, err := NewMDNS(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	entry := &zeroconf.ServiceEntry{
		HostName: "kitchen.local.",
		Port:     7000,
		Text:     []string{"am=modelX"},
		AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
		AddrIPv6: []net.IP{net.ParseIP("2001:db8::5")},
	}

	ep, err := client.endpointFromEntry(entry)
	require.NoError(t, err)

	assert.Equal(t, models.FamilyIPv4, ep.Family)
	assert.Equal(t, "10.0.0.5", ep.Address.String())
	assert.Equal(t, "modelX", ep.Records["am"])
}

func TestEndpointFromEntryLinkLocalOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AddressFamily = config.FamilyAny

	client, err := NewMDNS(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	entry := &zeroconf.ServiceEntry{
		HostName: "patio.local.",
		Port:     7000,
		AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
	}

	_, err = client.endpointFromEntry(entry)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAddressFamily)
}

func TestEndpointFromEntryIPv6OnlyUnderIPv4Policy(t *testing.T) {
	cfg := config.DefaultConfig()

	client, err := NewMDNS(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	entry := &zeroconf.ServiceEntry{
		HostName: "garage.local.",
		Port:     7000,
		AddrIPv6: []net.IP{net.ParseIP("2001:db8::9")},
	}

	_, err = client.endpointFromEntry(entry)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAddressFamily)
}

func TestEndpointFromEntryBadPort(t *testing.T) {
	cfg := config.DefaultConfig()

	client, err := NewMDNS(cfg, logger.NewTestLogger())
	require.NoError(t, err)

	_, err = client.endpointFromEntry(&zeroconf.ServiceEntry{Port: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClassifyAvahiError(t *testing.T) {
	tests := []struct {
		name    string
		errName string
		want    error
	}{
		{"timeout", "org.freedesktop.Avahi.TimeoutError", ErrResolveTimeout},
		{"not found", "org.freedesktop.Avahi.NotFoundError", ErrNotFound},
		{"dns failure", "org.freedesktop.Avahi.DnsError", ErrNotFound},
		{"invalid", "org.freedesktop.DBus.Error.InvalidArgs", ErrMalformedResponse},
		{"no reply", "org.freedesktop.DBus.Error.NoReply", ErrDaemonUnavailable},
		{"service unknown", "org.freedesktop.DBus.Error.ServiceUnknown", ErrDaemonUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyAvahiError(dbus.Error{Name: tt.errName})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
