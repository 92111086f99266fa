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

// Package models contains the shared data types for airsink.
package models

import (
	"fmt"
	"net"
	"time"
)

// AddressFamily identifies the IP family of a resolved endpoint.
type AddressFamily string

const (
	FamilyIPv4 AddressFamily = "ipv4"
	FamilyIPv6 AddressFamily = "ipv6"
)

// ServiceInstance is the identity of one discovered advertisement.
// The unique key is (Name, Type, Domain); Interface is the index the
// announcement arrived on and is carried for resolution only.
type ServiceInstance struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Domain    string `json:"domain"`
	Interface int32  `json:"interface"`
}

// Key returns the identity key of the instance.
func (s ServiceInstance) Key() string {
	return s.Name + "." + s.Type + "." + s.Domain
}

func (s ServiceInstance) String() string {
	return s.Key()
}

// ResolvedEndpoint is the outcome of resolving a ServiceInstance.
// Immutable once created. A single instance may produce several
// endpoints over time if it is re-announced with a different address;
// each is treated as a new event, never an update.
type ResolvedEndpoint struct {
	Address  net.IP            `json:"address"`
	Family   AddressFamily     `json:"family"`
	Port     uint16            `json:"port"`
	Hostname string            `json:"hostname"`
	Records  map[string]string `json:"records,omitempty"`
}

// HostPort renders the endpoint for dialing, bracketing IPv6 literals.
func (e *ResolvedEndpoint) HostPort() string {
	return net.JoinHostPort(e.Address.String(), fmt.Sprintf("%d", e.Port))
}

// PairKey is the dedup key for an (identity, endpoint) pair. TXT record
// changes alone do not alter the key.
func (e *ResolvedEndpoint) PairKey(inst ServiceInstance) string {
	return inst.Key() + "|" + e.HostPort()
}

// SinkModule is a live attachment in the media server. Its only
// destruction path is process termination; the media server retains the
// module after this process exits.
type SinkModule struct {
	Handle    string           `json:"handle"`
	Instance  ServiceInstance  `json:"instance"`
	Endpoint  ResolvedEndpoint `json:"endpoint"`
	Label     string           `json:"label"`
	CreatedAt time.Time        `json:"created_at"`
}
