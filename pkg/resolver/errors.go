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

import "errors"

var (
	// ErrDaemonUnavailable indicates the name-resolution service could
	// not be reached. Transient: callers retry with backoff.
	ErrDaemonUnavailable = errors.New("name-resolution service unreachable")

	// ErrNotFound indicates the instance could not be resolved right
	// now. Transient: announcements can outrun record propagation.
	ErrNotFound = errors.New("service instance not found")

	// ErrResolveTimeout indicates the resolution call timed out.
	// Transient.
	ErrResolveTimeout = errors.New("resolution timed out")

	// ErrMalformedResponse indicates an unparseable resolution result.
	// Permanent: the instance is dropped.
	ErrMalformedResponse = errors.New("malformed resolution response")

	// ErrUnsupportedAddressFamily indicates the instance only resolves
	// to addresses the sink backend cannot use (link-local IPv6, or a
	// family excluded by policy). Permanent: the instance is dropped.
	ErrUnsupportedAddressFamily = errors.New("unsupported address family")

	// ErrBrowseFailed indicates the browse subscription could not be
	// established. Fatal at startup.
	ErrBrowseFailed = errors.New("browse subscription failed")
)
