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

// State tracks an announcement through resolution and activation.
// Dropped and Failed are terminal for the task that reached them but do
// not prevent a later announcement of the same receiver from starting a
// fresh task.
type State int

const (
	StateAnnounced State = iota
	StateResolving
	StateResolved
	StateActivating
	StateActive
	StateDropped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAnnounced:
		return "announced"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDropped:
		return "dropped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
