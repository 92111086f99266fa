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

package activator

import "errors"

var (
	// ErrControlUnavailable is returned when the media server control
	// channel cannot be reached. Callers may retry.
	ErrControlUnavailable = errors.New("media server control channel unavailable")

	// ErrModuleRejected is returned when the media server refuses the
	// module load. The arguments will not become valid on retry.
	ErrModuleRejected = errors.New("sink module rejected by media server")

	// ErrDuplicateLabel is returned when a sink with the requested name
	// already exists on the media server.
	ErrDuplicateLabel = errors.New("sink label already in use")
)
