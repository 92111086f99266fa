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

import (
	"fmt"
	"strings"
)

const labelPrefix = "raop_sink."

// DeriveLabel maps an advertised instance name onto a sink name the
// media server accepts. The result is deterministic for a given input:
// lowercase, with every run of non-alphanumeric characters collapsed
// into a single underscore.
func DeriveLabel(instanceName string) string {
	var b strings.Builder

	b.WriteString(labelPrefix)

	pendingSep := false

	for _, r := range strings.ToLower(instanceName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > len(labelPrefix) {
				b.WriteByte('_')
			}

			pendingSep = false

			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	if b.Len() == len(labelPrefix) {
		b.WriteString("receiver")
	}

	return b.String()
}

// Disambiguate appends a numeric suffix for the single retry allowed
// after a name collision.
func Disambiguate(label string, attempt int) string {
	return fmt.Sprintf("%s_%d", label, attempt)
}
