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

	"github.com/airsink/airsink/pkg/logger"
	"github.com/airsink/airsink/pkg/models"
)

// buildModuleArgs translates a resolved receiver into the argument map
// for module-raop-sink. TXT record keys follow the RAOP advertisement
// convention: tp carries the transport, et the encryption scheme, cn
// the codec list, am the device model.
func buildModuleArgs(inst models.ServiceInstance, ep *models.ResolvedEndpoint, label string, latencyMsec int) map[string]string {
	args := map[string]string{
		"server":       ep.HostPort(),
		"sink_name":    label,
		"protocol":     transportFor(ep.Records["tp"]),
		"encryption":   encryptionFor(ep.Records["et"]),
		"codec":        codecFor(ep.Records["cn"]),
		"latency_msec": fmt.Sprintf("%d", latencyMsec),
	}

	desc := inst.Name
	if model := ep.Records["am"]; model != "" {
		desc = fmt.Sprintf("%s (%s)", inst.Name, model)
	}

	props := []string{
		fmt.Sprintf("device.description=%q", desc),
		fmt.Sprintf("network.address-family=%q", familyTag(ep.Family)),
	}
	args["sink_properties"] = strings.Join(props, " ")

	return args
}

// transportFor maps the tp record onto a protocol argument. Receivers
// advertising both transports get UDP, the lower-latency path; an
// unrecognized value also falls back to UDP.
func transportFor(tp string) string {
	upper := strings.ToUpper(tp)

	if strings.Contains(upper, "UDP") || tp == "" {
		return "UDP"
	}

	if strings.Contains(upper, "TCP") {
		return "TCP"
	}

	return "UDP"
}

// encryptionFor maps the et record. The record is a comma separated
// list of supported schemes; RSA takes precedence when both are
// advertised.
func encryptionFor(et string) string {
	schemes := strings.Split(et, ",")

	for _, s := range schemes {
		if strings.TrimSpace(s) == "1" {
			return "RSA"
		}
	}

	for _, s := range schemes {
		if strings.TrimSpace(s) == "4" {
			return "auth_setup"
		}
	}

	return "none"
}

// codecFor maps the cn record, preferring the richest advertised codec.
func codecFor(cn string) string {
	best := ""

	for _, c := range strings.Split(cn, ",") {
		switch strings.TrimSpace(c) {
		case "3":
			return "AAC-ELD"
		case "2":
			if best != "AAC" {
				best = "AAC"
			}
		case "1":
			if best == "" || best == "PCM" {
				best = "ALAC"
			}
		case "0":
			if best == "" {
				best = "PCM"
			}
		}
	}

	if best == "" {
		return "ALAC"
	}

	return best
}

// warnUnknownRecords logs advertisement values that fall outside the
// known mappings. The defaults still apply; the receiver may simply be
// newer than this table.
func warnUnknownRecords(log logger.Logger, inst models.ServiceInstance, records map[string]string) {
	if tp := records["tp"]; tp != "" && !strings.Contains(strings.ToUpper(tp), "UDP") && !strings.Contains(strings.ToUpper(tp), "TCP") {
		log.Warn().Str("instance", inst.Name).Str("tp", tp).Msg("Unknown transport value, defaulting to UDP")
	}

	for _, s := range strings.Split(records["et"], ",") {
		switch strings.TrimSpace(s) {
		case "", "0", "1", "3", "4", "5":
		default:
			log.Warn().Str("instance", inst.Name).Str("et", records["et"]).Msg("Unknown encryption value, using none")
		}
	}

	for _, s := range strings.Split(records["cn"], ",") {
		switch strings.TrimSpace(s) {
		case "", "0", "1", "2", "3":
		default:
			log.Warn().Str("instance", inst.Name).Str("cn", records["cn"]).Msg("Unknown codec value, skipping")
		}
	}
}

func familyTag(f models.AddressFamily) string {
	if f == models.FamilyIPv6 {
		return "ipv6"
	}

	return "ipv4"
}
