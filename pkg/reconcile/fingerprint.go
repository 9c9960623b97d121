/*
 * Copyright 2025 Carver Automation Corporation.
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

package reconcile

import (
	"net/netip"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/carverauto/stackdock/pkg/models"
)

// Fingerprint field kinds in precedence order. Only the first present field
// forms the key; lower-precedence fields are ignored even when they disagree.
const (
	FieldCrossRef = "xref"
	FieldHostname = "host"
	FieldIP       = "ip"
)

// FieldPrecedence is the order in which fingerprint fields are consulted.
//
//nolint:gochecknoglobals // shared configuration constant
var FieldPrecedence = []string{FieldCrossRef, FieldHostname, FieldIP}

// logicalIDNamespace seeds the UUIDv5 ids handed out for logical resources.
//
//nolint:gochecknoglobals // fixed namespace
var logicalIDNamespace = uuid.MustParse("5c0c4f3e-7d8e-4b8a-9f0e-2a6d51f0d0c1")

// FingerprintKey returns the grouping key for a record, or "" when the record
// has no usable fingerprint field. Keys are scoped by resource type.
func FingerprintKey(record *models.ResourceRecord) string {
	if record == nil {
		return ""
	}

	kind, value := HighestPriorityField(record.Fingerprint)
	if kind == "" {
		return ""
	}

	return string(record.ResourceType) + "|" + kind + ":" + value
}

// HighestPriorityField returns the normalized value of the first usable
// fingerprint field.
func HighestPriorityField(fp models.Fingerprint) (kind, value string) {
	if v := normalizeCrossRef(fp.CrossRefID); v != "" {
		return FieldCrossRef, v
	}

	if v := NormalizeHostname(fp.Hostname); v != "" {
		return FieldHostname, v
	}

	if v := NormalizeIP(fp.PublicIP); v != "" {
		return FieldIP, v
	}

	return "", ""
}

func fold(s string) string {
	// cases.Caser is stateful, so each call gets its own.
	return cases.Fold().String(s)
}

func normalizeCrossRef(s string) string {
	return fold(strings.TrimSpace(s))
}

// NormalizeHostname folds case, trims whitespace and drops the trailing root dot.
func NormalizeHostname(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")

	return fold(s)
}

// NormalizeIP canonicalizes an address ("::ffff:1.2.3.4" -> "1.2.3.4",
// "10.0.0.1/32" -> "10.0.0.1"). Unparseable input falls back to folded text.
func NormalizeIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}

	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Addr().Unmap().String()
	}

	return fold(s)
}

// LogicalID derives a stable identifier for a logical resource. Records that
// share a fingerprint key share a logical id across calls; keyless records are
// identified by their own dock namespace.
func LogicalID(record *models.ResourceRecord) string {
	if record == nil {
		return ""
	}

	seed := FingerprintKey(record)
	if seed == "" {
		seed = string(record.ResourceType) + "|record:" + record.SourceKey()
	}

	return uuid.NewSHA1(logicalIDNamespace, []byte(seed)).String()
}
