// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ============================================================================
// Detection Module Kinds
// ============================================================================
// The producer runs a fixed bank of eleven detection modules. Each module is
// decoded once, at normalization time, into a ModuleKind so the rest of the
// pipeline never dispatches on raw strings.

// ModuleKind identifies one of the known detection modules.
// ModuleUnknown covers identifiers outside the known bank; those keep their
// raw string identity in ModuleOutput.ModuleID.
type ModuleKind int

const (
	ModuleUnknown ModuleKind = iota
	ModuleTDCAI1             // user risk
	ModuleTDCAI2             // AI manipulation tactics
	ModuleTDCAI3             // sentiment pattern
	ModuleTDCAI4             // prompt injection
	ModuleTDCAI5             // data exfiltration
	ModuleTDCAI6             // social engineering
	ModuleTDCAI7             // behavioral anomaly
	ModuleTDCAI8             // threat synthesis
	ModuleTDCAI9             // explainability
	ModuleTDCAI10            // cognitive bias
	ModuleTDCAI11            // intervention response
)

// KnownModuleCount is the size of the detection bank.
const KnownModuleCount = 11

var moduleNames = [...]string{
	ModuleUnknown: "unknown",
	ModuleTDCAI1:  "user_risk",
	ModuleTDCAI2:  "ai_manipulation_tactics",
	ModuleTDCAI3:  "sentiment_pattern",
	ModuleTDCAI4:  "prompt_injection",
	ModuleTDCAI5:  "data_exfiltration",
	ModuleTDCAI6:  "social_engineering",
	ModuleTDCAI7:  "behavioral_anomaly",
	ModuleTDCAI8:  "threat_synthesis",
	ModuleTDCAI9:  "explainability",
	ModuleTDCAI10: "cognitive_bias",
	ModuleTDCAI11: "intervention_response",
}

// moduleKeyPattern matches TDC-AI4, tdc_ai4, tdc-ai4 and transport keys with a
// descriptive suffix such as tdc_ai2_ai_manipulation_tactics. The number is
// greedy so tdc_ai10 never reads as tdc_ai1.
var moduleKeyPattern = regexp.MustCompile(`(?i)^tdc[-_ ]?ai[-_ ]?(\d{1,2})(?:[-_].*)?$`)

// AllModuleKinds returns the known kinds in enumeration order.
func AllModuleKinds() []ModuleKind {
	kinds := make([]ModuleKind, 0, KnownModuleCount)
	for k := ModuleTDCAI1; k <= ModuleTDCAI11; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Known reports whether k is one of the eleven detection modules.
func (k ModuleKind) Known() bool {
	return k >= ModuleTDCAI1 && k <= ModuleTDCAI11
}

// ID returns the canonical identifier (e.g. "TDC-AI4"), or "" for ModuleUnknown.
func (k ModuleKind) ID() string {
	if !k.Known() {
		return ""
	}
	return "TDC-AI" + strconv.Itoa(int(k))
}

// Name returns the module's display name.
func (k ModuleKind) Name() string {
	if !k.Known() {
		return moduleNames[ModuleUnknown]
	}
	return moduleNames[k]
}

// TransportKey returns the key the producer uses for this module's sub-object.
func (k ModuleKind) TransportKey() string {
	if !k.Known() {
		return ""
	}
	return fmt.Sprintf("tdc_ai%d_%s", int(k), moduleNames[k])
}

func (k ModuleKind) String() string {
	if !k.Known() {
		return "unknown"
	}
	return k.ID()
}

// ParseModuleKind decodes a module identifier or transport key.
// It returns the kind and the canonical identifier to store. For identifiers
// outside the known bank the kind is ModuleUnknown and the identifier is the
// trimmed input (or TDC-AI<n> when the input follows the TDC pattern).
func ParseModuleKind(raw string) (ModuleKind, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ModuleUnknown, ""
	}

	m := moduleKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return ModuleUnknown, s
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return ModuleUnknown, s
	}
	if n >= 1 && n <= KnownModuleCount {
		k := ModuleKind(n)
		return k, k.ID()
	}
	return ModuleUnknown, "TDC-AI" + strconv.Itoa(n)
}

// IsModuleKey reports whether a transport field name addresses a module sub-object.
func IsModuleKey(key string) bool {
	return moduleKeyPattern.MatchString(strings.TrimSpace(key))
}

// CompareModules orders module identifiers: known kinds in enumeration order,
// then unknown identifiers lexically.
func CompareModules(a, b string) int {
	ka, ia := ParseModuleKind(a)
	kb, ib := ParseModuleKind(b)
	return compareKinds(ka, ia, kb, ib)
}

func compareKinds(ka ModuleKind, ia string, kb ModuleKind, ib string) int {
	switch {
	case ka.Known() && kb.Known():
		return int(ka) - int(kb)
	case ka.Known():
		return -1
	case kb.Known():
		return 1
	default:
		return strings.Compare(ia, ib)
	}
}
