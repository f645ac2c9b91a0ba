package model

import (
	"fmt"
	"strings"
)

// ScanCounters is the aggregate tally returned by the remote service for one
// analysis: how many underlying engines put the target in each category.
type ScanCounters struct {
	Malicious        int `json:"malicious" yaml:"malicious"`
	Suspicious       int `json:"suspicious" yaml:"suspicious"`
	Undetected       int `json:"undetected" yaml:"undetected"`
	Harmless         int `json:"harmless" yaml:"harmless"`
	Timeout          int `json:"timeout" yaml:"timeout"`
	ConfirmedTimeout int `json:"confirmed_timeout" yaml:"confirmed_timeout"`
	Failure          int `json:"failure" yaml:"failure"`
	TypeUnsupported  int `json:"type_unsupported" yaml:"type_unsupported"`
}

// Validate rejects negative counters.
func (c ScanCounters) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"malicious", c.Malicious},
		{"suspicious", c.Suspicious},
		{"undetected", c.Undetected},
		{"harmless", c.Harmless},
		{"timeout", c.Timeout},
		{"confirmed_timeout", c.ConfirmedTimeout},
		{"failure", c.Failure},
		{"type_unsupported", c.TypeUnsupported},
	} {
		if f.v < 0 {
			return fmt.Errorf("counter %s is negative: %d", f.name, f.v)
		}
	}
	return nil
}

// IsZero reports whether every counter is zero, which is what the remote
// returns for an analysis that has not produced any engine results yet.
func (c ScanCounters) IsZero() bool {
	return c == ScanCounters{}
}

// ThreatLevel is the coarse severity derived from ScanCounters.
type ThreatLevel int

const (
	ThreatSafe ThreatLevel = iota
	ThreatMedium
	ThreatHigh
	ThreatUnknown
)

func (l ThreatLevel) String() string {
	switch l {
	case ThreatSafe:
		return "SAFE"
	case ThreatMedium:
		return "MEDIUM"
	case ThreatHigh:
		return "HIGH"
	case ThreatUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("ThreatLevel(%d)", int(l))
	}
}

// MarshalText encodes the level by name.
func (l ThreatLevel) MarshalText() ([]byte, error) {
	switch l {
	case ThreatSafe, ThreatMedium, ThreatHigh, ThreatUnknown:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("invalid threat level %d", int(l))
	}
}

// UnmarshalText decodes a level name, case-insensitively.
func (l *ThreatLevel) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "SAFE":
		*l = ThreatSafe
	case "MEDIUM":
		*l = ThreatMedium
	case "HIGH":
		*l = ThreatHigh
	case "UNKNOWN":
		*l = ThreatUnknown
	default:
		return fmt.Errorf("unknown threat level %q", string(b))
	}
	return nil
}

// Classify maps counters to a ThreatLevel. The first matching rule wins:
// malicious, then suspicious, then failure/timeout, then safe.
func Classify(c ScanCounters) ThreatLevel {
	switch {
	case c.Malicious > 0:
		return ThreatHigh
	case c.Suspicious > 0:
		return ThreatMedium
	case c.Failure > 0 || c.Timeout > 0:
		return ThreatUnknown
	default:
		return ThreatSafe
	}
}

// IsSafe is the boolean gate. It only looks at malicious and suspicious, so a
// verdict classified UNKNOWN can still be safe. Keep it separate from Classify.
func IsSafe(c ScanCounters) bool {
	return c.Malicious == 0 && c.Suspicious == 0
}

// ThreatLines renders the human-readable threat list, malicious line first.
func ThreatLines(c ScanCounters) []string {
	threats := make([]string, 0, 2)
	if c.Malicious > 0 {
		threats = append(threats, fmt.Sprintf("Malicious content detected by %d security engines", c.Malicious))
	}
	if c.Suspicious > 0 {
		threats = append(threats, fmt.Sprintf("Suspicious activity flagged by %d security engines", c.Suspicious))
	}
	return threats
}
