package model

import (
	"strings"
	"time"
)

// Scan engine tags carried on every CheckResult.
const (
	EngineName   = "Security Engine"
	EngineFailed = "Security Engine (Failed)"
	EngineError  = "Security Engine (Error)"
)

// Threat strings for the non-classified paths.
const (
	ThreatInvalidRequest = "Invalid request - no URL or hash provided"
	ThreatAPIUnavailable = "API unavailable - verification failed"
	scanErrorPrefix      = "Scan error: "
	invalidPrefix        = "Invalid request - "
)

// AnalysisHandle correlates a URL submission with its later result. It is
// opaque and only meaningful within one verification attempt.
type AnalysisHandle string

func (h AnalysisHandle) String() string { return string(h) }

// CheckRequest asks for a verdict on either a URL or a content hash. When both
// are set the hash wins.
type CheckRequest struct {
	URL  string `json:"url,omitempty"`
	Hash string `json:"hash,omitempty"`

	// FileName is informational only (log context for file checks).
	FileName string `json:"file_name,omitempty"`
}

// HasHash reports whether the request carries a non-blank hash.
func (r CheckRequest) HasHash() bool { return strings.TrimSpace(r.Hash) != "" }

// HasURL reports whether the request carries a non-blank URL.
func (r CheckRequest) HasURL() bool { return strings.TrimSpace(r.URL) != "" }

// Target returns the value that will be checked, for logging.
func (r CheckRequest) Target() string {
	if r.HasHash() {
		return strings.TrimSpace(r.Hash)
	}
	return strings.TrimSpace(r.URL)
}

// CheckResult is the uniform answer of one verification. It is built once and
// never modified afterwards.
type CheckResult struct {
	IsSafe     bool      `json:"is_safe"`
	Threats    []string  `json:"threats"`
	ScanEngine string    `json:"scan_engine"`
	Timestamp  time.Time `json:"timestamp"`

	// Level and Counters are only set on the classified path.
	Level    *ThreatLevel  `json:"threat_level,omitempty"`
	Counters *ScanCounters `json:"counters,omitempty"`
}

// Classified reports whether the result was computed from real counters.
func (r CheckResult) Classified() bool { return r.Counters != nil }

// NewClassifiedResult builds the only kind of result that may be safe.
func NewClassifiedResult(c ScanCounters, at time.Time) CheckResult {
	level := Classify(c)
	counters := c
	return CheckResult{
		IsSafe:     IsSafe(c),
		Threats:    ThreatLines(c),
		ScanEngine: EngineName,
		Timestamp:  at,
		Level:      &level,
		Counters:   &counters,
	}
}

// NewInvalidResult is returned for requests rejected before any I/O. An empty
// reason yields the standard "no URL or hash" message.
func NewInvalidResult(reason string, at time.Time) CheckResult {
	threat := ThreatInvalidRequest
	if reason != "" {
		threat = invalidPrefix + reason
	}
	return CheckResult{
		IsSafe:     false,
		Threats:    []string{threat},
		ScanEngine: EngineName,
		Timestamp:  at,
	}
}

// NewFailedResult is the fail-closed result for submission, retrieval and
// transport failures.
func NewFailedResult(at time.Time) CheckResult {
	return CheckResult{
		IsSafe:     false,
		Threats:    []string{ThreatAPIUnavailable},
		ScanEngine: EngineFailed,
		Timestamp:  at,
	}
}

// NewErrorResult is the fail-closed result for unexpected faults.
func NewErrorResult(message string, at time.Time) CheckResult {
	return CheckResult{
		IsSafe:     false,
		Threats:    []string{scanErrorPrefix + message},
		ScanEngine: EngineError,
		Timestamp:  at,
	}
}

// Outcome labels a result for metrics and job summaries: safe, unsafe,
// invalid, failed or error.
func (r CheckResult) Outcome() string {
	switch {
	case r.Classified() && r.IsSafe:
		return "safe"
	case r.Classified():
		return "unsafe"
	case r.ScanEngine == EngineFailed:
		return "failed"
	case r.ScanEngine == EngineError:
		return "error"
	default:
		return "invalid"
	}
}
