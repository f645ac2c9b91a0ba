package scanclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raysh454/threatcheck/internal/model"
)

// submitRequest is the body of POST {prefix}/url.
type submitRequest struct {
	URL string `json:"url"`
}

// submitResponse is returned by POST {prefix}/url.
type submitResponse struct {
	AnalysisID string `json:"analysisId"`
}

// analysisEnvelope accepts the flat counters served by the reputation proxy
// as well as the nested stats objects of the upstream v3 API.
type analysisEnvelope struct {
	Data *struct {
		Attributes struct {
			Stats             json.RawMessage `json:"stats"`
			LastAnalysisStats json.RawMessage `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

var errMissingCounters = errors.New("response carries no verdict counters")

// decodeCounters extracts ScanCounters from a response body. The safety gate
// depends on malicious and suspicious, so a body where either is absent or
// null is rejected rather than read as zero.
func decodeCounters(body []byte) (model.ScanCounters, error) {
	var env analysisEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return model.ScanCounters{}, fmt.Errorf("decode analysis: %w", err)
	}

	raw := json.RawMessage(body)
	if env.Data != nil {
		switch {
		case len(env.Data.Attributes.Stats) > 0:
			raw = env.Data.Attributes.Stats
		case len(env.Data.Attributes.LastAnalysisStats) > 0:
			raw = env.Data.Attributes.LastAnalysisStats
		}
	}

	// A null decodes into an int as zero, so the gate fields go through
	// pointers first.
	var gate struct {
		Malicious  *int `json:"malicious"`
		Suspicious *int `json:"suspicious"`
	}
	if err := json.Unmarshal(raw, &gate); err != nil {
		return model.ScanCounters{}, fmt.Errorf("decode counters: %w", err)
	}
	if gate.Malicious == nil || gate.Suspicious == nil {
		return model.ScanCounters{}, errMissingCounters
	}

	var counters model.ScanCounters
	if err := json.Unmarshal(raw, &counters); err != nil {
		return model.ScanCounters{}, fmt.Errorf("decode counters: %w", err)
	}
	if err := counters.Validate(); err != nil {
		return model.ScanCounters{}, err
	}
	return counters, nil
}
