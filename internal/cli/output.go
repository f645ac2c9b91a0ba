package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/raysh454/threatcheck/internal/model"
)

type jsonResult struct {
	Target string `json:"target"`
	SHA256 string `json:"sha256,omitempty"`
	model.CheckResult
}

func printResult(w io.Writer, req model.CheckRequest, res model.CheckResult, sha256 string, asJSON bool) error {
	target := req.Target()
	if req.FileName != "" {
		target = req.FileName
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonResult{Target: target, SHA256: sha256, CheckResult: res})
	}

	verdict := "UNSAFE"
	if res.IsSafe {
		verdict = "SAFE"
	}
	fmt.Fprintf(w, "%-7s %s\n", verdict, target)
	if sha256 != "" {
		fmt.Fprintf(w, "sha256:  %s\n", sha256)
	}
	fmt.Fprintf(w, "engine:  %s\n", res.ScanEngine)
	if res.Level != nil {
		fmt.Fprintf(w, "level:   %s\n", res.Level)
	}
	if c := res.Counters; c != nil {
		fmt.Fprintf(w, "engines: malicious=%d suspicious=%d harmless=%d undetected=%d timeout=%d failure=%d\n",
			c.Malicious, c.Suspicious, c.Harmless, c.Undetected, c.Timeout+c.ConfirmedTimeout, c.Failure)
	}
	for _, t := range res.Threats {
		fmt.Fprintf(w, "  - %s\n", t)
	}
	fmt.Fprintf(w, "checked: %s\n", res.Timestamp.Format(time.RFC3339))
	return nil
}
