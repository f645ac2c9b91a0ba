package mockscanner

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/threatcheck/internal/model"
	"github.com/raysh454/threatcheck/internal/utils"
)

// Fixture is a canned verdict. URL fixtures match by substring, hash
// fixtures by exact (case-insensitive) digest.
type Fixture struct {
	Match    string             `yaml:"match,omitempty"`
	Hash     string             `yaml:"hash,omitempty"`
	Counters model.ScanCounters `yaml:"counters"`

	// Status, when non-zero, is returned instead of the counters.
	Status int `yaml:"status,omitempty"`
}

type fixtureFile struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// DefaultFixtures covers the well-known test artifacts.
func DefaultFixtures() []Fixture {
	return []Fixture{
		{Match: "malware", Counters: model.ScanCounters{Malicious: 14, Suspicious: 2, Harmless: 40, Undetected: 20}},
		{Match: "phish", Counters: model.ScanCounters{Suspicious: 3, Harmless: 55, Undetected: 18}},
		{Match: "unreachable", Counters: model.ScanCounters{Harmless: 10, Timeout: 6, Failure: 4, Undetected: 50}},
		{Match: "broken", Status: 500},
		// EICAR test file
		{Hash: "44d88612fea8a8f36de82e1278abb02f", Counters: model.ScanCounters{Malicious: 62, Undetected: 8, TypeUnsupported: 3}},
		{Hash: "275a021bbfb6489e54d471899f7db9d1663fc695ec2fe2a2c4538aabf651fd0f", Counters: model.ScanCounters{Malicious: 62, Undetected: 8, TypeUnsupported: 3}},
		// empty file
		{Hash: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Counters: model.ScanCounters{Undetected: 70, TypeUnsupported: 4}},
	}
}

// LoadFixtures reads a YAML file of the form
//
//	fixtures:
//	  - match: "evil.example"
//	    counters: {malicious: 5}
//	  - hash: 44d88612fea8a8f36de82e1278abb02f
//	    status: 404
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures %s: %w", path, err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes and validates fixture YAML.
func ParseFixtures(data []byte) ([]Fixture, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}
	for i := range f.Fixtures {
		fx := &f.Fixtures[i]
		if (fx.Match == "") == (fx.Hash == "") {
			return nil, fmt.Errorf("fixture %d: exactly one of match or hash is required", i)
		}
		if fx.Hash != "" {
			h, err := utils.NormalizeHash(fx.Hash)
			if err != nil {
				return nil, fmt.Errorf("fixture %d: %w", i, err)
			}
			fx.Hash = h
		}
		if err := fx.Counters.Validate(); err != nil {
			return nil, fmt.Errorf("fixture %d: %w", i, err)
		}
	}
	return f.Fixtures, nil
}

func (s *MockScanner) matchURL(target string) (Fixture, bool) {
	lower := strings.ToLower(target)
	for _, fx := range s.cfg.Fixtures {
		if fx.Match != "" && strings.Contains(lower, strings.ToLower(fx.Match)) {
			return fx, true
		}
	}
	return Fixture{}, false
}

func (s *MockScanner) matchHash(hash string) (Fixture, bool) {
	h := strings.ToLower(strings.TrimSpace(hash))
	for _, fx := range s.cfg.Fixtures {
		if fx.Hash != "" && strings.EqualFold(fx.Hash, h) {
			return fx, true
		}
	}
	return Fixture{}, false
}
