package workload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lazy-sim/lazy-sim/sim"
)

// Scenario is a complete simulation input: the global parameters plus the
// request list. It is what a text script, a YAML file and a TOML file all
// decode into.
type Scenario struct {
	Config   sim.Config    `yaml:"config" toml:"config"`
	Requests []RequestSpec `yaml:"requests" toml:"requests"`
}

// RequestSpec is one request line as a user writes it. File is 1-based.
type RequestSpec struct {
	User int           `yaml:"user" toml:"user"`
	File int           `yaml:"file" toml:"file"`
	Op   sim.Operation `yaml:"op" toml:"op"`
	At   int64         `yaml:"at" toml:"at"`
}

// Validate checks the config and every request line. Out-of-range file ids
// are legal input: they are declined at access time.
func (s *Scenario) Validate() error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	for i, r := range s.Requests {
		if !r.Op.Valid() {
			return fmt.Errorf("request %d: invalid operation %s", i, r.Op)
		}
		if r.At < 0 {
			return fmt.Errorf("request %d: negative arrival time %d", i, r.At)
		}
	}
	return nil
}

// SimRequests converts the request lines into simulator requests, numbering
// them in input order and shifting files to 0-based ids.
func (s *Scenario) SimRequests() []sim.Request {
	reqs := make([]sim.Request, len(s.Requests))
	for i, r := range s.Requests {
		reqs[i] = sim.Request{
			Seq:         i,
			RequesterID: r.User,
			ResourceID:  r.File - 1,
			Op:          r.Op,
			Arrival:     r.At,
		}
	}
	return reqs
}

// LoadScenario reads a scenario from path. .yaml, .yml and .toml files are
// decoded strictly over sim.DefaultConfig; anything else is parsed as a text script.
func LoadScenario(path string) (*Scenario, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml":
		s := &Scenario{Config: sim.DefaultConfig()}
		if err := sim.DecodeFile(path, s); err != nil {
			return nil, fmt.Errorf("loading scenario: %w", err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", path, err)
		}
		return s, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		s, err := ParseScript(f)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", path, err)
		}
		return s, nil
	}
}

// Format is an output encoding for scenarios.
type Format string

const (
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatScript Format = "script"
)

// WriteScenario encodes s to w in the given format.
func WriteScenario(w io.Writer, s *Scenario, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("YAML marshal failed: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s); err != nil {
			return fmt.Errorf("TOML marshal failed: %w", err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	case FormatScript:
		return WriteScript(w, s)
	default:
		return fmt.Errorf("unknown format %q (want yaml, toml or script)", format)
	}
}

// ComposeScenarios merges several scenarios into one. Request lists are
// concatenated in argument order. The first scenario's config is kept, except
// that the file count widens to the largest one so no merged request turns
// into an out-of-range access.
func ComposeScenarios(scenarios []*Scenario) (*Scenario, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario required")
	}
	merged := &Scenario{Config: scenarios[0].Config}
	for _, s := range scenarios {
		merged.Config.ResourceCount = max(merged.Config.ResourceCount, s.Config.ResourceCount)
		merged.Requests = append(merged.Requests, s.Requests...)
	}
	return merged, nil
}
