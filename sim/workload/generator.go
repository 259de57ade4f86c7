package workload

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/lazy-sim/lazy-sim/sim"
)

// OpMix weights the three operations in generated scripts. Weights need not
// sum to one; only their ratio matters.
type OpMix struct {
	Read   float64 `yaml:"read" toml:"read"`
	Write  float64 `yaml:"write" toml:"write"`
	Delete float64 `yaml:"delete" toml:"delete"`
}

// DefaultOpMix is read-heavy with rare deletes.
var DefaultOpMix = OpMix{Read: 0.6, Write: 0.3, Delete: 0.1}

// GeneratorSpec describes a random workload. Deterministic given the same spec.
type GeneratorSpec struct {
	Seed     int64
	Config   sim.Config
	Requests int   // number of request lines
	Users    int   // user ids are drawn from [1, Users]
	Horizon  int64 // arrivals are drawn from [0, Horizon]
	Mix      OpMix
	// InvalidFileRate is the fraction of requests aimed past the last file.
	InvalidFileRate float64
}

// Validate checks the spec's ranges.
func (g *GeneratorSpec) Validate() error {
	if err := g.Config.Validate(); err != nil {
		return err
	}
	if g.Requests < 0 {
		return fmt.Errorf("requests must be non-negative, got %d", g.Requests)
	}
	if g.Users <= 0 {
		return fmt.Errorf("users must be positive, got %d", g.Users)
	}
	if g.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", g.Horizon)
	}
	if g.Mix.Read < 0 || g.Mix.Write < 0 || g.Mix.Delete < 0 {
		return fmt.Errorf("operation weights must be non-negative, got %+v", g.Mix)
	}
	if g.Mix.Read+g.Mix.Write+g.Mix.Delete <= 0 {
		return fmt.Errorf("at least one operation weight must be positive")
	}
	if g.InvalidFileRate < 0 || g.InvalidFileRate > 1 {
		return fmt.Errorf("invalid file rate must be in [0, 1], got %f", g.InvalidFileRate)
	}
	return nil
}

// Each drawn quantity has its own stream, so changing how one is sampled
// leaves the others untouched.
const (
	streamArrival = "arrival"
	streamFile    = "file"
	streamOp      = "op"
	streamUser    = "user"
)

func streamRand(seed int64, name string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}

// Generate synthesizes a scenario from g. Requests come out ordered by
// arrival time, ties in generation order.
func Generate(g GeneratorSpec) (*Scenario, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator spec: %w", err)
	}
	arrivals := streamRand(g.Seed, streamArrival)
	files := streamRand(g.Seed, streamFile)
	ops := streamRand(g.Seed, streamOp)
	users := streamRand(g.Seed, streamUser)

	n := g.Config.ResourceCount
	s := &Scenario{Config: g.Config, Requests: make([]RequestSpec, 0, g.Requests)}
	for i := 0; i < g.Requests; i++ {
		file := files.Intn(n) + 1
		if files.Float64() < g.InvalidFileRate {
			file = n + 1 + files.Intn(3)
		}
		s.Requests = append(s.Requests, RequestSpec{
			User: users.Intn(g.Users) + 1,
			File: file,
			Op:   pickOp(g.Mix, ops.Float64()),
			At:   arrivals.Int63n(g.Horizon + 1),
		})
	}
	sort.SliceStable(s.Requests, func(i, j int) bool {
		return s.Requests[i].At < s.Requests[j].At
	})
	return s, nil
}

// pickOp maps u in [0, 1) onto the weighted operation mix.
func pickOp(mix OpMix, u float64) sim.Operation {
	total := mix.Read + mix.Write + mix.Delete
	x := u * total
	switch {
	case x < mix.Read:
		return sim.OpRead
	case x < mix.Read+mix.Write:
		return sim.OpWrite
	default:
		return sim.OpDelete
	}
}
