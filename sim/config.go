package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can spell values like "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for both YAML and TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds the global, read-only simulation parameters.
// Service durations and the wait timeout are in virtual seconds.
type Config struct {
	ReadDuration       int64 `yaml:"read_duration" toml:"read_duration"`               // service time of a READ
	WriteDuration      int64 `yaml:"write_duration" toml:"write_duration"`             // service time of a WRITE
	DeleteDuration     int64 `yaml:"delete_duration" toml:"delete_duration"`           // service time of a DELETE
	ResourceCount      int   `yaml:"files" toml:"files"`                               // number of files, ids [0, N)
	MaxConcurrentUsers int   `yaml:"max_concurrent_users" toml:"max_concurrent_users"` // occupancy cap per file
	WaitTimeout        int64 `yaml:"wait_timeout" toml:"wait_timeout"`                 // seconds a request may stay queued

	// Tick is the wall-clock length of one virtual second. Production runs use
	// one second; tests shrink it to keep timing scenarios fast.
	Tick Duration `yaml:"tick" toml:"tick"`
	// Stagger paces goroutine launches in the dispatcher. It has no scheduling meaning.
	Stagger Duration `yaml:"stagger" toml:"stagger"`
}

// DefaultConfig returns a Config with the wall-clock knobs set and every
// scenario-specific field left for the script or config file to fill in.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentUsers: 1,
		Tick:               Duration{time.Second},
		Stagger:            Duration{500 * time.Microsecond},
	}
}

// ServiceDuration returns the configured service time for op, in virtual seconds.
func (c Config) ServiceDuration(op Operation) int64 {
	switch op {
	case OpRead:
		return c.ReadDuration
	case OpWrite:
		return c.WriteDuration
	case OpDelete:
		return c.DeleteDuration
	default:
		panic(fmt.Sprintf("ServiceDuration: unhandled operation %s", op))
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.ReadDuration < 0 || c.WriteDuration < 0 || c.DeleteDuration < 0 {
		return fmt.Errorf("service durations must be non-negative, got read=%d write=%d delete=%d",
			c.ReadDuration, c.WriteDuration, c.DeleteDuration)
	}
	if c.ResourceCount <= 0 {
		return fmt.Errorf("files must be positive, got %d", c.ResourceCount)
	}
	if c.MaxConcurrentUsers <= 0 {
		return fmt.Errorf("max_concurrent_users must be positive, got %d", c.MaxConcurrentUsers)
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("wait_timeout must be non-negative, got %d", c.WaitTimeout)
	}
	if c.Tick.Duration <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick.Duration)
	}
	if c.Stagger.Duration < 0 {
		return fmt.Errorf("stagger must be non-negative, got %s", c.Stagger.Duration)
	}
	return nil
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) config file on top of
// DefaultConfig. Unknown keys are errors in both formats so typos surface.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// DecodeFile decodes a YAML or TOML file into v, chosen by extension, with
// strict field checking.
func DecodeFile(path string, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	case ".toml":
		md, err := toml.DecodeFile(path, v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parsing %s: found unrecognized properties: %v", path, undecoded)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}
