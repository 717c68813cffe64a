// Package config loads daemon configuration from a YAML file and
// HYST_SENSOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/hyst-sensor/internal/hyst"
	"github.com/sweeney/hyst-sensor/internal/logic"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HYST_SENSOR_"

// Input sources.
const (
	SourceGPIO = "gpio"
	SourceSim  = "sim"
)

// Comparator kinds.
const (
	KindLess     = "less"
	KindGreater  = "greater"
	KindInterval = "interval"
	KindAngle    = "angle"
	KindBands    = "bands"
)

// RandomSeed asks for a freshly drawn simulator seed.
const RandomSeed int64 = -1

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the daemon configuration.
type Config struct {
	Broker     string `yaml:"broker" env:"BROKER"`
	ClientID   string `yaml:"client_id" env:"CLIENT_ID"`
	BufferSize int    `yaml:"buffer_size" env:"BUFFER_SIZE"`

	Poll      time.Duration `yaml:"poll" env:"POLL"`
	Debounce  time.Duration `yaml:"debounce" env:"DEBOUNCE"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"HEARTBEAT"`

	HTTPAddr string `yaml:"http" env:"HTTP"`
	// WSBroker is "=broker" to derive from Broker, "off" to disable, or a URL.
	WSBroker string `yaml:"ws_broker" env:"WS_BROKER"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	Source string `yaml:"source" env:"SOURCE"`
	// Seed for the simulator; RandomSeed draws one at startup.
	Seed           int64  `yaml:"seed" env:"SEED"`
	Chip           string `yaml:"chip" env:"CHIP"`
	SamplesPerRead int    `yaml:"samples_per_read" env:"SAMPLES_PER_READ"`

	Channels []Channel `yaml:"channels" env:"-"`
}

// Channel configures one input and its comparator.
type Channel struct {
	Name string `yaml:"name"`

	// GPIO line offset and polarity.
	Line      int  `yaml:"line"`
	ActiveLow bool `yaml:"active_low"`

	Kind      string  `yaml:"kind"`
	Threshold float64 `yaml:"threshold"` // less, greater
	Lower     float64 `yaml:"lower"`     // interval
	Upper     float64 `yaml:"upper"`     // interval
	Target    float64 `yaml:"target"`    // angle
	Diff      float64 `yaml:"diff"`      // angle
	Hyst      float64 `yaml:"hyst"`
	Initial   bool    `yaml:"initial"`

	// bands: ascending thresholds splitting the input into len+1 bands, and
	// the output of each band from the lowest up.
	Thresholds []float64 `yaml:"thresholds"`
	Bands      []bool    `yaml:"bands"`
}

// Default returns the built-in configuration: two active-low GPIO channels
// on BCM 26 and 16, switching at half duty cycle.
func Default() Config {
	return Config{
		Broker:         "tcp://192.168.1.200:1883",
		ClientID:       "hyst-sensor",
		BufferSize:     100,
		Poll:           100 * time.Millisecond,
		Debounce:       250 * time.Millisecond,
		Heartbeat:      15 * time.Minute,
		HTTPAddr:       ":80",
		WSBroker:       "=broker",
		LogLevel:       "info",
		LogFormat:      "text",
		Source:         SourceGPIO,
		Seed:           RandomSeed,
		Chip:           "gpiochip0",
		SamplesPerRead: 1,
		Channels: []Channel{
			{Name: "ch", Line: 26, ActiveLow: true, Kind: KindGreater, Threshold: 0.5, Hyst: 0.25},
			{Name: "hw", Line: 16, ActiveLow: true, Kind: KindGreater, Threshold: 0.5, Hyst: 0.25},
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from HYST_SENSOR_* variables in the process environment.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, env.Options{Prefix: EnvPrefix})
}

func applyEnv(cfg *Config, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration and every channel's comparator.
func (c Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalidConfig, c.Poll)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: negative debounce %v", ErrInvalidConfig, c.Debounce)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: negative heartbeat %v", ErrInvalidConfig, c.Heartbeat)
	}
	switch c.Source {
	case SourceGPIO, SourceSim:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	if c.Seed < RandomSeed || c.Seed > math.MaxUint32 {
		return fmt.Errorf("%w: seed %d out of range", ErrInvalidConfig, c.Seed)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("%w: channel %d has no name", ErrInvalidConfig, i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("%w: duplicate channel %q", ErrInvalidConfig, ch.Name)
		}
		seen[ch.Name] = true
		if _, err := ch.Comparator(); err != nil {
			return fmt.Errorf("%w: channel %q: %w", ErrInvalidConfig, ch.Name, err)
		}
	}
	return nil
}

// ChannelConfigs builds the detector channels.
func (c Config) ChannelConfigs() ([]logic.ChannelConfig, error) {
	out := make([]logic.ChannelConfig, 0, len(c.Channels))
	for _, ch := range c.Channels {
		cmp, err := ch.Comparator()
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		out = append(out, logic.ChannelConfig{Name: ch.Name, Comparator: cmp})
	}
	return out, nil
}

// Comparator builds a fresh comparator for the channel.
func (ch Channel) Comparator() (logic.Comparator, error) {
	switch ch.Kind {
	case KindLess:
		return hyst.NewLessThan(ch.Threshold, ch.Hyst, ch.Initial), nil
	case KindGreater:
		return hyst.NewGreaterThan(ch.Threshold, ch.Hyst, ch.Initial), nil
	case KindInterval:
		h, err := hyst.NewInInterval(ch.Lower, ch.Upper, ch.Hyst, ch.Initial)
		if err != nil {
			return nil, err
		}
		return h, nil
	case KindAngle:
		h, err := hyst.NewAngle(ch.Target, ch.Diff, ch.Hyst, ch.Initial)
		if err != nil {
			return nil, err
		}
		return h, nil
	case KindBands:
		return newBands(ch.Thresholds, ch.Bands, ch.Hyst, ch.Initial)
	default:
		return nil, fmt.Errorf("unknown kind %q", ch.Kind)
	}
}

// bands runs a MultiValue over band indices and maps the band to ON/OFF.
// The starting band is the lowest one whose output equals initial.
type bands struct {
	mv  *hyst.MultiValue[int]
	out []bool
}

func newBands(thresholds []float64, out []bool, h float64, initial bool) (*bands, error) {
	if !slices.IsSorted(thresholds) {
		return nil, fmt.Errorf("thresholds not ascending: %v", thresholds)
	}
	start := slices.Index(out, initial)
	if start == -1 {
		return nil, fmt.Errorf("%w: no band outputs %t", hyst.ErrUnknownValue, initial)
	}
	index := make([]int, len(out))
	for i := range index {
		index[i] = i
	}
	mv, err := hyst.NewMultiValue(index, thresholds, h, start)
	if err != nil {
		return nil, err
	}
	return &bands{mv: mv, out: slices.Clone(out)}, nil
}

func (b *bands) Update(x float64) bool { return b.out[b.mv.Update(x)] }

func (b *bands) State() bool { return b.out[b.mv.State()] }

func (b *bands) String() string {
	return fmt.Sprintf("BandsHyst(thresholds: %v, hyst: %v, bands: %v, band: %d, state: %t)",
		b.mv.Thresholds(), b.mv.Hyst(), b.out, b.mv.State(), b.State())
}
