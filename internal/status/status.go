// Package status provides a thread-safe status tracker for the hyst-sensor daemon.
// It is designed to be read by HTTP handlers while the run loop updates it.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/sweeney/hyst-sensor/internal/logic"
)

// NetworkInfo contains network state as written by pi-helper to
// /run/pi-helper.env.
type NetworkInfo struct {
	Type       string `env:"NETWORK_TYPE"`
	IP         string `env:"NETWORK_IP"`
	Status     string `env:"NETWORK_STATUS"`
	Gateway    string `env:"NETWORK_GATEWAY"`
	WifiStatus string `env:"NETWORK_WIFI_STATUS"`
	SSID       string `env:"NETWORK_WIFI_SSID"`
}

// ReadNetworkInfo reads network info from the process environment.
// Returns nil when NETWORK_STATUS is unset.
func ReadNetworkInfo() (*NetworkInfo, error) {
	return readNetworkInfo(env.Options{})
}

func readNetworkInfo(opts env.Options) (*NetworkInfo, error) {
	var info NetworkInfo
	if err := env.ParseWithOptions(&info, opts); err != nil {
		return nil, fmt.Errorf("parse network env: %w", err)
	}
	if info.Status == "" {
		return nil, nil
	}
	return &info, nil
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	Source      string // "gpio" or "sim"
	Seed        uint32 // simulator seed, 0 for gpio
}

// ChannelStatus is the view of one channel.
type ChannelStatus struct {
	Name       string
	State      logic.State
	Value      float64
	Sampled    bool
	Comparator string
	Counts     logic.Counts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Channels      []ChannelStatus
	Baselined     bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Channel returns the named channel's status.
func (s Snapshot) Channel(name string) (ChannelStatus, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelStatus{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update copies channel states, values, counts and baseline status from the
// detector. Called from the run loop on every tick.
func (t *Tracker) Update(d *logic.Detector) {
	names := d.Channels()
	states := d.CurrentStates()
	values := d.Values()
	desc := d.Describe()
	counts := d.EventCountsSnapshot()

	channels := make([]ChannelStatus, len(names))
	for i, name := range names {
		v, sampled := values[name]
		channels[i] = ChannelStatus{
			Name:       name,
			State:      states[name],
			Value:      v,
			Sampled:    sampled,
			Comparator: desc[name],
			Counts:     counts[name],
		}
	}

	t.mu.Lock()
	t.snap.Channels = channels
	t.snap.Baselined = d.IsBaselined()
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	// Channels is replaced wholesale on Update, never mutated in place
	s.Now = now()
	return s
}
