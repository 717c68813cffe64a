// Package logic contains pure business logic for tracking hysteresis channels.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/hyst-sensor/internal/hyst"
)

// State represents the logical state of a channel.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType represents a state transition event, e.g. "FLAME_ON".
type EventType string

// EventTypeFor returns the event type for a channel entering state s.
func EventTypeFor(channel string, s State) EventType {
	return EventType(strings.ToUpper(channel) + "_" + string(s))
}

var (
	// ErrNoChannels indicates a detector without channels.
	ErrNoChannels = errors.New("logic: no channels configured")

	// ErrDuplicateChannel indicates two channels with the same name.
	ErrDuplicateChannel = errors.New("logic: duplicate channel name")

	// ErrValueCount indicates an input whose value count doesn't match the channels.
	ErrValueCount = errors.New("logic: value count does not match channels")
)

// Comparator turns a noisy value into a boolean with hysteresis.
type Comparator interface {
	hyst.Hyst[float64, bool]
	fmt.Stringer
}

// ChannelConfig describes one monitored channel.
type ChannelConfig struct {
	Name       string
	Comparator Comparator
}

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Channel   string
	State     State
	// Value is the sample that completed the transition.
	Value float64
	// States holds the stable state of every channel after the transition.
	States map[string]State
}

// ChannelState tracks debounce state for a single channel.
type ChannelState struct {
	// Current stable (debounced) state
	Stable State
	// Pending state during debounce
	Pending State
	// Time when pending state was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input represents a single sample of every channel, in channel order.
type Input struct {
	Values []float64
	Time   time.Time
}

// Counts tracks the number of transitions of one channel.
type Counts struct {
	On  int
	Off int
}

// EventCounts maps channel name to its transition counts since startup.
type EventCounts map[string]Counts

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
