package logic

import (
	"fmt"
	"time"
)

type channel struct {
	name  string
	cmp   Comparator
	state ChannelState
	value float64
	// sampled is false until the first value arrives
	sampled bool
	counts  Counts
}

// Detector runs every channel's value through its comparator and detects
// debounced transitions of the comparator output.
type Detector struct {
	debounceDuration time.Duration
	channels         []*channel
	baselined        bool
	startTime        time.Time
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(channels []ChannelConfig, debounceDuration time.Duration, startTime time.Time) (*Detector, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	seen := make(map[string]bool, len(channels))
	chs := make([]*channel, 0, len(channels))
	for _, c := range channels {
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateChannel, c.Name)
		}
		seen[c.Name] = true
		chs = append(chs, &channel{name: c.Name, cmp: c.Comparator})
	}

	return &Detector{
		debounceDuration: debounceDuration,
		channels:         chs,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}, nil
}

// Process takes a new input sample and returns any events that should be emitted.
// Events are only returned after baseline is established and on state transitions.
func (d *Detector) Process(input Input) ([]Event, error) {
	if len(input.Values) != len(d.channels) {
		return nil, fmt.Errorf("%w: got %d values for %d channels", ErrValueCount, len(input.Values), len(d.channels))
	}

	var transitions []*channel
	for i, ch := range d.channels {
		ch.value = input.Values[i]
		ch.sampled = true
		newState := boolToState(ch.cmp.Update(ch.value))
		if d.processChannel(&ch.state, newState, input.Time) {
			transitions = append(transitions, ch)
		}
	}

	// Check if we've established baseline
	if !d.baselined {
		for _, ch := range d.channels {
			if !ch.state.Baselined {
				return nil, nil // No events until baseline established
			}
		}
		d.baselined = true
		return nil, nil
	}

	// Emit in channel order if several change simultaneously
	var events []Event
	for _, ch := range transitions {
		if ch.state.Stable == StateOn {
			ch.counts.On++
		} else {
			ch.counts.Off++
		}
		events = append(events, Event{
			Timestamp: input.Time,
			Type:      EventTypeFor(ch.name, ch.state.Stable),
			Channel:   ch.name,
			State:     ch.state.Stable,
			Value:     ch.value,
			States:    d.CurrentStates(),
		})
	}

	return events, nil
}

// processChannel handles debounce logic for a single channel.
// Returns true if a baselined channel changed its stable state.
func (d *Detector) processChannel(ch *ChannelState, newState State, now time.Time) bool {
	// First time seeing this channel
	if !ch.Baselined {
		if ch.Pending == "" {
			// Start observing
			ch.Pending = newState
			ch.PendingSince = now
			return false
		}

		if ch.Pending != newState {
			// State changed during baseline, restart
			ch.Pending = newState
			ch.PendingSince = now
			return false
		}

		// Check if debounce period has passed
		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return false
	}

	// Already baselined - detect transitions
	if newState == ch.Stable {
		// No change from stable state, clear any pending
		ch.Pending = ""
		return false
	}

	// State differs from stable
	if ch.Pending != newState {
		// New pending state
		ch.Pending = newState
		ch.PendingSince = now
		// a zero debounce switches on the first differing sample
		if d.debounceDuration > 0 {
			return false
		}
	}

	// Same pending state, check debounce
	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return true
	}

	return false
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Channels returns the channel names in configuration order.
func (d *Detector) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.name
	}
	return names
}

// CurrentStates returns the current stable state of every channel.
// Channels without a baseline map to the empty State.
func (d *Detector) CurrentStates() map[string]State {
	out := make(map[string]State, len(d.channels))
	for _, ch := range d.channels {
		out[ch.name] = ch.state.Stable
	}
	return out
}

// Values returns the last sampled value of every channel that has been sampled.
func (d *Detector) Values() map[string]float64 {
	out := make(map[string]float64, len(d.channels))
	for _, ch := range d.channels {
		if ch.sampled {
			out[ch.name] = ch.value
		}
	}
	return out
}

// Describe returns the diagnostic rendering of every channel's comparator.
func (d *Detector) Describe() map[string]string {
	out := make(map[string]string, len(d.channels))
	for _, ch := range d.channels {
		out[ch.name] = ch.cmp.String()
	}
	return out
}

// EventCountsSnapshot returns a copy of the per-channel transition counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	out := make(EventCounts, len(d.channels))
	for _, ch := range d.channels {
		out[ch.name] = ch.counts
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.EventCountsSnapshot(),
	}
}
