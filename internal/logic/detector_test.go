package logic

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/hyst-sensor/internal/hyst"
)

// Sample levels for channels that are ON above 0.75 and OFF below 0.25.
const (
	on   = 0.9
	off  = 0.1
	band = 0.5 // inside the hysteresis band, holds the previous output
)

func testChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: "flame", Comparator: hyst.NewGreaterThan(0.5, 0.25, false)},
		{Name: "pump", Comparator: hyst.NewGreaterThan(0.5, 0.25, false)},
	}
}

func newTestDetector(t *testing.T, debounce time.Duration, start time.Time) *Detector {
	t.Helper()
	d, err := NewDetector(testChannels(), debounce, start)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

func process(t *testing.T, d *Detector, at time.Time, values ...float64) []Event {
	t.Helper()
	events, err := d.Process(Input{Values: values, Time: at})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return events
}

func TestNewDetector(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 250*time.Millisecond, startTime)
	if d.debounceDuration != 250*time.Millisecond {
		t.Errorf("expected debounce duration 250ms, got %v", d.debounceDuration)
	}
	if d.baselined {
		t.Error("new detector should not be baselined")
	}
	if !d.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, d.lastHeartbeat)
	}
	names := d.Channels()
	if len(names) != 2 || names[0] != "flame" || names[1] != "pump" {
		t.Errorf("unexpected channels: %v", names)
	}
}

func TestNewDetectorRejectsBadChannels(t *testing.T) {
	now := time.Now()
	if _, err := NewDetector(nil, 0, now); !errors.Is(err, ErrNoChannels) {
		t.Errorf("expected ErrNoChannels, got %v", err)
	}

	dup := []ChannelConfig{
		{Name: "a", Comparator: hyst.NewLessThan(0, 1, false)},
		{Name: "a", Comparator: hyst.NewLessThan(0, 1, false)},
	}
	if _, err := NewDetector(dup, 0, now); !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("expected ErrDuplicateChannel, got %v", err)
	}
}

func TestProcessRejectsWrongValueCount(t *testing.T) {
	d := newTestDetector(t, 0, time.Now())
	_, err := d.Process(Input{Values: []float64{on}, Time: time.Now()})
	if !errors.Is(err, ErrValueCount) {
		t.Errorf("expected ErrValueCount, got %v", err)
	}
}

func TestBaselineEstablishment(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 250*time.Millisecond, now)

	// First sample - starts observation
	if events := process(t, d, now, on, off); len(events) != 0 {
		t.Errorf("expected no events during baseline, got %d", len(events))
	}
	if d.IsBaselined() {
		t.Error("should not be baselined after first sample")
	}

	// Before debounce period
	if events := process(t, d, now.Add(200*time.Millisecond), on, off); len(events) != 0 {
		t.Errorf("expected no events during baseline, got %d", len(events))
	}
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	// After debounce period - baseline established
	if events := process(t, d, now.Add(250*time.Millisecond), on, off); len(events) != 0 {
		t.Errorf("expected no events at baseline establishment, got %d", len(events))
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}

	states := d.CurrentStates()
	if states["flame"] != StateOn {
		t.Errorf("expected flame=ON, got %s", states["flame"])
	}
	if states["pump"] != StateOff {
		t.Errorf("expected pump=OFF, got %s", states["pump"])
	}
}

func TestBaselineResetOnChange(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 250*time.Millisecond, now)

	process(t, d, now, on, off)
	// flame changes before debounce completes
	process(t, d, now.Add(100*time.Millisecond), off, off)

	// Full debounce from the first sample; the flame timer was reset
	process(t, d, now.Add(250*time.Millisecond), off, off)
	if d.IsBaselined() {
		t.Error("should not be baselined while flame timer restarted")
	}

	process(t, d, now.Add(350*time.Millisecond), off, off)
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce from state change")
	}
	if got := d.CurrentStates()["flame"]; got != StateOff {
		t.Errorf("expected flame=OFF, got %s", got)
	}
}

func TestNoEventsForStableState(t *testing.T) {
	d := setupBaselinedDetector(t, on, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		events := process(t, d, now.Add(time.Duration(i)*100*time.Millisecond), on, off)
		if len(events) != 0 {
			t.Errorf("iteration %d: expected no events for stable state, got %d", i, len(events))
		}
	}
}

func TestValuesInsideBandDoNotTrigger(t *testing.T) {
	d := setupBaselinedDetector(t, on, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Noisy values hovering around the threshold never leave the band
	noisy := []float64{0.45, 0.55, 0.41, 0.59, band, 0.42, 0.58}
	for i, v := range noisy {
		events := process(t, d, now.Add(time.Duration(i)*time.Second), v, v)
		if len(events) != 0 {
			t.Errorf("sample %d (%v): expected no events, got %v", i, v, events)
		}
	}

	states := d.CurrentStates()
	if states["flame"] != StateOn || states["pump"] != StateOff {
		t.Errorf("states changed inside band: %v", states)
	}
}

func TestSingleTransitionOnToOff(t *testing.T) {
	d := setupBaselinedDetector(t, on, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	if events := process(t, d, now, off, off); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}
	if events := process(t, d, now.Add(200*time.Millisecond), off, off); len(events) != 0 {
		t.Errorf("expected no events before debounce, got %d", len(events))
	}

	events := process(t, d, now.Add(250*time.Millisecond), off, off)
	if len(events) != 1 {
		t.Fatalf("expected 1 event after debounce, got %d", len(events))
	}

	e := events[0]
	if e.Type != "FLAME_OFF" {
		t.Errorf("expected FLAME_OFF event, got %s", e.Type)
	}
	if e.Channel != "flame" || e.State != StateOff {
		t.Errorf("unexpected channel/state: %s/%s", e.Channel, e.State)
	}
	if e.Value != off {
		t.Errorf("expected value %v, got %v", off, e.Value)
	}
	if e.States["flame"] != StateOff || e.States["pump"] != StateOff {
		t.Errorf("unexpected states: %v", e.States)
	}
	if !e.Timestamp.Equal(now.Add(250 * time.Millisecond)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
}

func TestSingleTransitionOffToOn(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	process(t, d, now, off, on)
	events := process(t, d, now.Add(250*time.Millisecond), off, on)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "PUMP_ON" {
		t.Errorf("expected PUMP_ON, got %s", events[0].Type)
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// Value leaves the band briefly, then drops back
	process(t, d, now, on, off)
	process(t, d, now.Add(100*time.Millisecond), off, off)
	events := process(t, d, now.Add(300*time.Millisecond), off, off)
	if len(events) != 0 {
		t.Errorf("expected no events for short bounce, got %d", len(events))
	}
}

func TestBandSampleKeepsPendingTransition(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	// The comparator holds ON for band values, so the pending timer keeps running
	process(t, d, now, on, off)
	process(t, d, now.Add(100*time.Millisecond), band, off)
	events := process(t, d, now.Add(250*time.Millisecond), band, off)
	if len(events) != 1 || events[0].Type != "FLAME_ON" {
		t.Fatalf("expected FLAME_ON, got %v", events)
	}
	if events[0].Value != band {
		t.Errorf("expected triggering value %v, got %v", band, events[0].Value)
	}
}

func TestSimultaneousTransitions(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	process(t, d, now, on, on)
	events := process(t, d, now.Add(250*time.Millisecond), on, on)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Channel order
	if events[0].Type != "FLAME_ON" {
		t.Errorf("expected FLAME_ON first, got %s", events[0].Type)
	}
	if events[1].Type != "PUMP_ON" {
		t.Errorf("expected PUMP_ON second, got %s", events[1].Type)
	}
	for i, e := range events {
		if e.States["flame"] != StateOn || e.States["pump"] != StateOn {
			t.Errorf("event %d: expected both ON, got %v", i, e.States)
		}
	}
}

func TestZeroDebounce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 0, now)

	process(t, d, now, off, off)
	process(t, d, now, off, off)
	if !d.IsBaselined() {
		t.Fatal("expected baseline after two samples with zero debounce")
	}

	events := process(t, d, now.Add(time.Millisecond), on, off)
	if len(events) != 1 || events[0].Type != "FLAME_ON" {
		t.Fatalf("expected immediate FLAME_ON, got %v", events)
	}
}

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		channel string
		state   State
		want    EventType
	}{
		{"flame", StateOn, "FLAME_ON"},
		{"flame", StateOff, "FLAME_OFF"},
		{"hot_water", StateOn, "HOT_WATER_ON"},
	}
	for _, tt := range tests {
		if got := EventTypeFor(tt.channel, tt.state); got != tt.want {
			t.Errorf("EventTypeFor(%q, %s) = %s, want %s", tt.channel, tt.state, got, tt.want)
		}
	}
}

func TestBoolToState(t *testing.T) {
	if boolToState(true) != StateOn {
		t.Error("true should map to ON")
	}
	if boolToState(false) != StateOff {
		t.Error("false should map to OFF")
	}
}

func TestCurrentStateBeforeBaseline(t *testing.T) {
	d := newTestDetector(t, 250*time.Millisecond, time.Now())
	for name, s := range d.CurrentStates() {
		if s != "" {
			t.Errorf("%s: expected empty state before baseline, got %s", name, s)
		}
	}
	if len(d.Values()) != 0 {
		t.Errorf("expected no values before first sample, got %v", d.Values())
	}
}

func TestValuesAndDescribe(t *testing.T) {
	d := setupBaselinedDetector(t, on, off)

	values := d.Values()
	if values["flame"] != on || values["pump"] != off {
		t.Errorf("unexpected values: %v", values)
	}

	desc := d.Describe()
	if desc["flame"] != "GreaterThanHyst(bounds: [0.25, 0.75], state: true)" {
		t.Errorf("unexpected flame description: %s", desc["flame"])
	}
	if desc["pump"] != "GreaterThanHyst(bounds: [0.25, 0.75], state: false)" {
		t.Errorf("unexpected pump description: %s", desc["pump"])
	}
}

func setupBaselinedDetector(t *testing.T, flame, pump float64) *Detector {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 250*time.Millisecond, now)

	// Establish baseline
	process(t, d, now, flame, pump)
	process(t, d, now.Add(250*time.Millisecond), flame, pump)

	if !d.IsBaselined() {
		t.Fatal("failed to establish baseline")
	}

	return d
}

func TestEventCountsIncrementOnTransition(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	now := time.Date(2026, 1, 1, 12, 1, 0, 0, time.UTC)

	process(t, d, now, on, off)
	process(t, d, now.Add(250*time.Millisecond), on, off) // FLAME_ON

	t2 := now.Add(time.Second)
	process(t, d, t2, off, on)
	process(t, d, t2.Add(250*time.Millisecond), off, on) // FLAME_OFF, PUMP_ON

	counts := d.EventCountsSnapshot()
	if counts["flame"] != (Counts{On: 1, Off: 1}) {
		t.Errorf("unexpected flame counts: %+v", counts["flame"])
	}
	if counts["pump"] != (Counts{On: 1}) {
		t.Errorf("unexpected pump counts: %+v", counts["pump"])
	}

	// Snapshot is a copy
	counts["flame"] = Counts{}
	if d.EventCountsSnapshot()["flame"].On != 1 {
		t.Error("snapshot mutation leaked into detector")
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	d := setupBaselinedDetector(t, off, off)
	if hb := d.CheckHeartbeat(time.Now().Add(time.Hour), 0); hb != nil {
		t.Error("expected nil heartbeat with zero interval")
	}
}

func TestCheckHeartbeatBeforeBaseline(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := newTestDetector(t, 250*time.Millisecond, start)
	if hb := d.CheckHeartbeat(start.Add(time.Hour), time.Minute); hb != nil {
		t.Error("expected nil heartbeat before baseline")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := setupBaselinedDetector(t, off, off)

	if hb := d.CheckHeartbeat(startTime.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat before interval")
	}

	hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}

	// Next heartbeat is measured from the last one
	if hb := d.CheckHeartbeat(startTime.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected nil heartbeat 5m after previous")
	}
	if hb := d.CheckHeartbeat(startTime.Add(30*time.Minute), 15*time.Minute); hb == nil {
		t.Error("expected heartbeat 15m after previous")
	}
}

func TestHeartbeatContainsEventCounts(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := setupBaselinedDetector(t, off, off)

	t1 := startTime.Add(500 * time.Millisecond)
	process(t, d, t1, on, off)
	process(t, d, t1.Add(250*time.Millisecond), on, off) // FLAME_ON

	hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat")
	}
	if hb.Counts["flame"].On != 1 {
		t.Errorf("expected flame On=1, got %d", hb.Counts["flame"].On)
	}
	if hb.Counts["pump"] != (Counts{}) {
		t.Errorf("expected no pump transitions, got %+v", hb.Counts["pump"])
	}
}
