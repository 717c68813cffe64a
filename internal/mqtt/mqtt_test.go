package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/hyst-sensor/internal/logic"
)

func testEvent(ts time.Time) logic.Event {
	return logic.Event{
		Timestamp: ts,
		Type:      "FLAME_ON",
		Channel:   "flame",
		State:     logic.StateOn,
		Value:     0.875,
		States: map[string]logic.State{
			"flame": logic.StateOn,
			"pump":  logic.StateOff,
		},
	}
}

func TestFormatPayload(t *testing.T) {
	event := testEvent(time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC))

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Sensor.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Sensor.Timestamp)
	}
	if parsed.Sensor.Event != "FLAME_ON" {
		t.Errorf("unexpected event: %s", parsed.Sensor.Event)
	}
	if parsed.Sensor.Channel != "flame" {
		t.Errorf("unexpected channel: %s", parsed.Sensor.Channel)
	}
	if parsed.Sensor.Value != 0.875 {
		t.Errorf("unexpected value: %v", parsed.Sensor.Value)
	}
	if parsed.Sensor.Channels["flame"].State != "ON" {
		t.Errorf("unexpected flame state: %s", parsed.Sensor.Channels["flame"].State)
	}
	if parsed.Sensor.Channels["pump"].State != "OFF" {
		t.Errorf("unexpected pump state: %s", parsed.Sensor.Channels["pump"].State)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := testEvent(time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC))

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Map keys are sorted by encoding/json
	expected := `{"sensor":{"timestamp":"2026-02-02T22:18:12Z","event":"FLAME_ON","channel":"flame","value":0.875,"channels":{"flame":{"state":"ON"},"pump":{"state":"OFF"}}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	event := testEvent(time.Date(2026, 2, 3, 3, 0, 0, 0, loc))

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Sensor.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Sensor.Timestamp)
	}
}

func TestTopic(t *testing.T) {
	if Topic != "sensors/hyst/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "sensors/hyst/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	event := SystemEvent{
		Timestamp:  time.Now(),
		Event:      "STARTUP",
		RawPayload: raw,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	event := testEvent(time.Now())

	if err := f.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Type != "FLAME_ON" {
		t.Errorf("unexpected event type: %s", f.Events[0].Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.Publish(testEvent(time.Now())); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("failed publish should not be recorded, got %d", len(f.Events))
	}

	f.PublishSystemError = errors.New("broker down")
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected system error")
	}
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	if len(f.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(f.SystemEvents))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("first event should have Retained=true")
	}
	if f.SystemEvents[1].Retained {
		t.Error("second event should have Retained=false")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(testEvent(time.Now()))
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 {
		t.Error("events should be cleared")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("flags should be cleared")
	}
}
