package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/hyst-sensor/internal/logic"
)

const (
	// DefaultClientID is the MQTT client ID used when none is configured.
	DefaultClientID = "hyst-sensor"

	// DefaultBufferSize is the number of messages kept while disconnected.
	DefaultBufferSize = 100

	publishTimeout = 5 * time.Second
)

var (
	// ErrNoBroker is returned when no broker address is configured.
	ErrNoBroker = errors.New("mqtt: no broker configured")

	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt: publish timeout")
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Logger     *slog.Logger
	// Now is used to timestamp RECONNECTED and will messages.
	Now func() time.Time
}

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down, messages are kept in a ring buffer and replayed in order once paho
// reconnects.
type RealPublisher struct {
	client paho.Client
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	buffer        *ringBuffer
	connectedOnce bool
}

func newPublisher(opts Options) *RealPublisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &RealPublisher{
		logger: logger,
		now:    now,
		buffer: newRingBuffer(size, logger),
	}
}

// NewRealPublisher creates a publisher for the given broker. It does not wait
// for the first connection: paho keeps retrying in the background and
// messages published before then are buffered.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.Broker == "" {
		return nil, ErrNoBroker
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	p := newPublisher(opts)
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(co)
	p.client.Connect()

	return p, nil
}

// Publish sends a channel event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buffer.len()
		p.mu.Unlock()
		p.logger.Debug("mqtt offline, message buffered", "topic", topic, "buffered", n)
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect replays buffered messages and announces reconnections.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	dropped := p.buffer.dropped
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.mu.Unlock()

	if reconnect {
		p.logger.Info("mqtt reconnected", "buffered", len(msgs), "dropped_total", dropped)
	} else {
		p.logger.Info("mqtt connected", "buffered", len(msgs), "dropped_total", dropped)
	}

	for _, m := range msgs {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("replay timeout", "topic", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("replay failed", "topic", m.topic, "error", err)
		}
	}

	if !reconnect {
		return
	}
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	if err != nil {
		p.logger.Error("format reconnected payload", "error", err)
		return
	}
	token := c.Publish(TopicSystem, 1, false, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		p.logger.Warn("reconnected publish failed", "error", token.Error())
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.logger.Warn("mqtt connection lost", "error", err)
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Dropped returns how many messages were discarded because the buffer was
// full, since startup.
func (p *RealPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.dropped
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
