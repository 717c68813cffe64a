package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/hyst-sensor/internal/config"
	"github.com/sweeney/hyst-sensor/internal/gpio"
	"github.com/sweeney/hyst-sensor/internal/logic"
	"github.com/sweeney/hyst-sensor/internal/metrics"
	"github.com/sweeney/hyst-sensor/internal/mqtt"
	"github.com/sweeney/hyst-sensor/internal/random"
	"github.com/sweeney/hyst-sensor/internal/sim"
	"github.com/sweeney/hyst-sensor/internal/status"
	"github.com/sweeney/hyst-sensor/internal/web"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sensor daemon (default)",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	return run(cfg, logger)
}

func run(cfg config.Config, logger *slog.Logger) error {
	channels, err := cfg.ChannelConfigs()
	if err != nil {
		return err
	}

	reader, seed, err := openReader(cfg, logger)
	if err != nil {
		return fmt.Errorf("init %s: %w", cfg.Source, err)
	}
	defer reader.Close()
	if cfg.Source == config.SourceSim {
		logger.Info("simulator seeded", "seed", seed)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		BufferSize: cfg.BufferSize,
		Logger:     logger.With("component", "mqtt"),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	m := metrics.New()
	m.WatchBuffer(publisher)

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTPAddr,
		WSBroker:    resolveWSBroker(cfg.WSBroker, cfg.Broker, logger),
		Source:      cfg.Source,
		Seed:        seed,
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler(), logger.With("component", "http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
		defer stopServer(srv, 5*time.Second, logger)
		logger.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	logger.Info("started",
		"poll", cfg.Poll, "debounce", cfg.Debounce, "heartbeat", cfg.Heartbeat,
		"broker", cfg.Broker, "source", cfg.Source, "channels", len(channels))

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:      reader,
		publisher:   publisher,
		mqttStatus:  publisher,
		channels:    channels,
		debounce:    cfg.Debounce,
		heartbeat:   cfg.Heartbeat,
		tracker:     tracker,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
		readNetwork: status.ReadNetworkInfo,
	}
	return l.run(ticker.C, sigCh)
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// stopServer drains in-flight requests for up to timeout.
func stopServer(srv shutdowner, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}

// openReader opens the configured input source. The returned seed is zero
// for GPIO.
func openReader(cfg config.Config, logger *slog.Logger) (gpio.Reader, uint32, error) {
	switch cfg.Source {
	case config.SourceSim:
		seed := simSeed(cfg.Seed, logger)
		r, err := sim.New(sim.DefaultConfig(seed, len(cfg.Channels)))
		if err != nil {
			return nil, 0, err
		}
		return r, seed, nil
	case config.SourceGPIO:
		lines := make([]gpio.Line, len(cfg.Channels))
		for i, ch := range cfg.Channels {
			lines[i] = gpio.Line{Offset: ch.Line, ActiveLow: ch.ActiveLow}
		}
		r, err := gpio.NewRealReader(cfg.Chip, lines, cfg.SamplesPerRead)
		if err != nil {
			return nil, 0, err
		}
		return r, 0, nil
	default:
		return nil, 0, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// Seed sources, replaced in tests.
var (
	entropySeed = random.NewSeed
	seedClock   = time.Now
)

// simSeed resolves the configured seed. RandomSeed draws from crypto/rand and
// falls back to the clock when that fails.
func simSeed(seed int64, logger *slog.Logger) uint32 {
	if seed != config.RandomSeed {
		return uint32(seed)
	}
	s, err := entropySeed()
	if err != nil {
		s = random.SeedFromTime(seedClock())
		logger.Warn("entropy unavailable, seeding from clock", "error", err, "seed", s)
	}
	return s
}

// loop owns the detector and drives it from ticks until a signal arrives.
type loop struct {
	reader     gpio.Reader
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	channels   []logic.ChannelConfig
	debounce   time.Duration
	heartbeat  time.Duration

	// tracker and metrics may be nil.
	tracker *status.Tracker
	metrics *metrics.Metrics

	logger      *slog.Logger
	now         func() time.Time
	readNetwork func() (*status.NetworkInfo, error)
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := l.now()
	detector, err := logic.NewDetector(l.channels, l.debounce, startTime)
	if err != nil {
		return err
	}

	// Publish startup event with full status snapshot
	l.refreshStatus(detector, true)
	startup := mqtt.SystemEvent{Timestamp: startTime, Event: "STARTUP", Retained: true}
	if l.tracker != nil {
		startup.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "STARTUP", "")
	}
	if err := l.publisher.PublishSystem(startup); err != nil {
		l.publishFailed("startup", err)
	} else {
		l.logger.Info("published startup event")
	}

	for {
		select {
		case s := <-sig:
			l.logger.Info("shutting down", "signal", s.String())
			l.shutdown(detector, signalName(s))
			return nil

		case <-tick:
			t := l.now()
			readStart := time.Now()
			values, err := l.reader.Read()
			if l.metrics != nil {
				l.metrics.ObserveRead(time.Since(readStart), err)
			}
			if err != nil {
				l.logger.Warn("read failed", "error", err)
				continue
			}

			events, err := detector.Process(logic.Input{Values: values, Time: t})
			if err != nil {
				l.logger.Error("process sample", "error", err)
				continue
			}

			for _, event := range events {
				l.logger.Info("transition",
					"event", string(event.Type), "channel", event.Channel, "value", event.Value)
				if l.metrics != nil {
					l.metrics.ObserveEvent(event)
				}
				if err := l.publisher.Publish(event); err != nil {
					l.publishFailed("event", err)
				}
			}
			if l.metrics != nil {
				l.metrics.ObserveSample(detector.Values(), detector.CurrentStates())
			}

			if detector.IsBaselined() {
				l.checkHeartbeat(detector, t)
			}

			// Update status tracker for HTTP consumers
			l.refreshStatus(detector, false)
		}
	}
}

func (l *loop) checkHeartbeat(detector *logic.Detector, t time.Time) {
	hb := detector.CheckHeartbeat(t, l.heartbeat)
	if hb == nil {
		return
	}
	l.logger.Info("heartbeat", "uptime", hb.Uptime, "counts", hb.Counts)

	event := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
	if l.tracker != nil {
		l.refreshStatus(detector, true)
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.publishFailed("heartbeat", err)
	}
}

func (l *loop) shutdown(detector *logic.Detector, reason string) {
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.refreshStatus(detector, false)
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.publishFailed("shutdown", err)
	} else {
		l.logger.Info("published shutdown event")
	}
}

// refreshStatus copies detector and connection state into the tracker.
// Network info is re-read only when withNetwork is set.
func (l *loop) refreshStatus(detector *logic.Detector, withNetwork bool) {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(detector)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if withNetwork && l.readNetwork != nil {
		info, err := l.readNetwork()
		if err != nil {
			l.logger.Warn("read network info", "error", err)
			return
		}
		if info != nil {
			l.tracker.SetNetwork(info)
		}
	}
}

func (l *loop) publishFailed(what string, err error) {
	l.logger.Warn("publish failed", "what", what, "error", err)
	if l.metrics != nil {
		l.metrics.PublishError()
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// resolveWSBroker converts the ws-broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" and
// empty disable the live UI.
func resolveWSBroker(ws, broker string, logger *slog.Logger) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		logger.Warn("cannot derive ws broker", "broker", broker, "error", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
