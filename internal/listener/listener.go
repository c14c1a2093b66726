package listener

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/aeris-iot/aeris-core/internal/bus"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/config"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/logging"
	"github.com/aeris-iot/aeris-core/internal/infrastructure/mqtt"
	"github.com/aeris-iot/aeris-core/internal/sensor"
)

const (
	// maxInflight bounds concurrent ingestion goroutines. Arrivals
	// beyond the cap wait for a slot; nothing is silently dropped.
	maxInflight = 1024

	// saveTimeout is the per-message deadline for the database call.
	saveTimeout = 5 * time.Second

	// connectMaxInterval caps the backoff between broker connect attempts.
	connectMaxInterval = 30 * time.Second
)

// Broker is the subset of the MQTT client the listener needs.
// Satisfied by *mqtt.Client; faked in tests.
type Broker interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Mirror receives a best-effort copy of each accepted reading.
// Satisfied by *influxdb.Client. May be nil.
type Mirror interface {
	WriteReading(sensorID string, value float64, timestamp time.Time)
}

// Listener subscribes to the sensor channels and routes messages into
// the sensor service and the broadcast bus.
type Listener struct {
	broker  Broker
	service sensor.Service
	bus     *bus.Bus
	mirror  Mirror
	logger  *logging.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Deps carries the listener's dependencies.
type Deps struct {
	Broker  Broker
	Service sensor.Service
	Bus     *bus.Bus
	Mirror  Mirror // optional
	Logger  *logging.Logger
}

// New creates a listener. Call Start to begin consuming.
func New(deps Deps) *Listener {
	return &Listener{
		broker:  deps.Broker,
		service: deps.Service,
		bus:     deps.Bus,
		mirror:  deps.Mirror,
		logger:  deps.Logger,
		sem:     semaphore.NewWeighted(maxInflight),
	}
}

// ConnectBroker dials the MQTT broker, retrying with exponential
// backoff until the connection succeeds or ctx is cancelled. After the
// first successful connect the client's own auto-reconnect takes over.
func ConnectBroker(ctx context.Context, cfg config.MQTTConfig, logger *logging.Logger) (*mqtt.Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = connectMaxInterval
	policy.MaxElapsedTime = 0 // retry until ctx cancellation

	var client *mqtt.Client
	operation := func() error {
		c, err := mqtt.Connect(cfg)
		if err != nil {
			logger.Warn("broker connect failed, retrying",
				"host", cfg.Broker.Host,
				"port", cfg.Broker.Port,
				"error", err,
			)
			return err
		}
		client = c
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	return client, nil
}

// Start subscribes to the sensor channels.
//
// Registrations are consumed at QoS 1: a sensor's announcement must
// survive a flaky link. Readings are consumed at QoS 0: losing one
// sample is cheaper than a redelivery storm.
func (l *Listener) Start() error {
	topics := mqtt.Topics{}

	if err := l.broker.Subscribe(topics.SensorRegister(), 1, l.handleRegister); err != nil {
		return fmt.Errorf("subscribing to registrations: %w", err)
	}
	if err := l.broker.Subscribe(topics.SensorGas(), 0, l.handleGas); err != nil {
		return fmt.Errorf("subscribing to readings: %w", err)
	}

	l.logger.Info("listener started",
		"register_topic", topics.SensorRegister(),
		"gas_topic", topics.SensorGas(),
	)
	return nil
}

// Close stops consuming and waits for in-flight messages to finish.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	topics := mqtt.Topics{}
	// Unsubscribe failures on shutdown are not actionable.
	_ = l.broker.Unsubscribe(topics.SensorRegister()) //nolint:errcheck
	_ = l.broker.Unsubscribe(topics.SensorGas())      //nolint:errcheck

	l.wg.Wait()
	return nil
}

// isClosed reports whether Close has begun.
func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// handleRegister processes one registration announcement.
// The returned error is logged by the MQTT client wrapper.
func (l *Listener) handleRegister(topic string, payload []byte) error {
	id, label, err := parseRegistration(payload)
	if err != nil {
		return fmt.Errorf("dropping registration on %s: %w", topic, err)
	}
	l.dispatch(topic, func(ctx context.Context) {
		if _, err := l.service.RegisterSensor(ctx, id, label); err != nil {
			l.logger.Error("registering sensor",
				"sensor_id", id.String(),
				"error", err,
			)
			return
		}
		l.logger.Debug("sensor registered",
			"topic", topic,
			"sensor_id", id.String(),
		)
	})
	return nil
}

// handleGas processes one gas reading: persist, then broadcast.
func (l *Listener) handleGas(topic string, payload []byte) error {
	sensorID, value, err := parseReading(payload)
	if err != nil {
		return fmt.Errorf("dropping reading on %s: %w", topic, err)
	}
	l.dispatch(topic, func(ctx context.Context) {
		entry, err := l.service.SaveEntry(ctx, sensorID, value)
		if err != nil {
			l.logger.Error("saving sensor entry",
				"sensor_id", sensorID.String(),
				"error", err,
			)
			return
		}

		l.bus.Publish(*entry)
		if l.mirror != nil {
			l.mirror.WriteReading(entry.SensorID.String(), entry.Value, time.Unix(entry.CreatedAt, 0))
		}
		l.logger.Debug("sensor entry saved",
			"topic", topic,
			"sensor_id", sensorID.String(),
			"entry_id", entry.ID.String(),
		)
	})
	return nil
}

// dispatch runs work on its own goroutine once a semaphore slot is
// free. The acquire happens before the goroutine starts, so backlog
// pressure is felt on the paho delivery path instead of in memory.
func (l *Listener) dispatch(topic string, work func(ctx context.Context)) {
	if l.isClosed() {
		return
	}

	if err := l.sem.Acquire(context.Background(), 1); err != nil {
		l.logger.Warn("dropping message, semaphore unavailable", "topic", topic)
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		work(ctx)
	}()
}

// parseReading splits a "<uuid>|<value>" payload.
func parseReading(payload []byte) (uuid.UUID, float64, error) {
	idPart, valuePart, found := strings.Cut(string(payload), "|")
	if !found {
		return uuid.UUID{}, 0, fmt.Errorf("payload %q missing separator", payload)
	}

	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.UUID{}, 0, fmt.Errorf("parsing sensor id %q: %w", idPart, err)
	}

	value, err := strconv.ParseFloat(valuePart, 64)
	if err != nil {
		return uuid.UUID{}, 0, fmt.Errorf("parsing value %q: %w", valuePart, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return uuid.UUID{}, 0, fmt.Errorf("value %q is not finite", valuePart)
	}

	return id, value, nil
}

// parseRegistration splits a "<uuid>|<label>" payload.
func parseRegistration(payload []byte) (uuid.UUID, string, error) {
	idPart, label, found := strings.Cut(string(payload), "|")
	if !found {
		return uuid.UUID{}, "", fmt.Errorf("payload %q missing separator", payload)
	}

	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.UUID{}, "", fmt.Errorf("parsing sensor id %q: %w", idPart, err)
	}
	if label == "" {
		return uuid.UUID{}, "", fmt.Errorf("payload %q has empty label", payload)
	}

	return id, label, nil
}
