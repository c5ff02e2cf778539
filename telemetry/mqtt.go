// Package telemetry republishes controller events to external monitors.
// It never feeds anything back into the simulation — it is a one-way
// sink, unlike the teacher's transport/mqtt package which both publishes
// and subscribes mesh packets over the same topic.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/danylo37/overlay-mesh/device/controller"
)

// DefaultTopicPrefix is the default MQTT topic prefix for published events.
const DefaultTopicPrefix = "overlaymesh"

// Config holds the configuration for an MQTT telemetry sink.
type Config struct {
	// Broker is the MQTT broker URL (e.g., "tcp://broker.example.com:1883").
	Broker string
	// Username for MQTT authentication. Leave empty if not required.
	Username string
	// Password for MQTT authentication. Leave empty if not required.
	Password string
	// UseTLS enables TLS for the MQTT connection.
	UseTLS bool
	// ClientID is the MQTT client identifier. If empty, a random one is generated.
	ClientID string
	// TopicPrefix is the MQTT topic prefix (default: "overlaymesh").
	TopicPrefix string
	// RunID identifies this simulation run. Events publish to
	// "{TopicPrefix}/{RunID}".
	RunID string
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// MQTTSink subscribes to a controller's event stream and republishes each
// event as a JSON message on an MQTT topic, for an external monitor that
// would otherwise have to be wired into the controller directly.
type MQTTSink struct {
	cfg    Config
	client paho.Client
	log    *slog.Logger
	events chan controller.Event
	done   chan struct{}
}

// New creates a new MQTT telemetry sink with the given configuration.
func New(cfg Config) *MQTTSink {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MQTTSink{
		cfg:    cfg,
		log:    cfg.Logger.WithGroup("telemetry"),
		events: make(chan controller.Event, 256),
		done:   make(chan struct{}),
	}
}

// Attach subscribes the sink's internal event channel to ctrl. The sink
// receives no events until Attach is called; Start then publishes them.
func (m *MQTTSink) Attach(ctrl *controller.Controller) {
	ctrl.Subscribe(m.events)
}

// Start connects to the MQTT broker and begins publishing every event the
// sink receives until ctx is cancelled.
func (m *MQTTSink) Start(ctx context.Context) error {
	if m.cfg.Broker == "" {
		return errors.New("telemetry: broker URL is required")
	}
	if m.cfg.RunID == "" {
		return errors.New("telemetry: run ID is required")
	}

	clientID := m.cfg.ClientID
	if clientID == "" {
		clientID = "overlaymesh-" + randomString(16)
	}

	opts := paho.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(m.onConnectionLost).
		SetReconnectingHandler(m.onReconnecting)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
	}
	if m.cfg.Password != "" {
		opts.SetPassword(m.cfg.Password)
	}
	if m.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	m.client = paho.NewClient(opts)

	token := m.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return errors.New("telemetry: connection timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("telemetry: connecting to broker: %w", token.Error())
	}

	m.log.Info("connected to MQTT broker", "broker", m.cfg.Broker)
	go m.run(ctx)
	return nil
}

// Stop gracefully disconnects from the MQTT broker and waits for the
// publish loop to exit. Stop does not end the loop itself: the loop
// returns only when the context given to Start is cancelled.
func (m *MQTTSink) Stop() {
	if m.client != nil {
		m.client.Disconnect(1000)
	}
	<-m.done
}

func (m *MQTTSink) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.publish(ev)
		}
	}
}

func (m *MQTTSink) publish(ev controller.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.log.Warn("encoding event failed", "err", err)
		return
	}
	token := m.client.Publish(m.topic(), 0, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		m.log.Warn("timeout publishing event")
		return
	}
	if err := token.Error(); err != nil {
		m.log.Warn("publishing event failed", "err", err)
	}
}

func (m *MQTTSink) topic() string {
	return m.cfg.TopicPrefix + "/" + m.cfg.RunID
}

func (m *MQTTSink) onConnectionLost(_ paho.Client, err error) {
	m.log.Error("MQTT connection lost", "err", err)
}

func (m *MQTTSink) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	m.log.Info("reconnecting to MQTT broker")
}

func randomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
