package publisher

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/xkilldash9x/dialogskip/internal/config"
)

var errTimeout = errors.New("timed out")

// MQTT publishes to a broker through paho.
type MQTT struct {
	client  paho.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTT connects to cfg.Broker.
func NewMQTT(cfg config.PublisherConfig) (*MQTT, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(cfg.RetryInterval)

	// A retrying client keeps dialing in the background until Disconnect.
	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, errTimeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return &MQTT{
		client:  client,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: cfg.ConnectTimeout,
	}, nil
}

func (m *MQTT) Publish(payload []byte) error {
	token := m.client.Publish(m.topic, m.qos, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publish: %w", errTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects, allowing a second for in-flight messages.
func (m *MQTT) Close() error {
	m.client.Disconnect(1000)
	return nil
}
