package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// QoSAtLeastOnce is MQTT QoS 1.
	QoSAtLeastOnce byte = 1

	defaultPublishTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

var (
	ErrPublishTimeout = errors.New("publish not acknowledged before timeout")
	ErrConnectTimeout = errors.New("broker connect timed out")
)

type MQTTOptions struct {
	BrokerURL      string
	ClientID       string
	ConnectTimeout time.Duration
}

// NewMQTTClient connects to the broker. The client keeps reconnecting in the
// background, so a failed first connect is returned but the client stays usable.
func NewMQTTClient(opts MQTTOptions) (mqtt.Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectTimeout(opts.ConnectTimeout).
		SetCleanSession(true)
	co.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("Connected to MQTT broker %s", opts.BrokerURL)
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		return client, fmt.Errorf("connect to %s: %w", opts.BrokerURL, ErrConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return client, fmt.Errorf("connect to %s: %w", opts.BrokerURL, err)
	}
	return client, nil
}

// MQTTSink publishes to a single topic at QoS 1.
type MQTTSink struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, timeout: defaultPublishTimeout}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic() string { return s.topic }

func (s *MQTTSink) Publish(ctx context.Context, _ string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", s.topic, err)
	}
	token := s.client.Publish(s.topic, QoSAtLeastOnce, false, payload)

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s: %w", s.topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", s.topic, err)
	}
	return nil
}

// Close always disconnects so a client still in its connect-retry loop stops too.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(disconnectQuiesceMs)
	return nil
}
