package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultQoS               = byte(1)
)

// MQTTConfig configures the change event publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// publisher is the subset of pahomqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher emits a retained JSON change event on every snapshot change.
type MQTTPublisher struct {
	client  publisher
	topic   string
	timeout time.Duration
}

// ConnectMQTT connects to the broker and returns a publisher.
func ConnectMQTT(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetOrderMatters(false)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timeout after %v", defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTTPublisher(client, cfg.Topic), nil
}

func newMQTTPublisher(client publisher, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, timeout: defaultPublishTimeout}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Notify publishes the change and waits for the broker to acknowledge it.
func (p *MQTTPublisher) Notify(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("%w: encoding change event: %w", domain.ErrNotify, err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	token := p.client.Publish(p.topic, defaultQoS, true, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: mqtt publish to %s timed out", domain.ErrNotify, p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: mqtt publish to %s: %w", domain.ErrNotify, p.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
