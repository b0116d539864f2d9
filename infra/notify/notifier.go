// Package notify forwards committed redirections to the affected vehicles over
// MQTT.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/parkctl/core/events"
	"github.com/kilianp07/parkctl/core/logger"
	"github.com/kilianp07/parkctl/core/monitoring"
	"github.com/kilianp07/parkctl/internal/eventbus"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Message is the JSON payload sent for each redirection.
type Message struct {
	MessageID string `json:"message_id"`
	RunID     string `json:"run_id"`
	VehicleID string `json:"vehicle_id"`
	StopIndex int    `json:"stop_index"`
	From      string `json:"from"`
	To        string `json:"to"`
	Cause     string `json:"cause"`
	Tick      int    `json:"tick"`
	Timestamp int64  `json:"timestamp"`
}

// PahoNotifier publishes redirections to <prefix>/<vehicleID>/redirect.
type PahoNotifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	runID      string
	log        logger.Logger
}

// NewPahoNotifier connects to the broker.
func NewPahoNotifier(cfg Config, runID string, log logger.Logger) (*PahoNotifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return &PahoNotifier{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		runID:      runID,
		log:        log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, false)
	}
	return opts, nil
}

// Topic returns the redirect topic of vehicleID.
func (n *PahoNotifier) Topic(vehicleID string) string {
	return fmt.Sprintf("%s/%s/redirect", n.prefix, vehicleID)
}

// NotifyRedirect publishes ev, retrying with exponential backoff, and returns
// the message identifier.
func (n *PahoNotifier) NotifyRedirect(ev events.RedirectEvent) (string, error) {
	msg := Message{
		MessageID: uuid.NewString(),
		RunID:     n.runID,
		VehicleID: ev.VehicleID,
		StopIndex: ev.StopIndex,
		From:      ev.From.String(),
		To:        ev.To.String(),
		Cause:     ev.Cause.String(),
		Tick:      ev.Tick,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	topic := n.Topic(ev.VehicleID)

	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.log.Debugf("sent redirect %s to %s", msg.MessageID, topic)
			return msg.MessageID, nil
		}
		n.log.Warnf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < n.maxRetries {
			time.Sleep(n.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "notify", "vehicle_id": ev.VehicleID})
	return "", fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Start forwards every RedirectEvent published on bus until ctx is canceled
// or the bus is closed. The returned channel is closed once it has stopped.
func (n *PahoNotifier) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	monitoring.Go(func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if r, isRedirect := ev.(events.RedirectEvent); isRedirect {
					if _, err := n.NotifyRedirect(r); err != nil {
						n.log.Errorf("notify %s: %v", r.VehicleID, err)
					}
				}
			}
		}
	})
	return done
}

// Close gracefully closes the MQTT connection.
func (n *PahoNotifier) Close() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
