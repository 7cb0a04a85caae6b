package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/autopeer-io/fleetlink/pkg/log"
)

// ErrNotStarted is returned by calls made before Start.
var ErrNotStarted = errors.New("mqtt client not started")

type pahoClient struct {
	cfg *ClientConfig
	log log.Logger

	// cm is set once by Start and read by publishers on other goroutines.
	cm        atomic.Pointer[autopaho.ConnectionManager]
	connected atomic.Bool

	routes router
}

// NewClient returns a Client for cfg. Defaults are applied to cfg in place.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}

	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg: cfg,
		log: log.WithName("mqtt").WithValues("clientID", cfg.ClientID),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // validated in NewClient

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectBackoff),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg:                        c.tlsConfig(brokerURL),
		WillMessage:                   c.willMessage(),
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError:                c.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.onPublishReceived,
			},
		},
	}

	c.log.Info("Starting MQTT client", "broker", c.cfg.BrokerURL)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return err
	}
	c.cm.Store(cm)
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	cm := c.cm.Load()
	if cm == nil {
		return
	}
	c.setConnected(false)
	if err := cm.Disconnect(ctx); err != nil {
		c.log.Warn("MQTT disconnect did not complete cleanly", "error", err.Error())
		return
	}
	c.log.Info("MQTT client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	cm, err := c.manager()
	if err != nil {
		return err
	}

	_, err = cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	cm, err := c.manager()
	if err != nil {
		return err
	}

	// Registered first so a reconnect racing the SUBSCRIBE below still
	// re-subscribes from onConnectionUp.
	c.routes.add(topic, qos, handler)

	if _, err := cm.Subscribe(ctx, subscribePacket(topic, qos)); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", topic, err)
	}

	c.log.Info("Subscribed", "topic", topic, "qos", qos)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	cm, err := c.manager()
	if err != nil {
		return err
	}

	c.routes.remove(topic)
	_, err = cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{topic}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	cm, err := c.manager()
	if err != nil {
		return err
	}
	return cm.AwaitConnection(ctx)
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) manager() (*autopaho.ConnectionManager, error) {
	cm := c.cm.Load()
	if cm == nil {
		return nil, ErrNotStarted
	}
	return cm, nil
}

// tlsConfig is only set for secure schemes; plain tcp and ws brokers get nil.
func (c *pahoClient) tlsConfig(u *url.URL) *tls.Config {
	switch u.Scheme {
	case "ssl", "tls", "mqtts", "wss":
		return &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify} //nolint:gosec // opt-in for test brokers
	default:
		return nil
	}
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

func subscribePacket(topic string, qos int) *paho.Subscribe {
	return &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: byte(qos)}},
	}
}

// setConnected records the connection state and reports transitions to
// OnConnectionChange.
func (c *pahoClient) setConnected(up bool) {
	if c.connected.Swap(up) != up && c.cfg.OnConnectionChange != nil {
		c.cfg.OnConnectionChange(up)
	}
}

// onConnectionUp runs on every (re)connect and restores the subscriptions.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.setConnected(true)
	c.log.Info("MQTT connection established")

	for _, rt := range c.routes.snapshot() {
		if _, err := cm.Subscribe(context.Background(), subscribePacket(rt.filter, rt.qos)); err != nil {
			c.log.Error(err, "Failed to re-subscribe", "topic", rt.filter)
			continue
		}
		c.log.Debug("Re-subscribed", "topic", rt.filter)
	}
}

func (c *pahoClient) onConnectError(err error) {
	c.setConnected(false)
	c.log.Error(err, "MQTT connection failed, retrying")
}

func (c *pahoClient) onClientError(err error) {
	c.setConnected(false)
	c.log.Error(err, "MQTT client error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.setConnected(false)
	if d.Properties != nil && d.Properties.ReasonString != "" {
		c.log.Warn("MQTT server requested disconnect", "reason", d.Properties.ReasonString)
		return
	}
	c.log.Warn("MQTT server requested disconnect", "reasonCode", d.ReasonCode)
}

// onPublishReceived runs the matching handlers inline on paho's reader
// goroutine, keeping per-topic arrival order. Handlers must not block.
func (c *pahoClient) onPublishReceived(p paho.PublishReceived) (bool, error) {
	if !c.routes.dispatch(context.Background(), p.Packet.Topic, p.Packet.Payload) {
		c.log.Debug("Message on unhandled topic", "topic", p.Packet.Topic)
	}
	return true, nil
}
