// Package notify publishes print results to an MQTT broker so home
// automation can react to printed labels.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/label"
)

const publishTimeout = 5 * time.Second

// Event describes one print attempt.
type Event struct {
	Kind      string    `json:"kind"` // text, grocy
	LabelSize string    `json:"label_size"`
	Text      string    `json:"text,omitempty"`
	Grocycode string    `json:"grocycode,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// NewEvent fills an event from a print result.
func NewEvent(kind, sizeID, text string, r label.Result) Event {
	return Event{
		Kind:      kind,
		LabelSize: sizeID,
		Text:      text,
		Success:   r.Success,
		Error:     r.Error,
		Time:      time.Now().UTC(),
	}
}

// Notifier receives print events. Notify must not block the caller.
type Notifier interface {
	Notify(ev Event)
}

// publisher is the part of the paho client we use.
type publisher interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Client publishes events as JSON. Without a configured host it is a no-op.
type Client struct {
	client  publisher
	topic   string
	enabled bool
	log     *zap.Logger
}

// New creates the client. Returns a disabled no-op client if host is empty.
func New(cfg config.MQTTConfig, log *zap.Logger) *Client {
	log = log.Named("mqtt")
	c := &Client{topic: cfg.Topic, log: log}
	if cfg.Host == "" {
		log.Debug("MQTT disabled (no host configured)")
		return c
	}

	port := cfg.Port
	if port == 0 {
		port = 1883
	}
	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			log.Info("MQTT connection established", zap.String("host", cfg.Host))
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("MQTT connection lost", zap.Error(err))
		})

	c.client = paho.NewClient(opts)
	c.enabled = true
	return c
}

// Connect starts connecting in the background; with connect retry enabled
// the token only completes once the broker is reached.
func (c *Client) Connect() {
	if !c.enabled {
		return
	}
	token := c.client.Connect()
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error("MQTT connect", zap.Error(err))
		}
	}()
}

// Disconnect disconnects from the MQTT broker. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled {
		return
	}
	c.client.Disconnect(250)
}

// Enabled returns whether MQTT is enabled.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Notify publishes ev to the configured topic. Fire and forget.
func (c *Client) Notify(ev Event) {
	if !c.enabled {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		c.log.Error("encode event", zap.Error(err))
		return
	}
	token := c.client.Publish(c.topic, 0, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			c.log.Warn("MQTT publish timed out", zap.String("topic", c.topic))
			return
		}
		if err := token.Error(); err != nil {
			c.log.Error("MQTT publish", zap.String("topic", c.topic), zap.Error(err))
		}
	}()
}
