// Package mqtt forwards dispatch events to an MQTT broker and listens for
// remote start/stop commands on a control topic.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/factory"
	coremon "github.com/kilianp07/erdispatch/core/monitoring"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string `json:"broker"`
	ClientID     string `json:"client_id"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	TopicPrefix  string `json:"topic_prefix"`
	ControlTopic string `json:"control_topic"`
	UseTLS       bool   `json:"use_tls"`
	ClientCert   string `json:"client_cert"`
	ClientKey    string `json:"client_key"`
	CABundle     string `json:"ca_bundle"`
	QoS          byte   `json:"qos"`
	Retain       bool   `json:"retain"`
	MaxRetries   int    `json:"max_retries"`
	BackoffMS    int    `json:"backoff_ms"`
	// TLSConfig takes precedence over the certificate paths when set.
	TLSConfig *tls.Config `json:"-"`
}

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "erdispatch"

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// message is the wire envelope of a forwarded event.
type message struct {
	MessageID string      `json:"message_id"`
	Type      events.Type `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// Forwarder publishes events on "<prefix>/<event type>" topics.
type Forwarder struct {
	cli        pahoClient
	prefix     string
	control    string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger

	mu      sync.RWMutex
	handler coremqtt.CommandHandler
}

// NewForwarder connects to the broker. The control topic subscription is
// (re)established on every connect.
func NewForwarder(cfg Config) (*Forwarder, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_forwarder")
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	f := &Forwarder{
		prefix:     prefix,
		control:    cfg.ControlTopic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    factory.Millis(cfg.BackoffMS, 100*time.Millisecond),
		log:        log,
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 3
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if f.control == "" {
			return
		}
		if token := c.Subscribe(f.control, f.qos, f.onCommand); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	f.cli = c
	return f, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "erdispatch-" + uuid.NewString()[:8]
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
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
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	// the broker announces an unclean shutdown as a stopped system
	will, _ := json.Marshal(message{Type: events.TypeSystemStatus, Payload: events.SystemStatus{State: events.StateStopped}})
	opts.SetWill(strings.TrimSuffix(prefix, "/")+"/"+events.TypeSystemStatus.Topic(), string(will), cfg.QoS, true)
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Name implements events.Forwarder.
func (f *Forwarder) Name() string { return "mqtt" }

// Topic returns the topic events of type t are published on.
func (f *Forwarder) Topic(t events.Type) string { return f.prefix + "/" + t.Topic() }

// Forward publishes ev, retrying with exponential backoff. SYSTEM_STATUS
// events are retained so late subscribers learn the loop state.
func (f *Forwarder) Forward(ctx context.Context, ev events.Event) error {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.Marshal(message{
		MessageID: uuid.NewString(),
		Type:      ev.Type,
		Payload:   ev.Payload,
		Timestamp: ts.UnixMilli(),
	})
	if err != nil {
		return err
	}
	topic := f.Topic(ev.Type)
	retain := f.retain || ev.Type == events.TypeSystemStatus

	var publishErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		token := f.cli.Publish(topic, f.qos, retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			f.log.Debugf("published %s", topic)
			return nil
		}
		f.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == f.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.backoff * time.Duration(1<<attempt)):
		}
	}
	err = fmt.Errorf("%w: %s: %w", coremqtt.ErrPublish, topic, publishErr)
	coremon.CaptureException(err, map[string]string{"module": "mqtt", "event": string(ev.Type)})
	return err
}

// OnCommand installs the handler invoked for messages on the control topic.
func (f *Forwarder) OnCommand(h coremqtt.CommandHandler) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *Forwarder) onCommand(_ paho.Client, msg paho.Message) {
	var cmd coremqtt.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		f.log.Errorf("failed to decode command: %v", err)
		return
	}
	f.mu.RLock()
	h := f.handler
	f.mu.RUnlock()
	if h == nil {
		f.log.Warnf("command %q ignored: no handler", cmd.Action)
		return
	}
	if err := h(context.Background(), cmd); err != nil {
		f.log.Errorf("command %q failed: %v", cmd.Action, err)
		return
	}
	f.log.Infof("command %q applied", cmd.Action)
}

// Close gracefully closes the MQTT connection.
func (f *Forwarder) Close() error {
	if f.cli != nil && f.cli.IsConnected() {
		f.cli.Disconnect(250)
	}
	return nil
}
