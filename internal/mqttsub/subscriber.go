// Package mqttsub keeps a subscription to the device topic alive and hands
// every inbound message to a Handler.
package mqttsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("mqtt not connected")
	ErrNoBrokerURL  = errors.New("mqtt broker url is required")
)

const (
	DefaultTopic = "aiface/+/sub"
	DefaultQoS   = byte(1)

	reconnectPeriod     = 2 * time.Second
	connectTimeout      = 20 * time.Second
	disconnectQuiesceMs = 250
)

// Handler receives one message at a time, in broker delivery order.
type Handler interface {
	Handle(ctx context.Context, topic string, payload []byte)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, topic string, payload []byte)

func (f HandlerFunc) Handle(ctx context.Context, topic string, payload []byte) {
	f(ctx, topic, payload)
}

type Config struct {
	URL      string
	Topic    string
	ClientID string // generated when empty
	Username string
	Password string
	QoS      byte
}

// Subscriber owns one paho client.  The subscription is (re)issued on every
// successful connect because sessions are clean.
type Subscriber struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger
	client  mqtt.Client

	mu  sync.RWMutex
	ctx context.Context
}

func New(cfg Config, h Handler, logger *zap.Logger) (*Subscriber, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, ErrNoBrokerURL
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "punchbridge-" + uuid.NewString()[:8]
	}
	if cfg.QoS > 2 {
		cfg.QoS = DefaultQoS
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Subscriber{
		cfg:     cfg,
		handler: h,
		logger:  logger.With(zap.String("component", "mqtt")),
		ctx:     context.Background(),
	}
	s.client = mqtt.NewClient(s.clientOptions())
	return s, nil
}

func (s *Subscriber) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.URL).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectPeriod).
		SetMaxReconnectInterval(reconnectPeriod).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			s.logger.Info("mqtt reconnecting")
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	return opts
}

// Start begins connecting in the background and returns immediately.
// Messages are handled with ctx's values but not its cancellation: a QoS 1
// message is already acknowledged when it arrives, so a handler that is
// running when ctx ends must still finish its writes.  Stop ends intake.
func (s *Subscriber) Start(ctx context.Context) {
	s.bindContext(ctx)

	s.logger.Info("mqtt connecting", zap.String("url", s.cfg.URL), zap.String("client_id", s.cfg.ClientID))

	token := s.client.Connect()
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.logger.Error("mqtt connect failed", zap.Error(err))
		}
	}()
}

func (s *Subscriber) bindContext(ctx context.Context) {
	s.mu.Lock()
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()
}

// Stop disconnects, letting in-flight work finish for a short quiesce period.
func (s *Subscriber) Stop() {
	s.client.Disconnect(disconnectQuiesceMs)
	s.logger.Info("mqtt disconnected")
}

func (s *Subscriber) Connected() bool {
	return s.client.IsConnectionOpen()
}

// Check is a health probe: nil while the broker connection is open.
func (s *Subscriber) Check(context.Context) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	return nil
}

func (s *Subscriber) URL() string   { return s.cfg.URL }
func (s *Subscriber) Topic() string { return s.cfg.Topic }

func (s *Subscriber) onConnect(c mqtt.Client) {
	s.logger.Info("mqtt connected")

	token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
	go func() {
		if !token.WaitTimeout(connectTimeout) {
			s.logger.Error("mqtt subscribe timed out", zap.String("topic", s.cfg.Topic))
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Error("mqtt subscribe failed", zap.String("topic", s.cfg.Topic), zap.Error(err))
			return
		}
		s.logger.Info("mqtt subscribed", zap.String("topic", s.cfg.Topic), zap.Uint8("qos", s.cfg.QoS))
	}()
}

func (s *Subscriber) onConnectionLost(_ mqtt.Client, err error) {
	s.logger.Warn("mqtt connection lost", zap.Error(err))
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if s.handler == nil {
		return
	}

	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("mqtt handler panic",
				zap.String("topic", msg.Topic()),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.handler.Handle(ctx, msg.Topic(), msg.Payload())
}
