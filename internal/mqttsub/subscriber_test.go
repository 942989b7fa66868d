package mqttsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recorder struct {
	mu     sync.Mutex
	topics []string
	bodies []string
}

func (r *recorder) Handle(_ context.Context, topic string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.bodies = append(r.bodies, string(payload))
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{URL: "  "}, &recorder{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNoBrokerURL)
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Config{URL: "tcp://127.0.0.1:1883", QoS: 9}, &recorder{}, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTopic, s.Topic())
	assert.Equal(t, "tcp://127.0.0.1:1883", s.URL())
	assert.Equal(t, DefaultQoS, s.cfg.QoS)
	assert.Regexp(t, `^punchbridge-[0-9a-f]{8}$`, s.cfg.ClientID)
}

func TestClientOptions(t *testing.T) {
	s, err := New(Config{
		URL:      "tcp://broker.local:1883",
		ClientID: "bridge-1",
		Username: "u",
		Password: "p",
	}, &recorder{}, zap.NewNop())
	require.NoError(t, err)

	r := s.client.OptionsReader()
	require.Len(t, r.Servers(), 1)
	assert.Equal(t, "broker.local:1883", r.Servers()[0].Host)
	assert.Equal(t, "bridge-1", r.ClientID())
	assert.Equal(t, "u", r.Username())
	assert.True(t, r.CleanSession())
	assert.True(t, r.AutoReconnect())
	assert.True(t, r.ConnectRetry())
	assert.True(t, r.Order())
	assert.Equal(t, 2*time.Second, r.ConnectRetryInterval())
	assert.Equal(t, 2*time.Second, r.MaxReconnectInterval())
	assert.Equal(t, 20*time.Second, r.ConnectTimeout())
}

func TestOnMessage_ForwardsToHandlerInOrder(t *testing.T) {
	rec := &recorder{}
	s, err := New(Config{URL: "tcp://127.0.0.1:1883"}, rec, zap.NewNop())
	require.NoError(t, err)

	s.onMessage(nil, fakeMessage{topic: "aiface/DEV1/sub", payload: []byte(`{"cmd":"sendlog"}`)})
	s.onMessage(nil, fakeMessage{topic: "aiface/DEV2/sub", payload: []byte(`{"cmd":"heartbeat"}`)})

	assert.Equal(t, []string{"aiface/DEV1/sub", "aiface/DEV2/sub"}, rec.topics)
	assert.Equal(t, []string{`{"cmd":"sendlog"}`, `{"cmd":"heartbeat"}`}, rec.bodies)
}

func TestOnMessage_RecoversFromHandlerPanic(t *testing.T) {
	h := HandlerFunc(func(context.Context, string, []byte) { panic("boom") })
	s, err := New(Config{URL: "tcp://127.0.0.1:1883"}, h, zap.NewNop())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		s.onMessage(nil, fakeMessage{topic: "t", payload: []byte("{}")})
	})
}

func TestCheck_NotConnectedBeforeStart(t *testing.T) {
	s, err := New(Config{URL: "tcp://127.0.0.1:1883"}, &recorder{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, s.Connected())
	assert.ErrorIs(t, s.Check(context.Background()), ErrNotConnected)
}

func TestOnMessage_HandlerContextOutlivesStartContext(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	seen := make(chan error, 1)

	h := HandlerFunc(func(ctx context.Context, _ string, _ []byte) {
		close(entered)
		<-release
		seen <- ctx.Err()
	})
	s, err := New(Config{URL: "tcp://127.0.0.1:1883"}, h, zap.NewNop())
	require.NoError(t, err)

	type ctxKey struct{}
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "serve"))
	s.bindContext(parent)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.onMessage(nil, fakeMessage{topic: "aiface/DEV1/sub", payload: []byte(`{"cmd":"sendlog"}`)})
	}()

	<-entered
	cancel() // shutdown signal arrives mid-message
	close(release)
	<-done

	assert.NoError(t, <-seen, "in-flight message must not see the shutdown cancellation")

	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	assert.Equal(t, "serve", ctx.Value(ctxKey{}))
	assert.NoError(t, ctx.Err())
}
