package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type mockClient struct {
	mu        sync.Mutex
	published []published
	handlers  map[string]paho_mqtt.MessageHandler
	err       error
}

func (m *mockClient) Connect() paho_mqtt.Token {
	return &doneToken{err: m.err}
}

func (m *mockClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho_mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return &doneToken{err: m.err}
}

func (m *mockClient) Subscribe(topic string, _ byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = map[string]paho_mqtt.MessageHandler{}
	}
	m.handlers[topic] = callback
	return &doneToken{err: m.err}
}

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool { return false }
func (m message) Qos() byte { return 1 }
func (m message) Retained() bool { return false }
func (m message) Topic() string { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte { return m.payload }
func (m message) Ack() {}

func newService(t *testing.T, c *mockClient) *service {
	t.Helper()
	s := New(c, "blink")
	s.logger = zaptest.NewLogger(t)
	return s
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "blink"}
	assert.Equal(t, "blink/home/cam1/enabled/state", topics.State("home.cam1.enabled"))
	assert.Equal(t, "blink/home/armed/set", topics.Command("home.armed"))
	assert.Equal(t, "blink/#", topics.Commands())

	tests := map[string]struct {
		topic  string
		want   string
		wantOK bool
	}{
		"network command": {topic: "blink/home/armed/set", want: "home.armed", wantOK: true},
		"device command":  {topic: "blink/home/cam1/enabled/set", want: "home.cam1.enabled", wantOK: true},
		"state topic":     {topic: "blink/home/armed/state"},
		"other prefix":    {topic: "other/home/armed/set"},
		"bare set":        {topic: "blink/set"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := topics.PathFromCommand(tt.topic)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComponentAndUniqueID(t *testing.T) {
	assert.Equal(t, "home_cam1_enabled", UniqueID("home.cam1.enabled"))
	assert.Equal(t, "switch", Component(model.Declaration{ID: "home.armed", Common: model.Common{Type: model.KindBoolean}}))
	assert.Equal(t, "binary_sensor", Component(model.Declaration{ID: "home.cam1.online", Common: model.Common{Type: model.KindBoolean}}))
	assert.Equal(t, "sensor", Component(model.Declaration{ID: "home.cam1.temperature", Common: model.Common{Type: model.KindNumber}}))
}

func TestCreateObject_PublishesDiscoveryOnce(t *testing.T) {
	c := &mockClient{}
	s := newService(t, c)
	decl := model.Declaration{ID: "home.cam1.enabled", Common: model.Common{Name: "enabled", Type: model.KindBoolean}}

	require.NoError(t, s.CreateObject(context.Background(), decl))
	require.NoError(t, s.CreateObject(context.Background(), decl))

	require.Len(t, c.published, 1)
	p := c.published[0]
	assert.Equal(t, "homeassistant/switch/home_cam1_enabled/config", p.topic)
	assert.True(t, p.retained)

	msg := model.RegisterMessage{}
	require.NoError(t, json.Unmarshal(p.payload, &msg))
	assert.Equal(t, "blink/home/cam1/enabled", msg.Tilda)
	assert.Equal(t, "~/state", msg.StateTopic)
	assert.Equal(t, "~/set", msg.CommandTopic)
	assert.Equal(t, "home_cam1_enabled", msg.ID)
	assert.Equal(t, []string{"blink_home"}, msg.Device.Identifiers)
}

func TestCreateObject_PublishFailureIsRetried(t *testing.T) {
	c := &mockClient{err: errors.New("not connected")}
	s := newService(t, c)
	decl := model.Declaration{ID: "home.name", Common: model.Common{Type: model.KindString}}

	assert.ErrorIs(t, s.CreateObject(context.Background(), decl), ErrPublish)

	c.err = nil
	require.NoError(t, s.CreateObject(context.Background(), decl))
	assert.Len(t, c.published, 2)
}

func TestWriteState(t *testing.T) {
	c := &mockClient{}
	s := newService(t, c)
	ts := time.UnixMilli(1700000000123)

	require.NoError(t, s.WriteState(context.Background(), "home.armed", model.State{Val: model.Bool(true), Ack: true, TS: ts, From: model.FromSystem}))

	require.Len(t, c.published, 1)
	assert.Equal(t, "blink/home/armed/state", c.published[0].topic)
	assert.JSONEq(t, `{"val":true,"ack":true,"ts":1700000000123,"from":"system.sync"}`, string(c.published[0].payload))
}

func TestDeleteObject_ClearsRetainedState(t *testing.T) {
	c := &mockClient{}
	s := newService(t, c)

	require.NoError(t, s.DeleteObject(context.Background(), "home.armed"))
	require.Len(t, c.published, 1)
	assert.Equal(t, "blink/home/armed/state", c.published[0].topic)
	assert.Empty(t, c.published[0].payload)
}

func TestSubscribeCommands(t *testing.T) {
	c := &mockClient{}
	s := newService(t, c)

	type command struct {
		path string
		val  model.Value
	}
	var got []command
	require.NoError(t, s.SubscribeCommands(func(path string, val model.Value) {
		got = append(got, command{path: path, val: val})
		if path == "home.panic" {
			panic("boom")
		}
	}))

	handler := c.handlers["blink/#"]
	require.NotNil(t, handler)
	handler(nil, message{topic: "blink/home/armed/set", payload: []byte("true")})
	handler(nil, message{topic: "blink/home/armed/state", payload: []byte(`{"val":true}`)})
	handler(nil, message{topic: "blink/home/cam1/enabled/set", payload: []byte("False")})
	handler(nil, message{topic: "blink/home/panic/set", payload: []byte("1")})

	require.Len(t, got, 3)
	assert.Equal(t, command{path: "home.armed", val: model.Bool(true)}, got[0])
	assert.Equal(t, command{path: "home.cam1.enabled", val: model.String("False")}, got[1])
}

func TestConnect(t *testing.T) {
	assert.NoError(t, newService(t, &mockClient{}).Connect())
	assert.ErrorIs(t, newService(t, &mockClient{err: errors.New("refused")}).Connect(), ErrConnect)
}
