package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/config"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
)

var (
	ErrConnect   = errors.New("unable to connect to mqtt broker")
	ErrPublish   = errors.New("failed to publish mqtt message")
	ErrSubscribe = errors.New("failed to subscribe to mqtt topic")
)

type client interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
	Subscribe(topic string, qos byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token
}

type service struct {
	client client
	topics Topics
	logger *zap.Logger

	// configured holds the paths whose discovery config was published.
	configured sync.Map
}

// NewClientOptions builds broker options from the configuration.
func NewClientOptions(cfg *config.MqttConfig) *paho_mqtt.ClientOptions {
	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(cfg.Host)
	opts.SetClientID("blink-integration-" + uuid.NewString()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	return opts
}

func New(client client, prefix string) *service {
	return &service{
		client: client,
		topics: Topics{Prefix: prefix},
		logger: zap.L(), // returns the global logger.
	}
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: no answer in %s", ErrConnect, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return nil
}

func (s *service) publish(topic string, retained bool, payload []byte) error {
	token := s.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrPublish, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}
