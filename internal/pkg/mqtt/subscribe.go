package mqtt

import (
	"fmt"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

// CommandHandler receives a user write for a state path.
type CommandHandler func(path string, val model.Value)

// SubscribeCommands routes messages on <prefix>/.../set to handler.
func (s *service) SubscribeCommands(handler CommandHandler) error {
	token := s.client.Subscribe(s.topics.Commands(), 1, s.wrapHandler(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout", ErrSubscribe, s.topics.Commands())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribe, err)
	}
	s.logger.Info("subscribed to command topics", zap.String("topic", s.topics.Commands()))
	return nil
}

func (s *service) wrapHandler(handler CommandHandler) paho_mqtt.MessageHandler {
	return func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		path, ok := s.topics.PathFromCommand(msg.Topic())
		if !ok {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("command handler panicked", zap.String("topic", msg.Topic()), zap.Any("panic", r))
			}
		}()
		handler(path, model.ParsePayload(msg.Payload()))
	}
}
