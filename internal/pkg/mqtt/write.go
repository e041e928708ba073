package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

// CreateObject publishes the retained discovery config of a new node.
func (s *service) CreateObject(_ context.Context, decl model.Declaration) error {
	if _, exists := s.configured.Load(decl.ID); exists {
		return nil
	}
	payload, err := json.Marshal(s.registerMsg(decl))
	if err != nil {
		return err
	}
	if err := s.publish(s.topics.Discovery(decl), true, payload); err != nil {
		return err
	}
	s.configured.Store(decl.ID, struct{}{})
	s.logger.Debug("published discovery config", zap.String("path", decl.ID))
	return nil
}

// WriteState publishes the retained state of a node.
func (s *service) WriteState(_ context.Context, path string, st model.State) error {
	payload, err := json.Marshal(model.StatePayload{
		Val:  st.Val.Any(),
		Ack:  st.Ack,
		TS:   st.TS.UnixMilli(),
		From: st.From,
	})
	if err != nil {
		return err
	}
	return s.publish(s.topics.State(path), true, payload)
}

// DeleteObject clears the retained state of a node. Its discovery config is
// left alone since the component is not known any more.
func (s *service) DeleteObject(_ context.Context, path string) error {
	s.configured.Delete(path)
	return s.publish(s.topics.State(path), true, []byte{})
}

func (s *service) registerMsg(decl model.Declaration) model.RegisterMessage {
	network, _, _ := strings.Cut(decl.ID, ".")
	deviceID := "blink_" + UniqueID(network)
	msg := model.RegisterMessage{
		Tilda:      s.topics.base(decl.ID),
		Name:       decl.Common.Name,
		ID:         UniqueID(decl.ID),
		StateTopic: "~/" + stateSuffix,
		ValueTmpl:  "{{ value_json.val }}",
		Device: model.RegisterDevice{
			Name:         "Blink " + network,
			Identifiers:  []string{deviceID},
			Model:        "Blink network",
			Manufacturer: "Blink",
		},
	}
	switch Component(decl) {
	case "switch":
		msg.CommandTopic = "~/" + commandSuffix
		msg.PayloadOn, msg.PayloadOff = "True", "False"
	case "binary_sensor":
		msg.PayloadOn, msg.PayloadOff = "True", "False"
	}
	return msg
}
