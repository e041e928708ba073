package mqtt

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

const (
	discoveryPrefix = "homeassistant"
	stateSuffix     = "state"
	commandSuffix   = "set"
)

// Topics maps state paths to broker topics: home.cam1.enabled lives at
// <prefix>/home/cam1/enabled/state and accepts writes on .../set.
type Topics struct {
	Prefix string
}

func (t Topics) base(path string) string {
	return t.Prefix + "/" + strings.ReplaceAll(path, ".", "/")
}

func (t Topics) State(path string) string {
	return t.base(path) + "/" + stateSuffix
}

func (t Topics) Command(path string) string {
	return t.base(path) + "/" + commandSuffix
}

// Commands is the subscription filter for every command topic.
func (t Topics) Commands() string {
	return t.Prefix + "/#"
}

// PathFromCommand reverses Command. ok is false for any other topic.
func (t Topics) PathFromCommand(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, "/"+commandSuffix)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, "/", "."), true
}

// UniqueID is the discovery id of a path, e.g. home_cam1_enabled.
func UniqueID(path string) string {
	return strings.Replace(slug.Make(path), "-", "_", -1)
}

// Component picks the discovery component for a declaration. The armed and
// enabled toggles are exposed as switches so they can be written.
func Component(decl model.Declaration) string {
	if decl.Common.Type != model.KindBoolean {
		return "sensor"
	}
	if strings.HasSuffix(decl.ID, ".armed") || strings.HasSuffix(decl.ID, ".enabled") {
		return "switch"
	}
	return "binary_sensor"
}

func (t Topics) Discovery(decl model.Declaration) string {
	return discoveryPrefix + "/" + Component(decl) + "/" + UniqueID(decl.ID) + "/config"
}
