// Package schema derives state node declarations from a cloud summary.
package schema

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

const Separator = "."

// Segment makes a name usable as a single path segment.
func Segment(name string) string {
	return strings.ReplaceAll(name, Separator, "_")
}

// NetworkPath addresses a network attribute: {network}.{attr}.
func NetworkPath(network, attr string) string {
	return Segment(network) + Separator + Segment(attr)
}

// DevicePath addresses a device attribute: {network}.{device}.{attr}.
func DevicePath(network, device, attr string) string {
	return Segment(network) + Separator + Segment(device) + Separator + Segment(attr)
}

// Node is one scalar attribute located in the state tree.
type Node struct {
	Path string
	model.Attribute
}

// Walk lists the scalar attributes of the summary with their paths: network
// attributes first in reported order, then each device in sequence order.
// Non-scalar attributes are skipped. Names that only differ by the separator
// share a path; the first one wins and the rest are logged and skipped.
func Walk(summary *model.Summary) []Node {
	if summary == nil {
		return nil
	}
	network := summary.NetworkName()
	nodes := make([]Node, 0, len(summary.Network))
	seen := map[string]string{}
	add := func(path, name string, attr model.Attribute) {
		if !attr.Value.IsScalar() {
			return
		}
		if first, ok := seen[path]; ok {
			zap.L().Warn("duplicate state path, attribute skipped",
				zap.String("path", path), zap.String("attribute", name), zap.String("kept", first))
			return
		}
		seen[path] = name
		nodes = append(nodes, Node{Path: path, Attribute: attr})
	}

	for _, attr := range summary.Network {
		add(NetworkPath(network, attr.Key), network+Separator+attr.Key, attr)
	}
	for _, device := range summary.Devices {
		name := device.Name()
		for _, attr := range device {
			add(DevicePath(network, name, attr.Key), network+Separator+name+Separator+attr.Key, attr)
		}
	}
	return nodes
}

// Project emits one read-only indicator declaration per scalar attribute.
func Project(summary *model.Summary) []model.Declaration {
	return lo.Map(Walk(summary), func(n Node, _ int) model.Declaration {
		return declare(n)
	})
}

func declare(n Node) model.Declaration {
	return model.Declaration{
		ID:   n.Path,
		Type: model.ObjectTypeState,
		Common: model.Common{
			Name:  n.Key,
			Type:  n.Value.Kind(),
			Role:  model.RoleIndicator,
			Read:  true,
			Write: false,
		},
		Native: model.Native{ID: n.Path},
	}
}
