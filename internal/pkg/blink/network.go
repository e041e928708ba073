package blink

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/internal/pkg/model"
	"github.com/anicoll/blink-integration/internal/pkg/schema"
)

// Connect logs in when needed and selects a network. An empty scope selects
// the configured network, or the first one on the account.
func (s *service) Connect(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connect(ctx, scope)
}

func (s *service) connect(ctx context.Context, scope string) error {
	if err := s.login(ctx); err != nil {
		return err
	}
	res := networksResponse{}
	if err := s.do(ctx, http.MethodGet, "/networks", nil, &res); err != nil {
		return err
	}
	if scope == "" {
		scope = s.cfg.Network
	}
	network, err := selectNetwork(res.Networks, scope)
	if err != nil {
		return err
	}
	if s.network == nil || s.network.ID != network.ID {
		s.camera = nil
		s.logger.Debug("selected network", zap.String("network", network.Name), zap.Int64("network_id", network.ID))
	}
	s.network = &network
	return nil
}

// selectNetwork matches scope against the name, the path segment form of
// the name or the id.
func selectNetwork(networks []Network, scope string) (Network, error) {
	if len(networks) == 0 {
		return Network{}, fmt.Errorf("%w: account has no networks", ErrNetworkNotFound)
	}
	if scope == "" {
		return networks[0], nil
	}
	for _, n := range networks {
		if n.Name == scope || schema.Segment(n.Name) == scope || idString(n.ID) == scope {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, scope)
}

// FetchSummary returns the homescreen summary of the selected network.
func (s *service) FetchSummary(ctx context.Context) (*model.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.network == nil {
		if err := s.connect(ctx, ""); err != nil {
			return nil, err
		}
	}
	summary := &model.Summary{}
	if err := s.do(ctx, http.MethodGet, "/network/"+idString(s.network.ID)+"/homescreen", nil, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// SetArmed arms or disarms the selected network.
func (s *service) SetArmed(ctx context.Context, armed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.network == nil {
		return fmt.Errorf("%w: none selected", ErrNetworkNotFound)
	}
	action := "disarm"
	if armed {
		action = "arm"
	}
	return s.do(ctx, http.MethodPost, "/network/"+idString(s.network.ID)+"/"+action, nil, nil)
}
