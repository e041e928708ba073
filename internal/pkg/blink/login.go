package blink

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// login opens a session unless one is already held.
func (s *service) login(ctx context.Context) error {
	if s.token != "" {
		return nil
	}
	res := loginResponse{}
	err := s.do(ctx, http.MethodPost, "/api/v5/account/login", loginRequest{
		Email:      s.cfg.Username,
		Password:   s.cfg.Password,
		UniqueID:   s.clientID,
		ClientName: ClientName,
		Reauth:     true,
	}, &res)
	if err != nil {
		return err
	}
	s.token = res.Auth.Token
	if res.Account.Tier != "" {
		s.region = res.Account.Tier
	}
	if res.Account.ID != 0 {
		s.accountID = idString(res.Account.ID)
	}
	s.logger.Info("logged in to blink", zap.String("region", s.region), zap.String("account_id", s.accountID))
	return nil
}
