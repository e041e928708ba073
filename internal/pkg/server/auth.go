package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/anicoll/blink-integration/pkg/hasher"
)

const (
	issuer      = "blink-integration"
	tokenIDSize = 16
)

var (
	ErrAuthDisabled       = errors.New("token auth is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *server) issueToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.JWTSecret == "" || s.cfg.PasswordHash == "" {
		writeError(w, http.StatusNotFound, ErrAuthDisabled)
		return
	}
	req, err := unmarshalPayload[tokenRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.Username)) == 1
	if !hasher.PasswordCorrect(req.Password, s.cfg.PasswordHash) || !userOK {
		s.logger.Warn("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, ErrInvalidCredentials)
		return
	}

	signed, err := s.signToken(req.Username)
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.ttl().Seconds()),
	})
}

func (s *server) signToken(subject string) (string, error) {
	id, err := hasher.GenerateToken(tokenIDSize)
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *server) ttl() time.Duration {
	if s.cfg.TokenTTL <= 0 {
		return 15 * time.Minute
	}
	return s.cfg.TokenTTL
}
