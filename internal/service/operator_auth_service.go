package service

import (
	"context"
	"fmt"
	"time"

	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// OperatorAuthServiceImpl implements ports.OperatorAuthService against the
// operators listed in configuration.
type OperatorAuthServiceImpl struct {
	keyHashes map[string]string
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
	log       zerolog.Logger
}

// NewOperatorAuthService creates a new OperatorAuthServiceImpl. keyHashes
// maps operator name to Argon2id key hash.
func NewOperatorAuthService(keyHashes map[string]string, hashSvc ports.HashService, tokenSvc ports.TokenService, log zerolog.Logger) *OperatorAuthServiceImpl {
	return &OperatorAuthServiceImpl{
		keyHashes: keyHashes,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
		log:       log,
	}
}

// Login validates operator credentials and returns a JWT with the
// operator role.
func (s *OperatorAuthServiceImpl) Login(ctx context.Context, name, key string) (string, time.Time, error) {
	hash, ok := s.keyHashes[name]
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(key, hash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify operator key: %w", err))
	}
	if !valid {
		s.log.Warn().Str("operator", name).Msg("operator login rejected")
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(name, ports.RoleOperator)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.log.Info().Str("operator", name).Time("expires_at", expiry).Msg("operator token issued")
	return token, expiry, nil
}
