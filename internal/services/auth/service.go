package auth

import (
	"context"
	"fmt"
)

// SessionChecker reports whether the session behind a token is still live.
// Sessions are issued and revoked by the auth collaborator; this service only reads them.
type SessionChecker interface {
	SessionActive(ctx context.Context, sid string) (bool, error)
}

type Service struct {
	tokens   *TokenVerifier
	sessions SessionChecker
}

// NewService accepts a nil checker, in which case a valid signature is enough.
func NewService(tokens *TokenVerifier, sessions SessionChecker) *Service {
	return &Service{
		tokens:   tokens,
		sessions: sessions,
	}
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.sessions == nil {
		return claims, nil
	}

	active, err := s.sessions.SessionActive(ctx, claims.SID)
	if err != nil {
		return AccessClaims{}, fmt.Errorf("check session: %w", err)
	}
	if !active {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}
