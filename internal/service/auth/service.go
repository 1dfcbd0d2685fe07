package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/platform/logger"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// TokenDenylist records revoked refresh tokens. Satisfied by the Redis-backed
// implementation; lookups fail open when the backing store is down.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenPair is the access/refresh token pair returned by authentication
// operations.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service implements registration, login and the refresh-token lifecycle on
// top of the identity store and the JWT service.
type Service struct {
	userStore store.UserStore
	jwt       JWTService
	verifier  PasswordVerifier
	denylist  TokenDenylist
}

// NewService creates an authentication service. denylist may not be nil; pass
// the no-op implementation when Redis is not configured.
func NewService(
	userStore store.UserStore,
	jwt JWTService,
	verifier PasswordVerifier,
	denylist TokenDenylist,
) *Service {
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if jwt == nil {
		panic("jwt cannot be nil")
	}
	if verifier == nil {
		panic("verifier cannot be nil")
	}
	if denylist == nil {
		panic("denylist cannot be nil")
	}

	return &Service{
		userStore: userStore,
		jwt:       jwt,
		verifier:  verifier,
		denylist:  denylist,
	}
}

// Register creates a new user account and returns it with a fresh token pair.
// Returns store.ErrEmailExists when the email is already registered and
// domain validation errors for malformed input.
func (s *Service) Register(
	ctx context.Context,
	email, displayName, password string,
) (*domain.User, TokenPair, error) {
	user, err := domain.NewUser(email, displayName, password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates an email/password pair and returns the user with a
// fresh token pair. Returns ErrInvalidCredentials for both unknown email and
// wrong password so callers cannot probe for registered addresses.
func (s *Service) Login(
	ctx context.Context,
	email, password string,
) (*domain.User, TokenPair, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. Revoked
// tokens are rejected; a denylist outage is logged and treated as not
// revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("denylist check failed, allowing refresh",
			"error", err,
			"token_id", claims.ID)
	} else if revoked {
		return TokenPair{}, ErrRevokedRefreshToken
	}

	user, err := s.userStore.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}

	return s.issuePair(ctx, user)
}

// Logout revokes the presented refresh token for its remaining lifetime.
// An already expired token is a successful no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrExpiredRefreshToken) {
			return nil
		}
		return err
	}

	ttl := time.Until(claims.ExpiresAt)
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	logger.FromContext(ctx).Info("refresh token revoked",
		"user_id", claims.UserID,
		"token_id", claims.ID)
	return nil
}

func (s *Service) issuePair(ctx context.Context, user *domain.User) (TokenPair, error) {
	access, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
