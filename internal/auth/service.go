package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/herbstore-backend/pkg/auth"
	"github.com/angelmondragon/herbstore-backend/pkg/config"
	"github.com/angelmondragon/herbstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service logs the back office account in and out.
type Service interface {
	AdminLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
}

type sessionManager interface {
	Start(ctx context.Context, accessID, subject string, ttl time.Duration) error
	Revoke(ctx context.Context, accessID string) error
}

type passwordHasher interface {
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Admin          config.AdminConfig
	JWTConfig      config.JWTConfig
	Password       config.PasswordConfig
	SessionManager sessionManager
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	admin   config.AdminConfig
	jwtCfg  config.JWTConfig
	session sessionManager
	hasher  passwordHasher
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the admin login service.
func NewService(params ServiceParams) (Service, error) {
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		admin:   params.Admin,
		jwtCfg:  params.JWTConfig,
		session: params.SessionManager,
		hasher:  security.NewHasher(params.Password),
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) AdminLogin(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if !s.admin.Enabled() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	expected := strings.ToLower(strings.TrimSpace(s.admin.Email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(expected)) == 1

	ok, err := s.hasher.Verify(req.Password, s.admin.PasswordHash)
	if err != nil {
		if errors.Is(err, security.ErrInvalidHash) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "admin password hash misconfigured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !emailOK {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if s.logg != nil && s.hasher.NeedsRehash(s.admin.PasswordHash) {
		s.logg.Warn(ctx, "admin.password_hash_outdated")
	}

	token, claims, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		Subject: expected,
		Role:    enums.RoleAdmin,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.session.Start(ctx, claims.ID, expected, s.jwtCfg.TTL()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store admin session")
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		Role:        claims.Role.String(),
	}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke admin session")
	}
	return nil
}
