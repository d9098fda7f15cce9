package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/internal/identity"
	pkgauth "github.com/dmoratto/storefront-backend/pkg/auth"
	"github.com/dmoratto/storefront-backend/pkg/config"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller and middleware.
type Service interface {
	Issue(ctx context.Context, customerID int64) (string, error)
	Authenticate(ctx context.Context, credential string) (identity.Record, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Profile(ctx context.Context, customerID int64) (*ProfileResponse, error)
}

type service struct {
	codec     tokenCodec
	directory identity.Directory
	customers customerRepository
	passwords passwordVerifier
	jwtCfg    config.JWTConfig
	now       func() time.Time
}

type tokenCodec interface {
	Encode(claims pkgauth.Claims) (string, error)
	Decode(credential string) (*pkgauth.Claims, error)
}

type customerRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type passwordVerifier interface {
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Codec     tokenCodec
	Directory identity.Directory
	Customers customerRepository
	Passwords passwordVerifier
	JWTConfig config.JWTConfig
	Now       func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("identity directory is required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository is required")
	}
	if params.Passwords == nil {
		return nil, fmt.Errorf("password verifier is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		codec:     params.Codec,
		directory: params.Directory,
		customers: params.Customers,
		passwords: params.Passwords,
		jwtCfg:    params.JWTConfig,
		now:       now,
	}, nil
}

// Issue mints a credential for the given customer. A missing secret or
// non-positive TTL is server misconfiguration and is never papered over
// with a default.
func (s *service) Issue(ctx context.Context, customerID int64) (string, error) {
	if strings.TrimSpace(s.jwtCfg.Secret) == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "credential secret is not configured")
	}
	ttl := s.jwtCfg.TTL()
	if ttl <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "credential TTL is not configured")
	}

	token, err := s.codec.Encode(pkgauth.NewClaims(customerID, s.now(), ttl))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint credential")
	}
	return token, nil
}

// Authenticate resolves a credential into the acting customer. Every failure
// mode surfaces to clients as the same unauthorized error; the wrapped cause
// keeps expired/tampered/unknown distinguishable in logs.
func (s *service) Authenticate(ctx context.Context, credential string) (identity.Record, error) {
	claims, err := s.codec.Decode(credential)
	if err != nil {
		return identity.Record{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidCredentialsMessage)
	}

	now := s.now().Unix()
	if claims.ExpiresAt <= now {
		return identity.Record{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized,
			fmt.Errorf("token expired at %d", claims.ExpiresAt), invalidCredentialsMessage)
	}
	if claims.IssuedAt > now {
		return identity.Record{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized,
			fmt.Errorf("token issued in the future at %d", claims.IssuedAt), invalidCredentialsMessage)
	}

	record, err := s.directory.Lookup(ctx, claims.UserID)
	if err != nil {
		return identity.Record{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup subject")
	}
	if !record.Exists || !record.Active {
		return identity.Record{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized,
			fmt.Errorf("unknown subject %d", claims.UserID), invalidCredentialsMessage)
	}

	return record, nil
}

// Login verifies the email/password pair and issues a fresh credential.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	customer, err := s.customers.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}

	valid, err := s.passwords.Verify(req.Password, customer.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !customer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	token, err := s.Issue(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	if err := s.customers.UpdateLastLogin(ctx, customer.ID, s.now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}

	return &LoginResponse{
		Token:     token,
		UserID:    customer.ID,
		ExpiresIn: int64(s.jwtCfg.TTL().Seconds()),
	}, nil
}

// Profile returns the authenticated customer's own directory record.
func (s *service) Profile(ctx context.Context, customerID int64) (*ProfileResponse, error) {
	record, err := s.directory.Lookup(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
	}
	if !record.Exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return &ProfileResponse{
		ID:          record.ID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		Guest:       record.Guest,
	}, nil
}
