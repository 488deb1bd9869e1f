package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/ctxutil"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

const (
	adminSubject = "admin"
	adminIssuer  = "biomarker-backend"
)

type AuthConfig struct {
	// JWTSecret verifies bearer tokens issued by the auth provider (HS256).
	JWTSecret          string
	AdminPassword      string
	AdminPasswordHash  string
	AdminSessionSecret string
	AdminSessionTTL    time.Duration
}

// ProviderClaims is the subset of the auth provider's access token we read.
type ProviderClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// VerifyBearer validates a provider access token and returns the caller.
	VerifyBearer(token string) (*ctxutil.RequestData, error)
	AdminLogin(password string) (token string, expiresAt time.Time, err error)
	VerifyAdminSession(token string) error
	AdminSessionTTL() time.Duration
}

type authService struct {
	log *logger.Logger
	cfg AuthConfig
	now func() time.Time
}

func NewAuthService(baseLog *logger.Logger, cfg AuthConfig) AuthService {
	if cfg.AdminSessionTTL <= 0 {
		cfg.AdminSessionTTL = 8 * time.Hour
	}
	return &authService{log: baseLog.With("service", "AuthService"), cfg: cfg, now: time.Now}
}

func (as *authService) AdminSessionTTL() time.Duration { return as.cfg.AdminSessionTTL }

func (as *authService) VerifyBearer(tokenString string) (*ctxutil.RequestData, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, pkgerrors.ErrUnauthorized
	}
	if as.cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: SUPABASE_JWT_SECRET", pkgerrors.ErrMissingConfig)
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &ProviderClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*ProviderClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", pkgerrors.ErrUnauthorized)
	}
	return &ctxutil.RequestData{UserID: userID, Token: tokenString}, nil
}

func (as *authService) AdminLogin(password string) (string, time.Time, error) {
	switch {
	case as.cfg.AdminPasswordHash != "":
		if err := bcrypt.CompareHashAndPassword([]byte(as.cfg.AdminPasswordHash), []byte(password)); err != nil {
			if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				as.log.Error("admin password hash unusable", "error", err)
			}
			return "", time.Time{}, ErrInvalidCredentials
		}
	case as.cfg.AdminPassword != "":
		if subtle.ConstantTimeCompare([]byte(as.cfg.AdminPassword), []byte(password)) != 1 {
			return "", time.Time{}, ErrInvalidCredentials
		}
	default:
		return "", time.Time{}, fmt.Errorf("%w: ADMIN_PASSWORD", pkgerrors.ErrMissingConfig)
	}
	secret := as.sessionSecret()
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("%w: SUPABASE_SERVICE_ROLE_KEY", pkgerrors.ErrMissingConfig)
	}
	now := as.now()
	expires := now.Add(as.cfg.AdminSessionTTL)
	claims := AdminClaims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			Issuer:    adminIssuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin session: %w", err)
	}
	as.log.Info("admin session issued", "expires_at", expires)
	return token, expires, nil
}

func (as *authService) VerifyAdminSession(tokenString string) error {
	secret := as.sessionSecret()
	if tokenString == "" || secret == "" {
		return pkgerrors.ErrForbidden
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(as.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrForbidden, err)
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid || claims.Role != adminSubject {
		return pkgerrors.ErrForbidden
	}
	return nil
}

func (as *authService) sessionSecret() string {
	if as.cfg.AdminSessionSecret != "" {
		return as.cfg.AdminSessionSecret
	}
	return as.cfg.JWTSecret
}
