package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// AuthService extracts and validates the bearer token on a request.
type AuthService interface {
	// ValidateRequest reads "Authorization: Bearer <token>" and returns the
	// validated claims with the raw token.
	ValidateRequest(r *http.Request) (*Claims, string, error)
}

type authService struct {
	local    *TokenIssuer
	external *JWKSClient
	logger   *zap.Logger
}

// NewAuthService creates an AuthService. external may be nil when no
// identity provider is configured.
func NewAuthService(local *TokenIssuer, external *JWKSClient, logger *zap.Logger) AuthService {
	return &authService{
		local:    local,
		external: external,
		logger:   logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, "", ErrMissingAuthorization
	}

	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		s.logger.Debug("Invalid Authorization header format", zap.String("path", r.URL.Path))
		return nil, "", ErrInvalidAuthFormat
	}

	validator := s.validatorFor(tokenString)
	claims, err := validator.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, "", err
	}

	return claims, tokenString, nil
}

// validatorFor routes a token to the external JWKS client when its
// (unverified) issuer belongs to a configured identity provider.
func (s *authService) validatorFor(tokenString string) TokenValidator {
	if s.external == nil {
		return s.local
	}
	var peek Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &peek); err != nil {
		return s.local
	}
	if peek.Issuer != s.local.Issuer() && s.external.HasIssuer(peek.Issuer) {
		return s.external
	}
	return s.local
}

var _ AuthService = (*authService)(nil)
