package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSClient validates RS256 tokens issued by external identity providers,
// using public keys fetched from each issuer's JWKS endpoint. Only tokens
// from configured issuers are accepted.
type JWKSClient struct {
	endpoints map[string]keyfunc.Keyfunc
}

// NewJWKSClient fetches the key sets for every issuer=url pair.
// Returns nil, nil when no endpoints are configured.
func NewJWKSClient(ctx context.Context, endpoints map[string]string) (*JWKSClient, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	client := &JWKSClient{endpoints: make(map[string]keyfunc.Keyfunc, len(endpoints))}
	for issuer, jwksURL := range endpoints {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", issuer, err)
		}
		client.endpoints[issuer] = jwks
	}
	return client, nil
}

// HasIssuer reports whether tokens from issuer are accepted.
func (c *JWKSClient) HasIssuer(issuer string) bool {
	_, ok := c.endpoints[issuer]
	return ok
}

// ValidateToken verifies the signature with the issuer's published keys.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}

		jwks, exists := c.endpoints[claims.Issuer]
		if !exists {
			return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
		}
		return jwks.KeyfuncCtx(context.Background())(token)
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

var _ TokenValidator = (*JWKSClient)(nil)
