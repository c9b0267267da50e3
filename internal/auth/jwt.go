package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/pkg/middleware"
)

const issuer = "backoffice"

// ErrTokenRevoked is returned for a token whose id is on the denylist.
var ErrTokenRevoked = errors.New("token has been revoked")

// Claims represents the JWT claims for an access token. The token id (jti)
// lets a single token be revoked on logout.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// AccessToken is a signed token plus the facts the caller needs to set a
// cookie or answer a login request.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
	now          func() time.Time
}

// NewJWTManager creates a new JWT manager with the given secret and expiry.
func NewJWTManager(secret string, accessExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

// GenerateAccessToken creates a signed HS256 access token.
func (m *JWTManager) GenerateAccessToken(userID, username string, roles []string) (*AccessToken, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.accessExpiry)
	tokenID := uuid.New().String()

	claims := &Claims{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &AccessToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	return claims, nil
}

// Validator returns a middleware.TokenValidator that checks signature and
// expiry, then consults denylist when one is given.
func (m *JWTManager) Validator(denylist repository.TokenDenylist) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		claims, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}

		if denylist != nil && claims.ID != "" {
			revoked, err := denylist.IsRevoked(ctx, claims.ID)
			if err != nil {
				return nil, fmt.Errorf("check token denylist: %w", err)
			}
			if revoked {
				return nil, ErrTokenRevoked
			}
		}

		out := &middleware.Claims{
			UserID:   claims.UserID,
			Username: claims.Username,
			Roles:    claims.Roles,
			TokenID:  claims.ID,
		}
		if claims.ExpiresAt != nil {
			out.ExpiresAt = claims.ExpiresAt.Time
		}
		return out, nil
	}
}
