package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/habilitation-management/internal"
)

const refreshTokenType = "refresh"

// AccessClaims carries the identity snapshot embedded in an access token.
type AccessClaims struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the user reference plus a token type marker so
// a refresh token can never pass as an access token.
type RefreshClaims struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the access/refresh token pair. Both tokens
// are signed with the same HMAC secret; they differ in lifetime and claims.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (ti *TokenIssuer) RefreshTokenTTL() time.Duration {
	return ti.refreshTTL
}

// GenerateTokenPair mints both tokens for an authenticated user. Persisting
// the refresh token is the caller's decision, not a side effect here.
func (ti *TokenIssuer) GenerateTokenPair(u *User) (TokenPair, error) {
	accessToken, err := ti.GenerateAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := ti.generateRefreshToken(u)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (ti *TokenIssuer) GenerateAccessToken(u *User) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		ID:        u.ID,
		UUID:      u.UUID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.UUID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti *TokenIssuer) generateRefreshToken(u *User) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		ID:        u.ID,
		UUID:      u.UUID,
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.UUID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// VerifyAccess checks signature and expiry and returns the embedded claims.
// Failures classify into the two unauthenticated kinds: expired or malformed.
func (ti *TokenIssuer) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ti.keyFunc)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !token.Valid {
		return nil, internal.ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and the refresh token type marker.
func (ti *TokenIssuer) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ti.keyFunc)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !token.Valid || claims.TokenType != refreshTokenType {
		return nil, internal.ErrTokenMalformed
	}
	return claims, nil
}

func (ti *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return ti.secret, nil
}

func classifyTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return internal.ErrTokenExpired
	}
	return internal.ErrTokenMalformed
}
