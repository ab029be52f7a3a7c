package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docflow/internal/apperr"
)

// TokenManager signs and verifies the bearer tokens issued at register/login.
// The role claim embedded in a token is trusted for authorization until the
// token expires; a role change after issuance is not visible to tokens
// already in the wild.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (tm *TokenManager) Sign(userID uint, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"role": role,
		"exp":  now.Add(tm.ttl).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) Verify(tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Auth("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, apperr.Auth("invalid or expired token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.Auth("invalid token claims")
	}
	sub, _ := mapc["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return Claims{}, apperr.Auth("invalid token subject")
	}
	role, _ := mapc["role"].(string)
	return Claims{UserID: uint(id), Role: role}, nil
}
