package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/config"
)

// JWTValidator validates the HS256 tokens issued by the intranet gateway
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator from the configured signing secret
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{secret: []byte(cfg.JWTSecret)}
}

// ValidateToken parses and validates a token, returning the user identity
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userCtx := &UserContext{
		DisplayName: extractString(claims, "name", "display_name"),
		Email:       extractString(claims, "email", "preferred_username"),
	}

	if sub := extractString(claims, "sub", "oid"); sub != "" {
		if id, err := uuid.Parse(sub); err == nil {
			userCtx.UserID = id
		}
	}

	if userCtx.DisplayName == "" && userCtx.Email == "" {
		return nil, fmt.Errorf("token carries no identity claims")
	}

	return userCtx, nil
}

// extractString returns the first non-empty string claim among keys
func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := claims[key].(string); ok && val != "" {
			return val
		}
	}
	return ""
}
