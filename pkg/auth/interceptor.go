package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/getgraphd/graphd/pkg/graphqlws"
)

// Common errors for the auth package.
var (
	// ErrTokenMissing indicates the connection_init payload carried no token.
	ErrTokenMissing = errors.New("token missing from connection payload")
	// ErrTokenInvalid indicates the token failed validation.
	ErrTokenInvalid = errors.New("token is invalid")
)

// PayloadTokenKey is the connection_init payload key the token is read from.
const PayloadTokenKey = "token"

// TokenInterceptor authenticates connections by validating a JWT carried in
// the connection_init payload. Connections without a valid token are
// rejected, which surfaces to the client as a 4401 close.
type TokenInterceptor struct {
	graphqlws.NopInterceptor

	secret []byte
}

// NewTokenInterceptor creates an interceptor validating HMAC-SHA256 tokens
// signed with secret.
func NewTokenInterceptor(secret []byte) *TokenInterceptor {
	return &TokenInterceptor{secret: secret}
}

// OnConnectionInit validates payload["token"] and returns the authenticated
// subject in the ack payload.
func (i *TokenInterceptor) OnConnectionInit(_ context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := payload[PayloadTokenKey].(string)
	if !ok || raw == "" {
		return nil, ErrTokenMissing
	}

	claims, err := i.validate(raw)
	if err != nil {
		return nil, err
	}

	ack := map[string]interface{}{
		"authenticatedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		ack["user"] = sub
	}
	return ack, nil
}

// validate parses and verifies a token string.
func (i *TokenInterceptor) validate(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
