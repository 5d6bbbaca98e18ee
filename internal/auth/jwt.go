package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims represents the claims we extract from an id_token
type IDTokenClaims struct {
	// Standard claims
	Subject string `json:"sub"`
	Name    string `json:"name"`

	// Identity platform claims
	PreferredUsername string `json:"preferred_username"`
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
}

// DisplayName returns the best available name for the account
func (c *IDTokenClaims) DisplayName() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}

// ExtractIDTokenClaims extracts account information from a token response's
// id_token without signature verification. The token came straight from the
// provider over TLS; it is only used for display, never for authorization.
func ExtractIDTokenClaims(token *TokenResponse) (*IDTokenClaims, error) {
	if token.IDToken == "" {
		return nil, fmt.Errorf("no id_token in response")
	}
	return extractClaims(token.IDToken)
}

func extractClaims(tokenString string) (*IDTokenClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	parsed, _, err := parser.ParseUnverified(tokenString, &jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(*jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &IDTokenClaims{}
	if sub, ok := (*mapClaims)["sub"].(string); ok {
		claims.Subject = sub
	}
	if name, ok := (*mapClaims)["name"].(string); ok {
		claims.Name = name
	}
	if upn, ok := (*mapClaims)["preferred_username"].(string); ok {
		claims.PreferredUsername = upn
	}
	if oid, ok := (*mapClaims)["oid"].(string); ok {
		claims.ObjectID = oid
	}
	if tid, ok := (*mapClaims)["tid"].(string); ok {
		claims.TenantID = tid
	}

	return claims, nil
}
