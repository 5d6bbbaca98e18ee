package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// unsignedJWT builds a token with the given claims and a junk signature.
// Extraction never verifies signatures, so this is enough.
func unsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	sig := base64.RawURLEncoding.EncodeToString([]byte("sig"))
	return header + "." + body + "." + sig
}

func TestExtractIDTokenClaims(t *testing.T) {
	idToken := unsignedJWT(t, map[string]interface{}{
		"sub":                "subject-1",
		"name":               "Ada Lovelace",
		"preferred_username": "ada@example.com",
		"oid":                "oid-1",
		"tid":                "tenant-1",
	})

	claims, err := ExtractIDTokenClaims(&TokenResponse{IDToken: idToken})
	if err != nil {
		t.Fatalf("ExtractIDTokenClaims() error = %v", err)
	}

	if claims.PreferredUsername != "ada@example.com" {
		t.Errorf("PreferredUsername = %q", claims.PreferredUsername)
	}
	if claims.Name != "Ada Lovelace" {
		t.Errorf("Name = %q", claims.Name)
	}
	if claims.ObjectID != "oid-1" || claims.TenantID != "tenant-1" {
		t.Errorf("oid/tid = %q/%q", claims.ObjectID, claims.TenantID)
	}
	if claims.DisplayName() != "ada@example.com" {
		t.Errorf("DisplayName() = %q", claims.DisplayName())
	}
}

func TestExtractIDTokenClaims_DisplayNameFallbacks(t *testing.T) {
	t.Run("name when no username", func(t *testing.T) {
		idToken := unsignedJWT(t, map[string]interface{}{
			"sub":  "subject-1",
			"name": "Ada Lovelace",
		})
		claims, err := ExtractIDTokenClaims(&TokenResponse{IDToken: idToken})
		if err != nil {
			t.Fatal(err)
		}
		if claims.DisplayName() != "Ada Lovelace" {
			t.Errorf("DisplayName() = %q", claims.DisplayName())
		}
	})

	t.Run("subject as last resort", func(t *testing.T) {
		idToken := unsignedJWT(t, map[string]interface{}{"sub": "subject-1"})
		claims, err := ExtractIDTokenClaims(&TokenResponse{IDToken: idToken})
		if err != nil {
			t.Fatal(err)
		}
		if claims.DisplayName() != "subject-1" {
			t.Errorf("DisplayName() = %q", claims.DisplayName())
		}
	})
}

func TestExtractIDTokenClaims_Missing(t *testing.T) {
	if _, err := ExtractIDTokenClaims(&TokenResponse{}); err == nil {
		t.Error("expected error for missing id_token")
	}
}

func TestExtractIDTokenClaims_Malformed(t *testing.T) {
	if _, err := ExtractIDTokenClaims(&TokenResponse{IDToken: "not-a-jwt"}); err == nil {
		t.Error("expected error for malformed token")
	}
}
