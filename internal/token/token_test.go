package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	now := time.Now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	return signed
}

func TestDecodeSubject(t *testing.T) {
	credential := signedToken(t, "alice")
	if got := Subject(credential); got != "alice" {
		t.Fatalf("expected subject alice, got %q", got)
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	// The last segment is advisory only; tampering must not matter here.
	credential := signedToken(t, "alice")
	tampered := credential[:len(credential)-4] + "AAAA"
	if got := Subject(tampered); got != "alice" {
		t.Fatalf("expected subject alice from tampered signature, got %q", got)
	}
}

func TestDecodeMalformed(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`))
	cases := map[string]string{
		"empty":           "",
		"no dots":         "nonsense",
		"two segments":    header + ".payload",
		"four segments":   "a.b.c.d",
		"invalid base64":  header + ".!!!.sig",
		"invalid payload": header + "." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig",
	}
	for name, credential := range cases {
		if _, ok := Decode(credential); ok {
			t.Fatalf("%s: expected decode failure", name)
		}
		if got := Subject(credential); got != "" {
			t.Fatalf("%s: expected empty subject, got %q", name, got)
		}
	}
}

func TestDecodeWithoutSubject(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	claims, ok := Decode(signed)
	if !ok {
		t.Fatalf("expected decode to succeed")
	}
	if claims.Subject != "" {
		t.Fatalf("expected empty subject, got %q", claims.Subject)
	}
}
