// Package token extracts display claims from a bearer credential without
// verifying it. The backend is the sole authority on credential validity;
// nothing here may be used for an authorization decision.
package token

import (
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

// Decode splits the credential into its three dot-separated segments and
// decodes the middle one. Any malformation (segment count, base64, JSON)
// yields ok=false; Decode never fails any other way.
func Decode(credential string) (Claims, bool) {
	if credential == "" {
		return Claims{}, false
	}
	claims := Claims{}
	if _, _, err := parser.ParseUnverified(credential, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}

// Subject returns the credential's subject claim, or "" when the credential
// does not decode or carries no subject.
func Subject(credential string) string {
	claims, ok := Decode(credential)
	if !ok {
		return ""
	}
	return claims.Subject
}
