package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const outletSessionCookie = "outlet_session"

// Authorizer validates the signed tokens each channel presents. Token
// issuance happens elsewhere; this only checks capability claims.
type Authorizer struct {
	secret []byte
}

func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret)}
}

type sessionClaims struct {
	Role       string `json:"role"`
	OutletSlug string `json:"outlet_slug,omitempty"`
	jwt.RegisteredClaims
}

func (a *Authorizer) parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// OutletSession validates the POS staff session cookie and returns the
// outlet slug it is scoped to.
func (a *Authorizer) OutletSession(r *http.Request) (string, error) {
	cookie, err := r.Cookie(outletSessionCookie)
	if err != nil {
		return "", fmt.Errorf("missing outlet session")
	}
	claims, err := a.parse(cookie.Value)
	if err != nil {
		return "", err
	}
	if claims.Role != "outlet" || claims.OutletSlug == "" {
		return "", fmt.Errorf("not an outlet session")
	}
	return claims.OutletSlug, nil
}

// AdminSession validates the admin bearer token and returns the admin
// subject for audit attribution.
func (a *Authorizer) AdminSession(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	claims, err := a.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Role != "admin" {
		return "", fmt.Errorf("not an admin session")
	}
	return claims.Subject, nil
}

// AmbassadorSession validates an ambassador bearer token and returns the
// ambassador's ID.
func (a *Authorizer) AmbassadorSession(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	claims, err := a.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Role != "ambassador" || claims.Subject == "" {
		return "", fmt.Errorf("not an ambassador session")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("malformed authorization header")
	}
	return token, nil
}
