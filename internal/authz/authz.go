// Package authz resolves the reviewer identity behind an HTTP API request.
package authz

import (
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when no reviewer identity can be established.
var ErrUnauthorized = errors.New("unauthorized")

const devBypassHeader = "x-user-sub"

// headerLookup returns the value of a header key from a map.
func headerLookup(h map[string]string, key string) string {
	if len(h) == 0 {
		return ""
	}
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// actorFromClaims prefers a human-readable identity over the opaque subject.
func actorFromClaims(get func(string) string) string {
	for _, k := range []string{"email", "cognito:username", "username", "sub"} {
		if v := strings.TrimSpace(get(k)); v != "" {
			return v
		}
	}
	return ""
}

// actorFromAuthHeader reads the bearer token's claims without verifying it.
// The JWT authorizer in front of the API has already verified the signature.
func actorFromAuthHeader(headers map[string]string) string {
	auth := strings.TrimSpace(headerLookup(headers, "Authorization"))
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = strings.TrimSpace(auth[len("bearer "):])
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(auth, claims); err != nil {
		return ""
	}
	return actorFromClaims(func(k string) string {
		s, _ := claims[k].(string)
		return s
	})
}

// FromAPIGWv2 returns the reviewer identity of an HTTP API (v2) request.
func FromAPIGWv2(req events.APIGatewayV2HTTPRequest, devBypass bool) (string, error) {
	// 0) Dev bypass header
	if devBypass {
		if sub := strings.TrimSpace(headerLookup(req.Headers, devBypassHeader)); sub != "" {
			return sub, nil
		}
	}

	// 1) Authorizer context (JWT claims or Lambda authorizer map)
	if a := req.RequestContext.Authorizer; a != nil {
		if a.JWT != nil {
			if actor := actorFromClaims(func(k string) string { return a.JWT.Claims[k] }); actor != "" {
				return actor, nil
			}
		}
		if a.Lambda != nil {
			if actor := actorFromClaims(func(k string) string {
				s, _ := a.Lambda[k].(string)
				return s
			}); actor != "" {
				return actor, nil
			}
		}
	}

	// 2) Fallback: bearer token claims
	if actor := actorFromAuthHeader(req.Headers); actor != "" {
		return actor, nil
	}

	return "", ErrUnauthorized
}
