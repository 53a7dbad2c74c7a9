package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingActor = errors.New("admin identity is required")

// resolveAdminActor returns the id recorded against an admin command. With a
// JWT secret configured only a valid HS256 bearer token is accepted and its
// subject is the actor. Without one the X-User-Id header is trusted.
func (s *Server) resolveAdminActor(r *http.Request) (string, error) {
	secret := strings.TrimSpace(s.options.JWTSecret)
	if secret == "" {
		actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if actorID == "" {
			return "", fmt.Errorf("%w: X-User-Id header is required", errMissingActor)
		}
		return actorID, nil
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: bearer token is required", errMissingActor)
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid admin token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", errMissingActor)
	}
	return strings.TrimSpace(subject), nil
}
