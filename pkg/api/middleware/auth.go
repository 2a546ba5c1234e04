package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
)

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	Validator auth.TokenValidator
	// PublicPrefixes are path prefixes served without a token, such as
	// health probes and metrics.
	PublicPrefixes []string
	// OnFailure, when set, runs for every rejected request.
	OnFailure func(r *http.Request, err error)
}

func (c AuthConfig) public(path string) bool {
	for _, p := range c.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var errMissingToken = errors.New("missing bearer token")

// JWTAuth requires a valid bearer token outside the public prefixes and
// stores the caller's claims in the request context. A nil Validator
// disables the check.
func JWTAuth(cfg AuthConfig, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.public(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			reject := func(err error, msg string) {
				logger.Warn("authentication failed",
					logging.Path(r.URL.Path),
					logging.String("request_id", GetRequestID(r)),
					logging.Error(err),
				)
				if cfg.OnFailure != nil {
					cfg.OnFailure(r, err)
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="pipenet"`)
				WriteError(w, r, http.StatusUnauthorized, msg)
			}

			token, ok := BearerToken(r)
			if !ok {
				reject(errMissingToken, "missing bearer token")
				return
			}

			claims, err := cfg.Validator.ValidateToken(r.Context(), token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "token has expired"
				}
				reject(err, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
