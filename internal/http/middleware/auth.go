package middlewarex

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"charipay/internal/config"
)

// AdminAuth guards the admin routes with a static bearer token. An
// unset token disables the routes entirely rather than leaving them
// open.
func AdminAuth(cfg config.Cfg) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Sec.AdminToken == "" {
				http.Error(w, "admin API disabled", http.StatusForbidden)
				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Sec.AdminToken)) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
