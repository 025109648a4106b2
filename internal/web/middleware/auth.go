package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/welltrack/internal/config"
	"github.com/JonMunkholm/welltrack/internal/logging"
)

// APIKeyAuth guards the JSON API with the X-API-Key header. With
// RequireAPIKey off every request passes; with it on and no keys
// configured every request is refused.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			log := logging.WithFields(r.Context(),
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			switch {
			case key == "":
				log.Warn("auth: missing API key")
				denied(w, http.StatusUnauthorized, "missing API key", "AUTH001")
			case !validKey(key, cfg.APIKeys):
				log.Warn("auth: invalid API key")
				denied(w, http.StatusForbidden, "invalid API key", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// validKey compares against every configured key so timing does not reveal
// which one matched.
func validKey(key string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}

func denied(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "message": msg, "code": code})
}
