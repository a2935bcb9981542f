package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// ParseAPIKeys turns "public:private" entries into a lookup table.
// Malformed entries are skipped.
func ParseAPIKeys(pairs []string) map[string]string {
	keys := make(map[string]string, len(pairs))
	for _, p := range pairs {
		pub, priv, ok := strings.Cut(p, ":")
		if !ok || pub == "" || priv == "" {
			continue
		}
		keys[pub] = priv
	}
	return keys
}

// BasicAuthMiddleware validates the public/private key pair sent as HTTP
// basic credentials. If keys is empty, authentication is disabled.
func BasicAuthMiddleware(keys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			pub, priv, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="docquery"`)
				writeError(w, http.StatusUnauthorized, "missing basic credentials")
				return
			}

			want, known := keys[pub]
			if !known || subtle.ConstantTimeCompare([]byte(want), []byte(priv)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
