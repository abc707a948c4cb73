package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ServiceKey rejects requests whose bearer token is not key. An empty key
// disables the check, which is how the row store runs on a trusted network.
func ServiceKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"success":false,"error":"invalid service key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
