package auth

import (
	"encoding/json"
	"net/http"
)

// QueryParam is the URL query parameter accepted in place of the header.
// Browsers cannot set headers on a WebSocket handshake.
const QueryParam = "api_key"

// Middleware wraps next with API key checks. The key is read from header, or
// from the api_key query parameter when the header is absent.
func Middleware(mode, header, key string, next http.Handler) http.Handler {
	if !enabled(mode, key) {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if got == "" {
			got = r.URL.Query().Get(QueryParam)
		}
		if got == "" || !equal(got, key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}
