package middleware

import (
	"net/http"
)

// TokenHeader is the header carrying the session token.
const TokenHeader = "X-Session-Token"

// TokenValidator checks a presented session token.
type TokenValidator interface {
	Validate(token string) bool
}

// unauthorizedBody is identical for missing and wrong tokens.
const unauthorizedBody = `{"error":"Unauthorized","message":"Invalid or missing session token"}`

// TokenAuth rejects requests that do not carry the session token as the
// "token" query parameter or the X-Session-Token header.
func TokenAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = r.Header.Get(TokenHeader)
			}

			if !v.Validate(token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(unauthorizedBody))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORS allows the upload page and LAN tools on other origins to call the API.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TokenHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
