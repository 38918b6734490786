package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RequireAdmin guards the admin API with a bearer key checked against a
// bcrypt hash. With no hash configured the API is disabled.
func RequireAdmin(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeJSONError(w, http.StatusNotFound, "admin api disabled")
				return
			}

			key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || key == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSONError(w, http.StatusUnauthorized, "missing bearer key")
				return
			}

			err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key))
			if err != nil {
				slog.Warn("admin api key rejected", "ip", clientIP(r), "route", r.Pattern)
				writeJSONError(w, http.StatusUnauthorized, "invalid bearer key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
