package session

import (
	"encoding/json"
	"net/http"
)

// ForbiddenMessage is the exact body the API returns when a protected
// route is hit without a valid session. Clients match on this string.
const ForbiddenMessage = "403 Forbidden error."

// RequireAuth gates a route on a valid session. Requests without one get
// 403 with a JSON error body; requests with one proceed with the claims
// attached to the context.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Resolve(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": ForbiddenMessage})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}
