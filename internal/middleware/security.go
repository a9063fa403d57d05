package middleware

import "net/http"

// SecurityHeaders sets the response headers every JourneyHub response
// carries, before the handler runs so error responses get them too.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=()")
		next.ServeHTTP(w, r)
	})
}
