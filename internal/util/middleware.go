package util

import (
	"net/http"
	"strings"
)

// LegacyApiRewrite maps the unversioned /api/... paths used by older dashboard
// builds onto /api/v1/...
func LegacyApiRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/api/"

		if strings.HasPrefix(r.URL.Path, prefix) && !strings.HasPrefix(r.URL.Path, "/api/v1/") {
			r.URL.Path = "/api/v1/" + strings.TrimPrefix(r.URL.Path, prefix)
		}

		next.ServeHTTP(w, r)
	})
}
