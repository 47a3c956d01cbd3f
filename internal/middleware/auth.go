package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/pkg"
)

type sessionChecker interface {
	GetSession(ctx context.Context, token string) (*auth.Session, error)
}

var openPaths = map[string]bool{
	"/":           true,
	"/version":    true,
	"/ping":       true,
	"/a/login":    true,
	"/a/register": true,
}

// AuthMiddleware resolves the X-FITLOG-TOKEN header to a live session
// and stores it in the request context. Requests without a valid
// session are rejected, except for the open endpoints and CORS
// preflight requests.
func AuthMiddleware(loginChecker sessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if openPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/metrics") {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("X-FITLOG-TOKEN")
			if token == "" {
				pkg.SendJSONError(w, "no token", http.StatusUnauthorized)
				return
			}

			session, err := loginChecker.GetSession(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionNotFound) {
					pkg.SendJSONError(w, "no session", http.StatusUnauthorized)
					return
				}
				log.Errorf("auth middleware: get session: %s", err)
				pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
				return
			}

			r = r.WithContext(auth.ContextWithSession(r.Context(), session))
			next.ServeHTTP(w, r)
		})
	}
}
