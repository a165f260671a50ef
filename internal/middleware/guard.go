package middleware

import (
	"net/http"
	"strings"
)

// View routes
const (
	RootPath      = "/"
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	ConnectPath   = "/connect-calendar"
	SharedPrefix  = "/shared/"
)

// Decision is the outcome of routing a view request. An empty Redirect
// lets the request through.
type Decision struct {
	Redirect string
}

// Allowed reports whether the request may proceed
func (d Decision) Allowed() bool { return d.Redirect == "" }

// Resolve decides where a view request goes given whether a session is present
func Resolve(present bool, path string) Decision {
	switch {
	case path == RootPath:
		if present {
			return Decision{Redirect: DashboardPath}
		}
		return Decision{Redirect: LoginPath}
	case path == LoginPath:
		if present {
			return Decision{Redirect: DashboardPath}
		}
	case isProtected(path):
		if !present {
			return Decision{Redirect: LoginPath}
		}
	}
	return Decision{}
}

func isProtected(path string) bool {
	if path == DashboardPath || path == ConnectPath {
		return true
	}
	return strings.HasPrefix(path, SharedPrefix) && len(path) > len(SharedPrefix)
}

// Guard redirects view requests according to Resolve. It expects
// LoadSession to have run.
func Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		if path == "" {
			path = RootPath
		}

		d := Resolve(GetSession(r.Context()) != nil, path)
		if !d.Allowed() {
			http.Redirect(w, r, d.Redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
