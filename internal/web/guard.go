// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package web

import (
	"net/http"
	"net/url"
	"path"

	"github.com/gobwas/glob"
	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
)

// RouteClass is how the guard treats a path.
type RouteClass int

// Route classes.
const (
	// RoutePublic is served to everyone.
	RoutePublic RouteClass = iota
	// RouteProtected requires a valid session.
	RouteProtected
	// RouteAuthOnly is for visitors without a session (login, register).
	RouteAuthOnly
)

func (c RouteClass) String() string {
	switch c {
	case RouteProtected:
		return "protected"
	case RouteAuthOnly:
		return "auth-only"
	default:
		return "public"
	}
}

// Verdict is the guard's decision for a request.
type Verdict struct {
	// Redirect is the path to send the client to, or "" to continue.
	Redirect string
}

// Continue reports whether the request proceeds to its handler unmodified.
func (v Verdict) Continue() bool {
	return v.Redirect == ""
}

// Redirect targets.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Decide is the guard's pure decision rule. Protected routes without a
// valid session go to the login page; auth-only routes with a valid session
// go to the dashboard; everything else continues.
func Decide(class RouteClass, tokenValid bool) Verdict {
	switch {
	case class == RouteProtected && !tokenValid:
		return Verdict{Redirect: LoginPath}
	case class == RouteAuthOnly && tokenValid:
		return Verdict{Redirect: DashboardPath}
	default:
		return Verdict{}
	}
}

// Guard classifies request paths with glob patterns. "*" matches within one
// path segment and "**" across segments.
type Guard struct {
	protected []glob.Glob
	authOnly  []glob.Glob
}

// NewGuard compiles the protected and auth-only patterns.
func NewGuard(protected, authOnly []string) (*Guard, error) {
	g := &Guard{}
	var err error
	if g.protected, err = compilePatterns(protected); err != nil {
		return nil, err
	}
	if g.authOnly, err = compilePatterns(authOnly); err != nil {
		return nil, err
	}
	return g, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code("GUARD_INVALID_PATTERN").With("pattern", p).Wrap(err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Classify returns the class of path. Protected patterns take precedence.
func (g *Guard) Classify(path string) RouteClass {
	for _, p := range g.protected {
		if p.Match(path) {
			return RouteProtected
		}
	}
	for _, p := range g.authOnly {
		if p.Match(path) {
			return RouteAuthOnly
		}
	}
	return RoutePublic
}

// ClassifyRequestPath classifies a decoded request path the way the file
// server will resolve it: dot segments and repeated slashes are cleaned, and
// the path is also classified after one more round of unescaping since the
// static middleware unescapes again before opening files. The stricter of
// the two classes wins.
func (g *Guard) ClassifyRequestPath(p string) RouteClass {
	class := g.Classify(cleanPath(p))
	if unescaped, err := url.PathUnescape(p); err == nil && unescaped != p {
		class = stricter(class, g.Classify(cleanPath(unescaped)))
	}
	return class
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func stricter(a, b RouteClass) RouteClass {
	switch {
	case a == RouteProtected || b == RouteProtected:
		return RouteProtected
	case a == RouteAuthOnly || b == RouteAuthOnly:
		return RouteAuthOnly
	default:
		return RoutePublic
	}
}

// Middleware applies Decide to every request. verify checks a session token
// without touching storage; it is only consulted for non-public paths.
func (g *Guard) Middleware(verify func(token string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			class := g.ClassifyRequestPath(c.Request().URL.Path)
			if class == RoutePublic {
				return next(c)
			}

			valid := false
			if token := sessionToken(c); token != "" {
				valid = verify(token)
			}

			if v := Decide(class, valid); !v.Continue() {
				return c.Redirect(http.StatusTemporaryRedirect, v.Redirect)
			}
			return next(c)
		}
	}
}
