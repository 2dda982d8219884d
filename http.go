package authclient

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// RouteGuard gates UI routes on the local session state. Rejected requests
// have their original URL preserved in a short-lived cookie so a successful
// login can return the user to where they were headed.
type RouteGuard struct {
	session SessionReader
	cfg     Config
	Logger  Logger
}

func NewRouteGuard(session SessionReader, cfg Config) *RouteGuard {
	return &RouteGuard{
		session: session,
		cfg:     cfg,
		Logger:  defLogger{},
	}
}

// RequiresAuth lets authenticated sessions through; everyone else is
// redirected to the login route with the rejected URL preserved.
func (g *RouteGuard) RequiresAuth() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.session.IsAuthenticated() {
				return hf(ctx)
			}

			g.Logger.Info("guarding %s, session not authenticated", ctx.OriginalURL())
			g.SetRedirect(ctx)

			return ctx.Redirect(g.cfg.GetLoginRoute(), g.redirectStatus(ctx))
		}
	}
}

// GuestOnly keeps authenticated users off guest-only routes (login, register,
// password reset) by bouncing them back to the preserved route or the default.
func (g *RouteGuard) GuestOnly() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return hf(ctx)
			}
			return ctx.Redirect(g.GetRedirectOrDefault(ctx), g.redirectStatus(ctx))
		}
	}
}

// GetRedirect pops the preserved route, falling back to def.
func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault pops the preserved route, trying the referer header
// before settling on the configured default route.
func (g *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.cfg.GetDefaultRoute()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect preserves the rejected URL in a short-lived cookie.
func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.Logger.Info("setting redirect cookie %s to %s", rejectedRoute, ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) redirectStatus(ctx router.Context) int {
	if ctx.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (g *RouteGuard) cookieDel(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
