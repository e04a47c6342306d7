package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/venuepass/visitor-management/internal/handler"
	"github.com/venuepass/visitor-management/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this to verify that the
	// service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access issues a new
	// access token without rotating.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: a valid refresh token
	// in the body identifies the session to end.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "STAFF"))
	auth.GET("/me", a.Me)

	// Also reachable without a JWT, with a refresh token in the body.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers the visitor-facing endpoints.  These are the
// URLs printed QR codes resolve to, so no authentication is applied.
// GET /entry?premise_id=<id>&v=<iteration> is a frozen wire contract.
// The rate limiter shields the open endpoints; the response cache is
// applied only to the form itself, never to status delivery.
func RegisterPublic(e *echo.Echo, i *handler.IntakeHandler, s *handler.StatusHandler, r *handler.RegistrationHandler, limiter, cache echo.MiddlewareFunc) {
	e.GET("/entry", i.Form, limiter, cache)
	e.POST("/entry", i.Submit, limiter)
	e.GET("/entry/:uuid/status", s.Status, limiter)
	e.GET("/entry/:uuid/stream", s.Stream)
	e.POST("/v1/visitors/register", r.Register, limiter)
}

// RegisterOwner registers the dashboard endpoints used by owner and
// staff accounts: premise registration and settings, the form builder
// with its QR code, the pending-entry queue with the decision actions
// and the visit log with manual check-out.
func RegisterOwner(e *echo.Echo, jwtSecret string, p *handler.PremiseHandler, f *handler.FieldConfigHandler, adm *handler.AdmissionHandler) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OWNER", "STAFF"))

	// Premises and settings.
	g.POST("/premises", p.Create)
	g.GET("/premises", p.List)
	g.GET("/premises/:id", p.Get)
	g.PATCH("/premises/:id", p.Patch)

	// Intake-form builder and QR issuance.
	g.GET("/premises/:id/fields", f.GetFields)
	g.PUT("/premises/:id/fields", f.PutFields)
	g.GET("/premises/:id/qr", f.QRInfo)
	g.GET("/premises/:id/qr.png", f.QRImage)

	// Dashboard lists.
	g.GET("/premises/:id/entries", adm.ListEntries)
	g.GET("/premises/:id/visits", adm.ListVisits)

	// Decisions on one entry.
	g.GET("/entries/:id/review", adm.Review)
	g.POST("/entries/:id/approve", adm.Approve)
	g.POST("/entries/:id/deny", adm.Deny)
	g.POST("/entries/:id/resolve/approve", adm.ResolveApprove)
	g.POST("/entries/:id/resolve/deny", adm.ResolveDeny)

	// Manual check-out of an open visit.
	g.POST("/visits/:id/checkout", adm.Checkout)
}
