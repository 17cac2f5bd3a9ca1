package router // route registration for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/gym-class-booking/internal/handler"
	"github.com/iliyamo/gym-class-booking/internal/middleware"
)

// RegisterRoutes registers routes that never require authentication:
// the health check for load balancers and the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers authentication routes.  Unauthenticated token
// operations live under /v1/auth; /v1/me sits behind the JWT
// middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works without the JWT middleware so an expired access
	// token can still end sessions; see AuthHandler.Logout.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "MEMBER"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated timetable browse
// endpoints.  The cache middleware, when enabled, serves repeated
// timetable reads straight from Redis.
func RegisterPublic(e *echo.Echo, s *handler.SessionBrowseHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/sessions")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("", s.List)
	g.GET("/:id", s.Get)
}

// RegisterBooking registers the member-facing booking and check-in
// endpoints.  All of them require a valid access token; check-in
// terminals authenticate as staff accounts with the ADMIN role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, ci *handler.CheckInHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "MEMBER"))

	auth.POST("/sessions/:id/bookings", b.Book)
	auth.DELETE("/bookings/:id", b.Cancel)
	auth.GET("/bookings/:id", b.Get)
	auth.GET("/my-bookings", b.MyBookings)
	auth.GET("/me/qr", ci.QRCode)

	desk := e.Group("/v1")
	desk.Use(middleware.JWTAuth(jwtSecret))
	desk.Use(middleware.RequireRole("ADMIN"))
	desk.POST("/checkin", ci.CheckIn)
}

// RegisterAdmin registers the timetable management endpoints, ADMIN
// role only.
func RegisterAdmin(e *echo.Echo, a *handler.AdminSessionHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.GET("/sessions", a.List)
	g.POST("/sessions", a.Create)
	g.PUT("/sessions/:id", a.Update)
	g.PATCH("/sessions/:id/active", a.SetActive)
}
