package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/medease/internal/handlers"
	"github.com/BruksfildServices01/medease/internal/live"
	"github.com/BruksfildServices01/medease/internal/middleware"
)

type Deps struct {
	Stores  middleware.StoreSource
	Visitor middleware.VisitorConfig
	// CORSOrigins may call /api cross-origin; pages are never shared.
	CORSOrigins []string
	Limiter *middleware.RateLimiter
	Hub     *live.Hub
	Pages   *handlers.PageHandler
	API     *handlers.APIHandler
	Logger  zerolog.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestLogger(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	visitor := middleware.VisitorMiddleware(d.Stores, d.Visitor)
	limited := middleware.RateLimit(d.Limiter)

	// ======================================================
	// 🌍 PAGES (HTML)
	// ======================================================
	web := r.Group("/")
	web.Use(middleware.SecurityHeaders(), visitor)
	{
		web.GET("/", d.Pages.Home)
		web.GET("/about", d.Pages.About)
		web.GET("/departments", d.Pages.Departments)

		web.GET("/login", d.Pages.LoginPage)
		web.POST("/login", limited, d.Pages.Login)
		web.GET("/register", d.Pages.RegisterPage)
		web.POST("/register", limited, d.Pages.Register)
		web.POST("/logout", d.Pages.Logout)

		web.GET("/book", d.Pages.BookPage)
		web.POST("/book", d.Pages.Book)

		web.GET("/my-appointments", d.Pages.MyAppointments)
		web.POST("/appointments/:id/cancel", d.Pages.Cancel)

		web.GET("/ticket", d.Pages.Ticket)
		web.GET("/ticket/:id", d.Pages.Ticket)
		web.GET("/ticket/:id/image", d.Pages.TicketImage)
		web.POST("/ticket/:id/archive", d.Pages.TicketArchive)

		web.GET("/ws", d.Hub.Handler(middleware.VisitorKey))
	}

	// Unknown paths get the not-found page inside the layout.
	r.NoRoute(middleware.SecurityHeaders(), visitor, d.Pages.Home)

	// ======================================================
	// 🌐 API (JSON)
	// ======================================================
	api := r.Group("/api")
	api.Use(middleware.CORSMiddleware(d.CORSOrigins), visitor)
	{
		api.OPTIONS("/*path", func(c *gin.Context) {})

		api.POST("/auth/login", limited, d.API.Login)
		api.POST("/auth/register", limited, d.API.Register)
		api.POST("/auth/logout", d.API.Logout)

		api.GET("/me", d.API.Me)

		api.GET("/appointments", d.API.ListAppointments)
		api.POST("/appointments", d.API.CreateAppointment)
		api.PATCH("/appointments/:id/cancel", d.API.CancelAppointment)
	}
}
