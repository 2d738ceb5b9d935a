package main

import (
	"net/http"

	"mita-backend/internal/config"
	"mita-backend/internal/handlers"
	"mita-backend/internal/middleware"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"
	"mita-backend/internal/services"
	"mita-backend/internal/validation"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type serviceSet struct {
	auth         services.AuthServiceInterface
	token        services.TokenServiceInterface
	password     services.PasswordServiceInterface
	user         services.UserServiceInterface
	calendar     services.CalendarServiceInterface
	transaction  services.TransactionServiceInterface
	analytics    services.AnalyticsServiceInterface
	drift        services.DriftServiceInterface
	referral     services.ReferralServiceInterface
	notification services.NotificationServiceInterface
}

func newServer(
	cfg *config.Config,
	svc serviceSet,
	blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface,
	limiter *middleware.RateLimiter,
	deps ...handlers.Dependency,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.CustomHTTPErrorHandler
	e.Validator = validation.Default()

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.PanicRecovery())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.TraceIDHeader},
	}))

	e.GET("/health", handlers.NewHealthCheckHandler(deps...).HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	requireAuth := middleware.RequireAuth(svc.token, blacklistedTokenRepo)
	protected := []echo.MiddlewareFunc{
		requireAuth,
		middleware.RequireRole(models.RoleUser, models.RoleAdmin),
		limiter.Middleware(),
	}

	authHandler := handlers.NewAuthHandler(svc.auth, svc.token)
	auth := api.Group("/auth", limiter.Middleware())
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/google", authHandler.GoogleLogin)
	auth.POST("/refresh", authHandler.RefreshToken)
	auth.POST("/logout", authHandler.Logout)

	userHandler := handlers.NewUserHandler(svc.user, svc.password)
	users := api.Group("/users", protected...)
	users.GET("/me", userHandler.GetProfile)
	users.PATCH("/me", userHandler.UpdateProfile)
	users.PUT("/me/password", userHandler.ChangePassword)

	calendarHandler := handlers.NewCalendarHandler(svc.calendar)
	calendar := api.Group("/calendar", protected...)
	calendar.POST("/generate", calendarHandler.Generate)
	calendar.POST("/redistribute", calendarHandler.Redistribute)
	calendar.POST("/shell", calendarHandler.Shell)
	calendar.GET("/:calendarId", calendarHandler.Get)
	calendar.PATCH("/:calendarId/days/:date", calendarHandler.UpdateDay)
	calendar.POST("/:calendarId/redistribute", calendarHandler.RedistributeStored)

	transactionHandler := handlers.NewTransactionHandler(svc.transaction)
	transactions := api.Group("/transactions", protected...)
	transactions.POST("", transactionHandler.Create)
	transactions.GET("", transactionHandler.List)

	analyticsHandler := handlers.NewAnalyticsHandler(svc.analytics, svc.drift)
	analytics := api.Group("/analytics", protected...)
	analytics.GET("/monthly", analyticsHandler.Monthly)
	analytics.GET("/trend", analyticsHandler.Trend)
	analytics.POST("/aggregate", analyticsHandler.Aggregate)
	analytics.POST("/anomalies", analyticsHandler.DetectAnomalies)
	analytics.GET("/anomalies", analyticsHandler.MonthAnomalies)
	analytics.GET("/anomalies/categories", analyticsHandler.CategoryAnomalies)
	analytics.POST("/drift", analyticsHandler.RecordDrift)
	analytics.GET("/drift", analyticsHandler.GetDrift)

	referralHandler := handlers.NewReferralHandler(svc.referral)
	referral := api.Group("/referral", protected...)
	referral.GET("/code", referralHandler.Code)
	referral.POST("/eligibility", referralHandler.Eligibility)
	referral.POST("/claim", referralHandler.Claim)

	notificationHandler := handlers.NewNotificationHandler(svc.notification)
	notify := api.Group("/notifications", protected...)
	notify.POST("/push-token", notificationHandler.RegisterPushToken)
	notify.DELETE("/push-token", notificationHandler.UnregisterPushToken)
	notify.POST("/test", notificationHandler.Test)
	notify.GET("/history", notificationHandler.History)

	return e
}
