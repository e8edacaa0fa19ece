// Package router assembles the gin engine and the HTTP route table.
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/handler"
	"github.com/noah-isme/edumarket-api/internal/middleware"
	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/service"
	"github.com/noah-isme/edumarket-api/pkg/config"
	"github.com/noah-isme/edumarket-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/edumarket-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/edumarket-api/pkg/middleware/requestid"
)

// Handlers bundles the HTTP handlers mounted by New.
type Handlers struct {
	Auth      *handler.AuthHandler
	Profile   *handler.ProfileHandler
	Category  *handler.CategoryHandler
	Listing   *handler.ListingHandler
	Download  *handler.DownloadHandler
	Report    *handler.ReportHandler
	Dashboard *handler.DashboardHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the engine-wide settings.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditSink
	// PublicDirs maps a URL prefix to a directory served as static files.
	// Only set for the local storage driver.
	PublicDirs     map[string]string
}

// New builds the engine with the shared middleware chain and every route.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	for urlPrefix, dir := range opts.PublicDirs {
		r.Static(urlPrefix, dir)
	}

	authed := middleware.JWT(opts.Tokens)
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/signin", h.Auth.SignIn)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authed, h.Auth.Logout)
	auth.POST("/change-password", authed, h.Auth.ChangePassword)
	auth.GET("/session", middleware.OptionalJWT(opts.Tokens), h.Auth.Session)

	api.GET("/categories", h.Category.Active)

	listings := api.Group("/listings")
	listings.GET("", h.Listing.Marketplace)
	listings.GET("/:id", middleware.OptionalJWT(opts.Tokens), h.Listing.Get)
	listings.POST("", authed, h.Listing.Create)
	listings.PUT("/:id", authed, h.Listing.Update)
	listings.DELETE("/:id", authed, h.Listing.Delete)
	listings.GET("/:id/download-url", authed, h.Download.Link)
	listings.GET("/:id/download", authed, h.Download.Download)

	me := api.Group("/me", authed)
	me.GET("/listings", h.Listing.Mine)
	me.GET("/downloads", h.Download.Mine)
	me.GET("/dashboard", h.Dashboard.User)

	profile := api.Group("/profile", authed)
	profile.GET("", h.Profile.Me)
	profile.PUT("", h.Profile.UpdateMe)

	api.POST("/reports", authed, h.Report.Create)

	admin := api.Group("/admin", authed, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard.Admin)

	admin.GET("/users", h.Profile.List)
	admin.PATCH("/users/:id/status", h.Profile.UpdateStatus)

	admin.GET("/listings", h.Listing.AdminList)
	admin.GET("/listings/export", middleware.Audit(opts.Audit, opts.Logger, models.AuditActionListingExport, "listing"), h.Listing.Export)
	admin.POST("/listings/:id/approve", h.Listing.Approve)
	admin.POST("/listings/:id/reject", h.Listing.Reject)

	admin.GET("/categories", h.Category.List)
	admin.POST("/categories", h.Category.Create)
	admin.PUT("/categories/:id", h.Category.Update)
	admin.DELETE("/categories/:id", h.Category.Delete)

	admin.GET("/reports", h.Report.List)
	admin.PATCH("/reports/:id", h.Report.UpdateStatus)

	return r
}
