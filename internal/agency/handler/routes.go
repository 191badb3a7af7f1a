package handler

import (
	"net/http"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/config"
	"github.com/braincreator/flow-masters/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// streamPaths are served uncompressed so events flush as they happen.
var streamPaths = []string{`^/api/projects/[^/]+/events$`}

// NewRouter builds the engine with the shared middleware chain and mounts the API.
func NewRouter(h *Handlers, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs(streamPaths)))

	RegisterRoutes(r, h, cfg)
	return r
}

// RegisterRoutes mounts the API on r.
func RegisterRoutes(r *gin.Engine, h *Handlers, cfg *config.Config) {
	auth := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.CookieName)
	optional := middleware.OptionalAuth(cfg.JWT.Secret, cfg.JWT.CookieName)
	staff := middleware.RequireRole(entity.RoleManager, entity.RoleSpecialist)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	api := r.Group("/api")

	// Session
	users := api.Group("/users")
	{
		users.POST("/login", h.Auth.Login)
		users.POST("/logout", h.Auth.Logout)
		users.GET("/me", auth, h.Auth.Me)
	}

	// Public storefront
	v1 := api.Group("/v1")
	{
		v1.GET("/plans", h.Commerce.Plans)
		v1.GET("/services", h.Commerce.Services)
		v1.POST("/discount/validate", h.Commerce.ValidateDiscount)
		v1.POST("/payment/create", optional, h.Commerce.CreatePayment)
		v1.POST("/payment/webhook/:provider", h.Commerce.Webhook)
		v1.GET("/orders/:id", auth, h.Commerce.GetOrder)

		checkout := v1.Group("/checkout")
		{
			checkout.POST("", h.Checkout.Start)
			checkout.GET("/:id", h.Checkout.Get)
			checkout.PUT("/:id/items", h.Checkout.SetItems)
			checkout.PUT("/:id/contact", h.Checkout.SetContact)
			checkout.POST("/:id/step", h.Checkout.GoTo)
			checkout.POST("/:id/discount", h.Checkout.ApplyDiscount)
			checkout.DELETE("/:id/discount", h.Checkout.RemoveDiscount)
			checkout.GET("/:id/providers", h.Checkout.Providers)
			checkout.PUT("/:id/provider", h.Checkout.SetProvider)
			checkout.POST("/:id/pay", optional, h.Checkout.Pay)
		}
	}

	authorized := api.Group("")
	authorized.Use(auth)
	{
		projects := authorized.Group("/service-projects")
		{
			projects.GET("", h.Project.List)
			projects.POST("", staff, h.Project.Create)
			projects.GET("/:id", h.Project.Get)
			projects.PATCH("/:id", h.Project.UpdateStatus)
			projects.GET("/:id/milestones", h.Project.ListMilestones)
			projects.POST("/:id/milestones", h.Project.CreateMilestone)
			projects.GET("/:id/messages", h.Project.ListMessages)
			projects.POST("/:id/messages", h.Project.PostMessage)
		}

		milestones := authorized.Group("/project-milestones")
		{
			milestones.PATCH("/:id", h.Project.UpdateMilestone)
			milestones.POST("/:id/approve", h.Project.Approve)
		}

		tasks := authorized.Group("/tasks")
		{
			tasks.GET("", h.Task.List)
			tasks.POST("", h.Task.Create)
			tasks.GET("/:id", h.Task.Get)
			tasks.PATCH("/:id", h.Task.Update)
			tasks.DELETE("/:id", h.Task.Delete)
			tasks.POST("/:id/comments", h.Task.AddComment)
		}

		templates := authorized.Group("/project-templates")
		{
			templates.GET("", h.Template.List)
			templates.POST("", middleware.RequireRole(entity.RoleManager), h.Template.Create)
			templates.POST("/apply", staff, h.Template.Apply)
			templates.GET("/:id", h.Template.Get)
		}

		authorized.GET("/project-reports/:id", h.Report.Report)
		authorized.POST("/project-reports/:id/export", h.Report.Export)
		authorized.GET("/project-calendar/:id", h.Report.Calendar)
		authorized.GET("/projects/:id/events", h.SSE.Stream)

		courses := authorized.Group("/courses")
		{
			courses.POST("", staff, h.Course.Create)
			courses.POST("/preview", staff, h.Course.Preview)
			courses.GET("/:slug", h.Course.GetBySlug)
		}

		account := authorized.Group("/account")
		{
			account.GET("/dashboard", h.Account.Dashboard)
			account.POST("/check-in", h.Account.CheckIn)
		}

		media := authorized.Group("/media")
		{
			media.POST("", staff, h.Media.Upload)
			media.GET("/:id", h.Media.Get)
		}
	}
}
