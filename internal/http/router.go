package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/handlers"
	"github.com/geocoder89/captionhub/internal/http/middlewares"
	"github.com/geocoder89/captionhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	jsonBodyLimit   = 1 << 20
	uploadBodyLimit = caption.MaxImageBytes + 1<<20
)

// Deps is everything the router needs; cmd/api and the integration tests
// build it differently.
type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Users    handlers.UserStore
	Captions handlers.CaptionStore
	Hasher   handlers.PasswordHasher
	Tokens   *auth.Manager

	Captioner handlers.ImageCaptioner
	Images    handlers.ImageStore
	UploadDir string // served under /uploads when set

	RateCounter    middlewares.WindowCounter
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSOrigins []string

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Tracing  bool

	Ready []handlers.Checker
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	handlers.RegisterValidators()

	r := gin.New()

	r.Use(gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		d.Log.ErrorContext(ctx.Request.Context(), "panic recovered",
			"panic", recovered,
			"path", ctx.Request.URL.Path,
		)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	}))
	r.Use(middlewares.RequestID())
	if d.Tracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Env != "dev" && d.Env != "test"))
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	health := handlers.NewHealthHandler(d.Ready...)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	authMw := middlewares.NewAuthMiddleware(d.Tokens)
	requireAuth := authMw.RequireAuth()
	requireElevated := middlewares.RequireRole(user.RoleElevated)

	authHandler := handlers.NewAuthHandler(d.Users, d.Hasher, d.Tokens, d.Log)
	captionsHandler := handlers.NewCaptionsHandler(d.Captions, d.Captioner, d.Images, d.Log)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Log)

	var limitOpts []middlewares.RateLimitOption
	if d.Prom != nil {
		limitOpts = append(limitOpts, middlewares.WithLimitObserver(d.Prom))
	}
	limiter := middlewares.NewRateLimiter(d.RateCounter, "auth", d.AuthRateLimit, d.AuthRateWindow, limitOpts...)

	api := r.Group("/api")
	api.GET("/health", health.API)

	authGroup := api.Group("/auth")
	{
		limited := authGroup.Group("",
			limiter.Middleware(middlewares.KeyByIP),
			middlewares.MaxBodyBytes(jsonBodyLimit),
			middlewares.RequireJSON(),
		)
		limited.POST("/signup", authHandler.SignUp)
		limited.POST("/login", authHandler.Login)

		authGroup.GET("/profile", requireAuth, authHandler.Profile)
	}

	captions := api.Group("/captions", requireAuth)
	{
		captions.POST("", middlewares.MaxBodyBytes(uploadBodyLimit), captionsHandler.Create)
		captions.GET("", captionsHandler.List)
		captions.GET("/:id", captionsHandler.Get)
		captions.DELETE("/:id", captionsHandler.Delete)
	}

	users := api.Group("/users", requireAuth, middlewares.MaxBodyBytes(jsonBodyLimit))
	{
		users.GET("", requireElevated, usersHandler.List)
		users.GET("/:id", usersHandler.Get)
		users.PUT("/:id", middlewares.RequireJSON(), usersHandler.Update)
		users.DELETE("/:id", usersHandler.Delete)
		users.PATCH("/:id/role", requireElevated, middlewares.RequireJSON(), usersHandler.UpdateRole)
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}
