package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"campusfinder/internal/cache"
	"campusfinder/internal/config"
	"campusfinder/internal/database"
	"campusfinder/internal/middleware"
	"campusfinder/internal/modules/auth"
	"campusfinder/internal/modules/favorite"
	"campusfinder/internal/modules/notification"
	"campusfinder/internal/modules/resource"
	"campusfinder/internal/modules/review"
	"campusfinder/internal/modules/settings"
	"campusfinder/internal/pkg/jwt"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/pkg/response"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/realtime"
	"campusfinder/internal/repository"
	"campusfinder/internal/storage"
)

// Deps is everything the HTTP layer needs. Cache, Hub, Mailer and Metrics
// are optional.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   *repository.Store
	Tokens  *jwt.Service
	Images  *storage.Images
	Cache   cache.ResourceList
	Hub     *realtime.Hub
	Mailer  notification.Mailer
	Metrics *observability.Metrics
}

func NewRouter(d Deps) *gin.Engine {
	validator.UseTagNames()

	var events realtime.Publisher = realtime.Discard{}
	if d.Hub != nil {
		events = d.Hub
	}
	list := d.Cache
	if list == nil {
		list = cache.Noop{}
	}
	cfg := d.Config
	emails := auth.NewEmailPolicy(cfg.Auth.InstitutionDomains)

	authHandler := auth.NewHandler(auth.NewService(d.Store.Users, d.Tokens, emails, cfg.Auth.BcryptCost))
	resourceHandler := resource.NewHandler(resource.NewService(d.Store, d.Images, list, events))
	reviewHandler := review.NewHandler(review.NewService(d.Store, list, events))
	favoriteHandler := favorite.NewHandler(favorite.NewService(d.Store, list, events, d.Metrics))
	settingsHandler := settings.NewHandler(settings.NewService(d.Store.Users, d.Images, emails, cfg.Auth.BcryptCost, list))
	notificationHandler := notification.NewHandler(notification.NewService(d.Store.Users, d.Mailer))

	r := gin.New()
	r.MaxMultipartMemory = cfg.Storage.MaxImageBytes + 1<<20
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Tracing(d.Metrics),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	if (cfg.Storage.Driver == "" || cfg.Storage.Driver == "local") && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		r.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalDir)
	}

	r.GET("/health", health(d.DB))

	api := r.Group("/api")
	public := api.Group("", middleware.OptionalAuth(d.Tokens))
	protected := api.Group("", middleware.JWTAuth(d.Tokens))

	authHandler.RegisterRoutes(public, protected)
	resourceHandler.RegisterRoutes(public, protected)
	reviewHandler.RegisterRoutes(public, protected)
	favoriteHandler.RegisterRoutes(protected)
	settingsHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)

	if d.Hub != nil {
		public.GET("/ws", d.Hub.Handle)
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			response.Unavailable(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
