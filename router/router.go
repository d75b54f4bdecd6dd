package router

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/periodic-tables/cache"
	"github.com/yeremiapane/periodic-tables/config"
	"github.com/yeremiapane/periodic-tables/controllers"
	"github.com/yeremiapane/periodic-tables/floor"
	"github.com/yeremiapane/periodic-tables/middlewares"
	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/repository"
	"github.com/yeremiapane/periodic-tables/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Options carries what SetupRouter needs besides the database. A nil Cache
// disables response caching and a nil Hub uses floor.Default().
type Options struct {
	Config *config.Config
	Rules  models.HouseRules
	Cache  cache.ResponseCache
	Hub    *floor.Hub
}

func SetupRouter(db *gorm.DB, opts Options) *gin.Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = floor.Default()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(strings.EqualFold(cfg.Env, "production")))
	r.Use(middlewares.CORSMiddlewares(cfg.Server.AllowedOrigins))
	if cfg.Server.RateLimitPerSec > 0 {
		r.Use(middlewares.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst))
	}
	r.Use(middlewares.InvalidateCache(opts.Cache))

	r.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("Path not found: %s", c.Request.URL.Path))
	})
	r.NoMethod(func(c *gin.Context) {
		utils.RespondError(c, http.StatusMethodNotAllowed,
			fmt.Errorf("%s not allowed for %s", c.Request.Method, c.Request.URL.Path))
	})

	if dir := cfg.Server.FrontendDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			r.Static("/app", dir)
		} else {
			utils.ErrorLogger.Warnf("frontend directory %s not found: %v", dir, err)
		}
	}

	reservationRepo := repository.NewReservationRepository(db)
	tableRepo := repository.NewTableRepository(db)

	reservationGuard := middlewares.NewReservationValidator(reservationRepo, opts.Rules)
	tableGuard := middlewares.NewTableValidator(tableRepo)

	reservationCtrl := controllers.NewReservationController(reservationRepo, opts.Rules)
	tableCtrl := controllers.NewTableController(tableRepo)
	userCtrl := controllers.NewUserController(db)
	adminCtrl := controllers.NewAdminController(reservationRepo, tableRepo, opts.Rules, cfg.Restaurant.Name)
	floorCtrl := controllers.NewFloorController(hub, cfg.Server.AllowedOrigins)

	cached := middlewares.Cache(opts.Cache, cfg.Cache.TTL)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		utils.RespondJSON(c, http.StatusOK, "pong")
	})

	reservations := r.Group("/reservations")
	{
		reservations.GET("", cached, reservationCtrl.List)
		reservations.POST("", chain(reservationGuard.CreateChain(), reservationCtrl.Create)...)
		reservations.GET("/:reservation_id", cached, reservationGuard.ReservationExists(), reservationCtrl.Read)
		reservations.PUT("/:reservation_id", chain(reservationGuard.EditChain(), reservationCtrl.Update)...)
		reservations.PUT("/:reservation_id/status", chain(reservationGuard.StatusChain(), reservationCtrl.UpdateStatus)...)
	}

	tables := r.Group("/tables")
	{
		tables.GET("", cached, tableCtrl.List)
		tables.POST("", chain(tableGuard.CreateChain(), tableCtrl.Create)...)
		tables.PUT("/:table_id/seat", chain(tableGuard.SeatChain(), tableCtrl.Seat)...)
		tables.DELETE("/:table_id/seat", chain(tableGuard.FinishChain(), tableCtrl.Finish)...)
	}

	// Rate limiter untuk login/register
	auth := r.Group("/auth")
	auth.Use(middlewares.NewStrictRateLimiter())
	{
		auth.POST("/register", userCtrl.Register)
		auth.POST("/login", userCtrl.Login)
		auth.POST("/logout", middlewares.AuthMiddleware(), userCtrl.Logout)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	r.GET("/ws/floor", middlewares.WebSocketAuthMiddleware(), middlewares.RequireRole(models.RoleHost), floorCtrl.Connect)

	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware())
	{
		admin.GET("/profile", userCtrl.GetProfile)
		admin.GET("/users", middlewares.RequireRole(models.RoleAdmin), userCtrl.GetAllUsers)
		admin.GET("/dashboard", middlewares.RequireRole(models.RoleHost), adminCtrl.GetDashboardStats)
		admin.GET("/reports/reservations.pdf", middlewares.RequireRole(models.RoleHost), adminCtrl.ReservationsPDF)
		admin.DELETE("/tables/:table_id", middlewares.RequireRole(models.RoleAdmin), tableGuard.TableExists(), tableCtrl.Delete)
	}

	return r
}

func chain(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	return append(guards, handler)
}

// ErrNoRules is returned by NewOptions when the restaurant settings cannot
// be turned into house rules.
var ErrNoRules = errors.New("restaurant house rules are invalid")

// NewOptions builds Options from cfg.
func NewOptions(cfg *config.Config, responseCache cache.ResponseCache) (Options, error) {
	rules, err := cfg.Restaurant.Rules()
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrNoRules, err)
	}
	return Options{Config: cfg, Rules: rules, Cache: responseCache, Hub: floor.Default()}, nil
}
