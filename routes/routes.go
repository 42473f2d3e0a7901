package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-backend/controllers"
	"venue-backend/metrics"
	"venue-backend/middleware"
)

// Deps carries everything the router needs.
type Deps struct {
	DB          *gorm.DB
	Log         *zap.Logger
	CORSOrigins []string

	State     *controllers.StateController
	Sequences *controllers.SequenceController
	Groups    *controllers.GroupController
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "If-None-Match", middleware.RequestIDKey},
		ExposeHeaders:    []string{"Content-Length", "ETag", middleware.RequestIDKey},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}
}

// SetupRouter wires middleware and the API routes.
func SetupRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	metrics.Register()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		if d.DB != nil {
			sqlDB, err := d.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(c.Request.Context())
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		state := api.Group("/state")
		{
			state.GET("", d.State.GetState)
			state.PUT("", d.State.PutState)
		}

		sequences := api.Group("/sequences")
		{
			sequences.GET("/:scope", d.Sequences.Current)
			sequences.POST("/:scope/reserve", d.Sequences.ReserveNext)
		}

		groups := api.Group("/groups/:groupId")
		{
			groups.GET("/quote/latest", d.Groups.LatestQuote)
			groups.GET("/menu-montaje/latest", d.Groups.LatestMenuMontaje)
		}
	}

	return r
}
