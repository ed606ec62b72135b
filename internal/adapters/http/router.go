package http

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/assumechat/server/internal/adapters/ws"
	"github.com/assumechat/server/internal/app/orch"
	"github.com/assumechat/server/internal/config"
)

var startedAt = time.Now()

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Assume Chat API up and running!"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "ok",
			"uptime":     time.Since(startedAt).String(),
			"goroutines": runtime.NumGoroutine(),
			"online":     o.Registry.Count(),
			"waiting":    o.Queue.Len(),
			"rooms":      o.Rooms.Count(),
		})
	})

	api := r.Group("/api")

	api.GET("/stats", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"online":  o.Registry.Count(),
			"waiting": o.Queue.Len(),
			"rooms":   o.Rooms.List(),
		})
	})

	ctl := ws.NewController(o, cfg)
	api.GET("/ws", func(c *gin.Context) {
		ctl.Handle(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
