package http

import (
	"context"

	"github.com/dkeye/studyroom/internal/adapters/signal"
	"github.com/dkeye/studyroom/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientTokenMiddleware assigns a stable per-browser token. The REST layer
// uses it as the user identity for participant history; it is not the
// connection ID, which is per-tab and per-socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController, rooms *RoomHandler) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("StudyroomSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.POST("/rooms", rooms.Create)
	api.POST("/rooms/join", rooms.Join)
	api.GET("/rooms", rooms.List)
	api.GET("/rooms/:roomId", rooms.Get)

	// Clients build their RTCPeerConnection from this; the server itself
	// never dials ICE.
	api.GET("/ice", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"iceServers": []gin.H{{"urls": cfg.IceServers}},
		})
	})

	api.GET("/ws/room", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Msg("ws room endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
