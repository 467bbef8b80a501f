package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"coppit-server/internal/api/ws"
	"coppit-server/internal/archive"
	"coppit-server/internal/board"
	"coppit-server/internal/config"
	"coppit-server/internal/logging"
	"coppit-server/internal/room"
)

// NewRouter assembles the HTTP surface: room lifecycle over REST, game
// actions over the websocket, plus board, archive and config reads.
func NewRouter(rm *room.Manager, hub *ws.Hub, b *board.Board, arch *archive.Archive, cfg config.Config, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(log))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/ws", hub.HandleWS)

	r.POST("/rooms", CreateRoomHandler(rm, cfg.Rules))
	r.POST("/rooms/:id/join", JoinRoomHandler(rm))
	r.POST("/rooms/:id/start", StartGameHandler(rm))
	r.GET("/rooms/:id", RoomStateHandler(rm))
	r.GET("/rooms/:id/legal", LegalMovesHandler(rm))

	r.GET("/board", BoardHandler(b))
	r.GET("/matches", RecentMatchesHandler(arch))

	r.GET("/config/weights", GetWeightsHandler(rm))
	r.POST("/config/weights", UpdateWeightsHandler(rm))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
