package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "coppit-server/docs"
	httpapi "coppit-server/internal/api/http"
	"coppit-server/internal/api/ws"
	"coppit-server/internal/archive"
	"coppit-server/internal/board"
	"coppit-server/internal/config"
	"coppit-server/internal/logging"
	"coppit-server/internal/room"
	"coppit-server/internal/store"
)

// @title Coppit Game Server API
// @version 1.0
// @description Realtime server for the Coppit capture-and-return board game (Go + Gin + WebSocket)
// @BasePath /
func main() {
	cfg := config.Load()
	logger, err := logging.InitLogger(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	b := board.BuildDefault()
	if cfg.BoardPath != "" {
		b, err = board.Load(cfg.BoardPath)
		if err != nil {
			logger.Fatal("board load failed", zap.String("path", cfg.BoardPath), zap.Error(err))
		}
	}

	var st store.Store = store.NewMemStore()
	if cfg.UseRedis {
		rs, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("redis connect failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = rs.Close() }()
		st = rs
		logger.Info("using redis store", zap.String("addr", cfg.RedisAddr))
	}

	arch, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		logger.Warn("archive disabled", zap.String("path", cfg.ArchivePath), zap.Error(err))
		arch = nil
	}

	hub := ws.NewHub(logger)
	rm := room.NewManager(b, st, arch, hub, logger, cfg.Weights)
	hub.SetRoomManager(rm)

	cleaner := store.NewCleaner(st, logger, 10*time.Minute)
	if err := cleaner.Start(cfg.CleanerSpec); err != nil {
		logger.Fatal("cleaner schedule invalid", zap.String("spec", cfg.CleanerSpec), zap.Error(err))
	}
	defer cleaner.Stop()

	r := httpapi.NewRouter(rm, hub, b, arch, cfg, logger)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
