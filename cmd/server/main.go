package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mikeboe/grounded-search/pkg/config"
	"github.com/mikeboe/grounded-search/pkg/search"
	"github.com/mikeboe/grounded-search/pkg/server"
)

func main() {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	client := search.NewClient(cfg, slog.Default())

	svc := server.NewService(client, cfg)
	h := server.NewHandler(svc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(server.RequestLogger(slog.Default()))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
	}))

	h.RegisterRoutes(r)

	slog.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
