package main

import (
	"context"
	"log"
	"os"

	"brawlhub/config"
	"brawlhub/middleware"
	"brawlhub/routes"
	"brawlhub/services/connections"
	"brawlhub/services/directory"
	"brawlhub/services/events"
	"brawlhub/services/gameserver"
	"brawlhub/services/lobby"

	_ "brawlhub/docs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title Brawlhub API
// @version 1.0
// @description Gin-Gonic server for the Brawlhub social/lobby layer
// @BasePath /
func main() {
	godotenv.Load()
	log.Println("Setting up server...")

	if os.Getenv("PROD") == "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	gormDB, err := config.ConnectGORM()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %v", err)
	}
	if os.Getenv("MIGRATE_POSTGRES") == "true" {
		if err := config.MigrateDatabase(gormDB); err != nil {
			log.Printf("Warning: Database migration failed: %v", err)
		}
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error reading GORM PostgreSQL instance: %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := config.ConnectRedis()
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	store := directory.NewRedisStore(redisClient)
	bus := events.NewRedisBus(redisClient)
	registry := connections.NewRegistry()
	lobbies := lobby.NewService(store, bus)
	provisioner := &gameserver.ExecProvisioner{
		BinaryPath: os.Getenv("GAME_SERVER_BINARY"),
		Host:       os.Getenv("GAME_SERVER_HOST"),
	}
	gameServers := gameserver.NewService(store, bus, provisioner)

	// One dispatcher per process drains the fanout bus for as long as the
	// server runs.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := events.NewDispatcher(registry)
	go dispatcher.Run(ctx, redisClient)

	r := gin.Default()
	middleware.SetUpMiddleware(r)
	routes.SetupRoutes(r, routes.Deps{
		DB:          gormDB,
		Store:       store,
		Bus:         bus,
		Registry:    registry,
		Lobbies:     lobbies,
		GameServers: gameServers,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
