package main

import (
	"flag"
	"fmt"
	"log"

	"analysis-console-api/internal/config"
	"analysis-console-api/internal/database"
	"analysis-console-api/internal/directory"
	"analysis-console-api/internal/metrics"
	"analysis-console-api/internal/realtime"
	"analysis-console-api/internal/routes"
)

func main() {
	configPath := flag.String("config", "", "Path to yaml config file (defaults used when empty)")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// Init database
	database.InitDB(cfg.Database.Path)

	// Collaborators and engine
	dir := directory.NewGormDirectory(database.GetDB())
	gate := realtime.NewGate(dir, dir)
	source := metrics.NewSystemSource(dir)
	manager := realtime.NewManager(gate, dir, dir, dir, source, realtime.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		MetricsInterval:   cfg.Realtime.MetricsInterval,
		StaleThreshold:    cfg.Realtime.StaleThreshold,
	})

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes(manager)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("API endpoints:")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/ws")
	log.Println("  POST   /api/subscribe")
	log.Println("  POST   /api/unsubscribe")
	log.Println("  POST   /api/refresh/:userid")
	log.Println("  POST   /api/status")
	log.Println("  POST   /api/analyses/:id/log")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
