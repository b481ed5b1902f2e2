package main

import (
	"log"
	"net/http"

	"ethiobus/internal/config"
	"ethiobus/internal/logger"
	"ethiobus/internal/middleware"
	"ethiobus/internal/routes"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database and run migrations
	config.InitDB()

	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	addr := "0.0.0.0:" + config.Port()
	log.Printf("🚀 Server running at %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}
