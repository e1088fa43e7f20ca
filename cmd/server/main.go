/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the benefit engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Load the card template catalog
  4. Wire reminder scheduler and API handler
  5. Start the background lifecycle scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: benefits.db)
            Use ":memory:" for in-memory database
  -catalog  Card template catalog YAML (default: embedded catalog)
  -tz       IANA timezone for "today" decisions (default: Local)

ENVIRONMENT:
  PORT, DB_PATH, CATALOG_PATH, TIMEZONE override the flag defaults.
  Loaded from .env when present (godotenv).

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the lifecycle scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/benefits.db"

  # Run with a custom catalog
  ./server -catalog=./cards.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/benefit-engine/api"
	"github.com/warp/benefit-engine/catalog"
	"github.com/warp/benefit-engine/reminder"
	"github.com/warp/benefit-engine/store/sqlite"
)

func main() {
	// .env is optional; flags still win over its values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "benefits.db"), "SQLite database path")
	catalogPath := flag.String("catalog", envStr("CATALOG_PATH", ""), "card template catalog YAML (empty = embedded)")
	tzName := flag.String("tz", envStr("TIMEZONE", "Local"), "IANA timezone for date decisions")
	flag.Parse()

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *tzName, err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load catalog
	var cat *catalog.Catalog
	if *catalogPath != "" {
		cat, err = catalog.LoadFile(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to load catalog %s: %v", *catalogPath, err)
		}
	} else {
		cat, err = catalog.Default()
		if err != nil {
			log.Fatalf("Failed to load embedded catalog: %v", err)
		}
	}

	// Reminders persist through the store's transport implementation.
	reminders := reminder.NewScheduler(store, reminder.DefaultPrefs(), loc)

	// Initialize handler
	handler := api.NewHandler(store, cat, reminders, loc)

	// Background rollover and renewal sweep
	lifecycle := api.NewLifecycleScheduler(handler)
	lifecycle.Start()
	defer lifecycle.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
