package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/advisorly/feetrack/internal/auth"
	"github.com/advisorly/feetrack/internal/config"
	"github.com/advisorly/feetrack/internal/db"
	"github.com/advisorly/feetrack/internal/handlers"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run reference-data seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	conn, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(conn, cfg.Database.DSN, cfg.Database.Migrations); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}
	if *seedOnlyFlag {
		if err := db.Seed(conn, cfg.Periods.CatalogStart, cfg.Periods.CatalogEnd); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding completed successfully")
		return
	}

	if err := db.Migrate(conn, cfg.Database.DSN, cfg.Database.Migrations); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := db.Seed(conn, cfg.Periods.CatalogStart, cfg.Periods.CatalogEnd); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	authn := auth.New(cfg.Auth.TenantID, cfg.Auth.Audience, cfg.Auth.DevBypass)
	if cfg.Auth.DevBypass {
		log.Println("WARNING: DEV_AUTH_BYPASS enabled, all requests run as a local principal")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		DB:            conn,
		Auth:          authn,
		LookbackYears: cfg.Periods.LookbackYears,
		CORSOrigins:   cfg.CORS.Origins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}
