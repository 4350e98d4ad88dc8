package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/assettrack/internal/api"
	"github.com/erazemk/assettrack/internal/auth"
	"github.com/erazemk/assettrack/internal/blob"
	"github.com/erazemk/assettrack/internal/config"
	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/service"
	"github.com/erazemk/assettrack/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:], ".env", os.Stdout)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	_, statErr := os.Stat(cfg.DBPath)
	missing := errors.Is(statErr, os.ErrNotExist)

	if cfg.Command == config.CommandInit {
		if !missing {
			fmt.Fprintf(os.Stderr, "error: database file %s already exists\n", cfg.DBPath)
			os.Exit(1)
		}
		if err := runInit(cfg); err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		return
	}

	// Auto-init on first run.
	if missing {
		if err := runInit(cfg); err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		fmt.Println()
	}

	if err := serve(cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runInit(cfg *config.Config) error {
	database, password, err := initDatabase(cfg.DBPath, cfg.AdminName, cfg.AdminEmail)
	if err != nil {
		return err
	}
	database.Close()

	printInitResult(cfg.DBPath, cfg.AdminEmail, password)
	return nil
}

func serve(cfg *config.Config) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		return err
	}
	slog.Info("image storage ready", "dir", cfg.BlobDir)

	hub := events.NewHub()
	go hub.Run(ctx)

	svc := service.New(database, events.Fanout{events.LogSink{Logger: slog.Default()}, hub}, blobs)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(svc, hub, jwtSecret))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(api.CORSMiddleware(cfg.CORSOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "cors_origins", len(cfg.CORSOrigins))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(path, adminName, adminEmail string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(err)
	}

	_, err = store.CreateUser(context.Background(), database, store.UserFields{
		Name:     adminName,
		Email:    adminEmail,
		Role:     model.RoleAdmin,
		IsActive: true,
	}, hash)
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}
