/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock data provider server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, apply command-line flag overrides
  2. Build logger
  3. Open document store (SQLite or memory)
  4. Load resource catalog
  5. Wire provider + API handler, configure HTTP router
  6. Start server with graceful shutdown

ENVIRONMENT / FLAGS:
  PORT          -port     HTTP server port (default: 8080)
  DB_PATH       -db       SQLite database path (default: stock.db)
                          Use ":memory:" for in-memory database
  STORE         -store    sqlite | memory (default: sqlite)
  CATALOG_PATH  -catalog  YAML resource catalog (default: built-in)
  LOG_MODE      -log      dev | prod (default: dev)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - document/provider.go: Create/Update entry points
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
	"syscall"
	"time"

	"github.com/warp/stock-provider/api"
	"github.com/warp/stock-provider/audit"
	"github.com/warp/stock-provider/catalog"
	"github.com/warp/stock-provider/config"
	"github.com/warp/stock-provider/document"
	"github.com/warp/stock-provider/document/store"
	"github.com/warp/stock-provider/logger"
	"github.com/warp/stock-provider/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "document store: sqlite or memory")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "YAML resource catalog path")
	flag.StringVar(&cfg.LogMode, "log", cfg.LogMode, "log mode: dev or prod")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	// Initialize store
	var docs document.Store
	switch cfg.Store {
	case config.StoreMemory:
		docs = store.NewMemory()
	default:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			lg.Fatal("Failed to initialize database", "path", cfg.DBPath, "error", err)
		}
		defer s.Close()
		docs = s
	}

	// Load catalog
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			lg.Fatal("Failed to load catalog", "path", cfg.CatalogPath, "error", err)
		}
	}

	provider := document.NewProvider(document.Deps{
		Store:       docs,
		Resolver:    cat,
		Processor:   cat,
		Stamper:     audit.NewStamper(),
		Transformer: cat,
		IDs:         document.UUIDGenerator{},
		Log:         lg.With("component", "provider"),
	})

	handler := api.NewHandler(provider, cat.Names(), lg.With("component", "api"))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		lg.Info("Server starting", "addr", server.Addr, "store", cfg.Store, "resources", cat.Names())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("Server forced to shutdown", "error", err)
		return
	}

	lg.Info("Server stopped")
}
