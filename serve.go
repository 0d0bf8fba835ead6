package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/contractlens/contractlens/config"
	"github.com/contractlens/contractlens/handler"
	"github.com/contractlens/contractlens/middleware"
	"github.com/contractlens/contractlens/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// Polled every second by the analyzing screen; kept out of access logs and rate limits
var quietPaths = []string{"/analysis/progress", "/health"}

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	client := service.NewAnalysisClient(&cfg.Analysis)

	library, err := service.NewLibrary(cfg, client)
	if err != nil {
		return fmt.Errorf("failed to initialize contract library: %w", err)
	}
	if catalog, ok := library.(*service.MockCatalog); ok && cfg.Library.Watch {
		if err := watchCatalog(ctx, catalog); err != nil {
			return err
		}
	}

	var cache service.ReportStore
	if cfg.Minio.Enabled {
		reportCache, err := service.NewReportCache(&cfg.Minio)
		if err != nil {
			return fmt.Errorf("failed to initialize report cache: %w", err)
		}
		if err := reportCache.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure report bucket: %w", err)
		}
		cache = reportCache
	}

	exporter, err := service.NewExporter(cfg, client, cache)
	if err != nil {
		return err
	}

	app := handler.NewApp(handler.Deps{
		Config:   cfg,
		Uploader: client,
		Analyzer: service.NewAnalyzer(ctx, client, cfg.StepInterval()),
		Library:  library,
		Exporter: exporter,
		Pinger:   client,
	})

	store := service.NewSessionStore(&cfg.Session)
	signer := middleware.NewSessionSigner(&cfg.Session)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger(quietPaths...))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(noStore())
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, time.Minute, quietPaths...))

	router.SetHTMLTemplate(handler.Templates())
	router.GET("/health", app.Health)

	screens := router.Group("/")
	screens.Use(middleware.Session(store, signer, cfg.Session.CookieName))
	app.Routes(screens)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"analysis_api", cfg.Analysis.BaseURL,
			"library_source", cfg.Library.Source,
			"report_mode", cfg.Report.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Analyses are interrupted by ctx; simulated exports finish their delay
	app.Wait()
	slog.Info("server exited gracefully", "sessions", store.Count())
	return nil
}

// watchCatalog reloads the mock catalog when its file changes
func watchCatalog(ctx context.Context, catalog *service.MockCatalog) error {
	if catalog.Path() == "" {
		slog.Info("catalog watch skipped: built-in catalog in use")
		return nil
	}

	watcher, err := service.NewCatalogWatcher(catalog, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to watch contract catalog: %w", err)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Error("contract catalog watcher stopped", "error", err)
		}
	}()
	return nil
}

// corsMiddleware allows credentialed requests from the configured origins.
// With none configured the screens are same-origin only and no CORS headers
// are sent.
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// noStore disables caching: every screen depends on the browser's session
func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
