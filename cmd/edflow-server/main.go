// edflow-server is the ED patient-flow tracking API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edflow/edflow/internal/config"
	"github.com/edflow/edflow/internal/domain/event"
	"github.com/edflow/edflow/internal/domain/flow"
	"github.com/edflow/edflow/internal/domain/pathway"
	"github.com/edflow/edflow/internal/domain/patient"
	"github.com/edflow/edflow/internal/domain/room"
	"github.com/edflow/edflow/internal/domain/settings"
	"github.com/edflow/edflow/internal/domain/task"
	"github.com/edflow/edflow/internal/platform/auth"
	"github.com/edflow/edflow/internal/platform/db"
	"github.com/edflow/edflow/internal/platform/middleware"
	"github.com/edflow/edflow/internal/platform/monitor"
	"github.com/edflow/edflow/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edflow-server",
		Short: "ED patient-flow tracking server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the tracking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// seedCmd loads a starter room layout and the default settings so a fresh
// install has something to track.
func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed rooms and default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			settingsSvc := settings.NewService(settings.NewRepoPG(pool))
			if _, err := settingsSvc.Current(ctx); err != nil {
				return fmt.Errorf("seed settings: %w", err)
			}

			roomRepo := room.NewRepoPG(pool)
			seeded := 0
			for i := 1; i <= 10; i++ {
				rm := &room.Room{Number: fmt.Sprintf("ED-%d", i), Type: room.TypeED, Status: room.StatusAvailable}
				if err := roomRepo.Create(ctx, rm); err != nil {
					return fmt.Errorf("seed room %s: %w", rm.Number, err)
				}
				seeded++
			}
			for i := 1; i <= 4; i++ {
				rm := &room.Room{Number: fmt.Sprintf("RP-%d", i), Type: room.TypeRP, Status: room.StatusAvailable}
				if err := roomRepo.Create(ctx, rm); err != nil {
					return fmt.Errorf("seed room %s: %w", rm.Number, err)
				}
				seeded++
			}

			fmt.Printf("Seeded %d rooms and default settings.\n", seeded)
			return nil
		},
	}
}

// hubPublisher adapts the websocket hub to the event service's live feed.
type hubPublisher struct {
	hub *websocket.Hub
}

func topicFor(cat event.Category) string {
	switch cat {
	case event.CategoryOrderStatus, event.CategoryStepCompleted, event.CategoryPathwayDone, event.CategoryProcedure, event.CategoryEndpoint:
		return websocket.TopicOrders
	case event.CategoryTaskCreated:
		return websocket.TopicTasks
	case event.CategoryRoomAssigned, event.CategoryRoomReleased:
		return websocket.TopicRooms
	default:
		return websocket.TopicPatients
	}
}

func (p *hubPublisher) PublishEvent(e *event.Event) {
	patientID := ""
	if e.PatientID != nil {
		patientID = e.PatientID.String()
	}
	p.hub.Broadcast(topicFor(e.Category), websocket.NewEvent(topicFor(e.Category), string(e.Category), patientID, e))
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	e.Use(middleware.Audit(logger))

	// Live board hub.
	hub := websocket.NewHub(logger)
	websocket.NewWebSocketHandler(hub).RegisterRoutes(e.Group(""))

	// Repositories.
	eventRepo := event.NewRepoPG(pool)
	settingsRepo := settings.NewRepoPG(pool)
	patientRepo := patient.NewRepoPG(pool)
	vitalsRepo := patient.NewVitalsRepoPG(pool)
	taskRepo := task.NewRepoPG(pool)
	roomRepo := room.NewRepoPG(pool)
	pathwayRepo := pathway.NewRepoPG(pool)

	// Services.
	eventSvc := event.NewService(eventRepo)
	eventSvc.SetPublisher(&hubPublisher{hub: hub})
	settingsSvc := settings.NewService(settingsRepo)
	taskSvc := task.NewService(taskRepo, eventSvc)
	patientSvc := patient.NewService(patientRepo, vitalsRepo, settingsSvc, eventSvc)
	roomSvc := room.NewService(roomRepo, patientRepo, eventSvc, taskSvc, room.PoolTxRunner(pool))
	pathwaySvc := pathway.NewService(pathwayRepo, settingsSvc, eventSvc, pathway.PoolTxRunner(pool))
	flowSvc := flow.NewService(patientRepo, pathwaySvc, roomSvc, taskSvc, eventSvc, pathway.PoolTxRunner(pool), logger)
	pathwaySvc.SetCompletionHook(flowSvc)

	// Routes.
	apiV1 := e.Group("/api/v1")
	event.NewHandler(eventSvc).RegisterRoutes(apiV1)
	settings.NewHandler(settingsSvc).RegisterRoutes(apiV1)
	task.NewHandler(taskSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	room.NewHandler(roomSvc).RegisterRoutes(apiV1)
	pathway.NewHandler(pathwaySvc).RegisterRoutes(apiV1)
	flow.NewHandler(flowSvc).RegisterRoutes(apiV1)

	// Health checks.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Wait-time monitor.
	monCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	mon := monitor.New(patientRepo, settingsSvc, taskSvc, cfg.MonitorTick(), logger)
	go mon.Run(monCtx)

	// Graceful shutdown.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopMonitor()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
