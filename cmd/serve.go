package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MisterSynergy/rfc-protect/core/config"
	"github.com/MisterSynergy/rfc-protect/core/logger"
	"github.com/MisterSynergy/rfc-protect/core/middleware/auth"
	"github.com/MisterSynergy/rfc-protect/core/middleware/rayid"
	"github.com/MisterSynergy/rfc-protect/core/storage"
	"github.com/MisterSynergy/rfc-protect/feature/protect"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve archived run reports over HTTP",
	Long: `Starts an HTTP server exposing the archived run reports. Requires the
storage archive to be enabled in the configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Initialize Storage
		if !cfg.Storage.Enabled {
			logg.Fatal("report server requires storage.enabled=true")
		}
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}
		archive, err := protect.NewArchive(cmd.Context(), store, cfg.Storage.Bucket)
		if err != nil {
			logg.Fatal("Failed to open report archive", zap.Error(err))
		}

		// 4. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 2.5 Health check (Public)
		app.Get("/healthz", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 4. Report Routes
		app.Get("/report", func(c *fiber.Ctx) error {
			body, err := archive.Latest(c.Context())
			if err != nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "no report available",
				})
			}
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		})
		app.Get("/runs", func(c *fiber.Ctx) error {
			runs, err := archive.ListRuns(c.Context())
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to list runs",
				})
			}
			return c.JSON(fiber.Map{"runs": runs})
		})

		// 5. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 6. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
