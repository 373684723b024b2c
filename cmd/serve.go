package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"content-sync/core/config"
	"content-sync/core/loader"
	"content-sync/core/logger"
	"content-sync/core/middleware/auth"
	"content-sync/core/middleware/rayid"
	"content-sync/core/pacing"
	"content-sync/core/retry"
	"content-sync/feature/pages"
	"content-sync/feature/status"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd starts the status API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API server",
	Long:  `Serves run history, archived reports and category activity over HTTP.`,
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer l.Sync()

	ctx := cmd.Context()

	mgr := loader.NewManager(l)
	mgr.Register(status.NewFeature(openJournal(ctx, cfg, l), openArchive(cfg, l), l))
	if feature := newPagesFeature(ctx, cfg, l); feature != nil {
		mgr.Register(feature)
	}

	app, err := newServerApp(cfg, l, mgr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting server", zap.String("address", cfg.Server.Address()))
		errCh <- app.Listen(cfg.Server.Address())
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return err
	case <-sig:
	}

	l.Info("Shutting down server...")
	return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
}

// newServerApp builds the Fiber app with middleware and every enabled feature.
func newServerApp(cfg *config.Config, l *zap.Logger, mgr *loader.Manager) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Ray id first so every later log line carries it
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		rl := logger.WithRayID(l, c)
		rl.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			rl.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Use(auth.New(auth.Config{
		ApiKey: cfg.Server.ApiKey,
		Public: []string{"/health"},
	}))

	if err := mgr.LoadAll(app); err != nil {
		return nil, err
	}
	return app, nil
}

// newPagesFeature returns the activity feature, nil when the ledger is unreachable.
func newPagesFeature(ctx context.Context, cfg *config.Config, l *zap.Logger) *pages.Feature {
	book, err := openLedger(ctx, cfg, l)
	if err != nil {
		l.Warn("Ledger unavailable, pages feature disabled", zap.Error(err))
		return nil
	}

	svc, err := pages.NewService(cfg.XMLRPC, book, nil, retry.NewExecutor(cfg.Sync.Policy(), l), pacing.None{}, l)
	if err != nil {
		l.Warn("Invalid page configuration, pages feature disabled", zap.Error(err))
		return nil
	}
	return pages.NewFeature(svc)
}
