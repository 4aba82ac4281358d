package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/suteetoe/leasedesk/internal/handler"
	"github.com/suteetoe/leasedesk/internal/middleware"
	"github.com/suteetoe/leasedesk/pkg/database"
	"github.com/suteetoe/leasedesk/pkg/jwtutil"
	"github.com/suteetoe/leasedesk/pkg/logger"
	"github.com/suteetoe/leasedesk/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.log

			if migrate {
				if err := database.Migrate(a.db); err != nil {
					return err
				}
				log.Info("Database migrations completed")
			}

			e := echo.New()
			e.HideBanner = true
			e.HTTPErrorHandler = handler.ErrorHandler

			e.Use(echomiddleware.Recover())
			e.Use(echomiddleware.CORS())
			e.Use(middleware.RequestIDMiddleware)
			e.Use(metrics.NewHTTPMetrics(serviceName, nil).Middleware())

			// Request logging middleware
			e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					start := time.Now()
					err := next(c)

					logger.FromContext(c).Info("HTTP Request",
						zap.String("method", c.Request().Method),
						zap.String("path", c.Path()),
						zap.Int("status", c.Response().Status),
						zap.Float64("duration_s", time.Since(start).Seconds()),
						zap.String("ip", c.RealIP()),
					)
					return err
				}
			})

			e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))
			handler.RegisterRoutes(e, handler.New(a.db, a.leases), jwtutil.NewJWTUtil(&a.cfg.JWT))

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("Starting server", zap.String("port", a.cfg.Server.Port))
				if err := e.Start(":" + a.cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server")
				}
				return nil
			})
			g.Go(func() error {
				return a.relay().Run(logger.WithContext(gctx, log.With(zap.String("component", "outbox-relay"))))
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return e.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := database.Migrate(a.db); err != nil {
				return err
			}
			a.log.Info("Database migrations completed")
			return nil
		},
	}
}

func relayCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Deliver pending outbox messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx = logger.WithContext(ctx, a.log.With(zap.String("component", "outbox-relay")))

			if once {
				delivered, err := a.relay().RunOnce(ctx)
				if err != nil {
					return err
				}
				a.log.Info("Outbox relay finished", zap.Int("delivered", delivered))
				return nil
			}
			return a.relay().Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "deliver one batch and exit")
	return cmd
}

func expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark ACTIVE leases past their end date as EXPIRED",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			expired, err := a.leases.ExpireDue(logger.WithContext(ctx, a.log), time.Now().UTC())
			if err != nil {
				return err
			}
			a.log.Info("Lease expiry finished", zap.Int("expired", expired))
			return nil
		},
	}
}
