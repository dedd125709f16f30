package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/skillflow/internal/alerts"
	"github.com/sudo-init-do/skillflow/internal/api"
	"github.com/sudo-init-do/skillflow/internal/clock"
	"github.com/sudo-init-do/skillflow/internal/config"
	"github.com/sudo-init-do/skillflow/internal/db"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/logger"
	"github.com/sudo-init-do/skillflow/internal/marketplace"
	"github.com/sudo-init-do/skillflow/internal/messaging"
	"github.com/sudo-init-do/skillflow/internal/metrics"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
	"github.com/sudo-init-do/skillflow/internal/oracle"
	"github.com/sudo-init-do/skillflow/internal/skilltoken"
	"github.com/sudo-init-do/skillflow/internal/sweeper"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	collector := metrics.NewCollector("skillflow")
	fanout := events.NewFanout(log)
	fanout.Add("metrics", collector)

	opts := api.Options{
		Secret:  []byte(cfg.JWTSecret),
		Limiter: mware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst, log),
		Metrics: collector.Handler(),
		Log:     log,
	}

	// Postgres is optional: without it the journal and inbox are off.
	var conn *sql.DB
	if dsn := cfg.DSN(); dsn != "" {
		var err error
		conn, err = db.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := db.EnsureSchema(ctx, conn, log); err != nil {
			return err
		}
		journal := db.NewJournal(conn)
		fanout.Add("journal", journal)
		opts.Journal = journal
		opts.Notifications = alerts.NewHandler(db.NewNotifications(conn))
		opts.Ready = readiness(conn, nil)
	} else {
		log.Warn("DB_HOST not set; event journal and notifications disabled")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		client := asynq.NewClientFromRedisClient(rdb)
		defer client.Close()
		opts.Ready = readiness(conn, rdb)
		fanout.Add("alerts", alerts.NewNotifier(client, cfg.Admins()))

		if conn != nil {
			worker := alerts.NewServer(cfg.RedisAddr, log)
			if err := worker.Start(alerts.NewProcessor(db.NewNotifications(conn), log).Mux()); err != nil {
				return err
			}
			defer worker.Shutdown()
		}
	} else {
		log.Warn("REDIS_ADDR not set; notification tasks disabled")
	}

	clk := clock.NewLogical(1)
	engine, err := marketplace.New(marketplace.Deps{
		Params:             cfg.Params,
		Clock:              clk,
		Wallets:            wallet.NewBook(),
		Oracle:             oracle.NewStatic(cfg.STXPriceUSD, cfg.STXConfidence, cfg.Params.PlatformFeeRate, cfg.Params.RushFeeSurcharge),
		Tokens:             skilltoken.NewMemory(true),
		Events:             fanout,
		Rejections:         collector,
		Log:                log,
		Admins:             cfg.Admins(),
		Treasury:           cfg.Treasury,
		SuggestionOperator: cfg.SuggestionOperator,
	})
	if err != nil {
		return err
	}

	hub := messaging.NewHub(func(id uint64, account string) (bool, bool) {
		s, err := engine.Service(id)
		if err != nil {
			return false, false
		}
		return true, account == s.Client || (s.Provider != "" && account == s.Provider)
	}, log)
	fanout.Add("websocket", hub)
	opts.Feed = hub.ServiceFeed

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(collector.Middleware())
	api.New(engine, opts).Routes(e)

	sweeper.New(clk, engine, collector.SetTick, log).Start(ctx, cfg.TickInterval)

	errc := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

// readiness pings whichever backing stores are configured.
func readiness(conn *sql.DB, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if conn != nil {
			if err := conn.PingContext(ctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}
