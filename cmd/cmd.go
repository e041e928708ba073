package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/blink-integration/internal/pkg/blink"
	"github.com/anicoll/blink-integration/internal/pkg/config"
	"github.com/anicoll/blink-integration/internal/pkg/credential"
	"github.com/anicoll/blink-integration/internal/pkg/database"
	"github.com/anicoll/blink-integration/internal/pkg/database/migration"
	"github.com/anicoll/blink-integration/internal/pkg/influx"
	"github.com/anicoll/blink-integration/internal/pkg/model"
	"github.com/anicoll/blink-integration/internal/pkg/mqtt"
	"github.com/anicoll/blink-integration/internal/pkg/poller"
	"github.com/anicoll/blink-integration/internal/pkg/reconcile"
	"github.com/anicoll/blink-integration/internal/pkg/relay"
	"github.com/anicoll/blink-integration/internal/pkg/server"
	"github.com/anicoll/blink-integration/internal/pkg/store"
	"github.com/anicoll/blink-integration/pkg/hasher"
)

const (
	fromMqtt        = "mqtt"
	shutdownTimeout = 5 * time.Second
)

var (
	ErrNoDatabase = errors.New("database url is required")

	errCron = errors.New("cron error")
)

// BlinkCommand reads the configuration from the environment, applies the
// command line flags on top and runs until interrupted.
func BlinkCommand(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(ctx, cfg)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(sigCtx, cfg)
}

// HashPasswordCommand prints the bcrypt hash to use as HTTP_PASSWORD_HASH.
func HashPasswordCommand(ctx *cli.Context) error {
	hash, err := hasher.HashPassword([]byte(ctx.Args().First()))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, hash)
	return err
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	setString("blink-username", &cfg.BlinkCfg.Username)
	setString("blink-password", &cfg.BlinkCfg.Password)
	setString("blink-network", &cfg.BlinkCfg.Network)
	setString("mqtt-host", &cfg.MqttCfg.Host)
	setString("mqtt-user", &cfg.MqttCfg.Username)
	setString("mqtt-pass", &cfg.MqttCfg.Password)
	setString("influx-url", &cfg.InfluxCfg.URL)
	setString("influx-token", &cfg.InfluxCfg.Token)
	setString("http-addr", &cfg.ServerCfg.Addr)
	setString("jwt-secret", &cfg.ServerCfg.JWTSecret)
	setString("database-url", &cfg.DatabaseURL)
	setString("migrations-folder", &cfg.MigrationsFolder)
	setString("namespace", &cfg.Namespace)
	setString("log-level", &cfg.LogLevel)
	if ctx.IsSet("poll-interval") {
		cfg.BlinkCfg.PollInterval = ctx.Duration("poll-interval")
	}
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if cfg.DatabaseURL == "" {
		return ErrNoDatabase
	}
	if cfg.MigrationsFolder != "" {
		if err := migration.Migrate(cfg.DatabaseURL, cfg.MigrationsFolder); err != nil {
			return err
		}
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	db := database.NewDatabase(pool)
	defer db.Close()

	// the stored password is obfuscated with the system secret.
	blinkCfg := *cfg.BlinkCfg
	blinkCfg.Password = credential.Unwrap(ctx, db, cfg.BlinkCfg.Password, logger)
	blinkSvc := blink.New(&blinkCfg, blink.WithLogger(logger))

	a, err := newApp(ctx, cfg, blinkSvc, db, logger)
	if err != nil {
		return err
	}

	if cfg.MqttCfg.Host != "" {
		mqttSvc := mqtt.New(paho_mqtt.NewClient(mqtt.NewClientOptions(cfg.MqttCfg)), cfg.MqttCfg.Prefix)
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		if err := a.store.RegisterBackend("mqtt", mqttSvc); err != nil {
			return err
		}
		if err := mqttSvc.SubscribeCommands(a.command(fromMqtt)); err != nil {
			return err
		}
	}

	if cfg.InfluxCfg.URL != "" {
		influxSvc, err := influx.Connect(ctx, cfg.InfluxCfg)
		if err != nil {
			return err
		}
		defer influxSvc.Close()
		if err := a.store.RegisterBackend("influx", influxSvc); err != nil {
			return err
		}
	}

	return a.run(ctx)
}

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     Database
	store  *store.Store
	poller *poller.Poller
	relay  *relay.Relay
	hub    *server.Hub
	api    http.Handler
}

// newApp restores the state tree from the database and wires the sync
// engine, the relay and the API around it.
func newApp(ctx context.Context, cfg *config.Config, remote BlinkService, db Database, logger *zap.Logger) (*app, error) {
	st := store.New(cfg.Namespace, store.WithLogger(logger))
	decls, err := db.GetObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore objects: %w", err)
	}
	states, err := db.GetStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore states: %w", err)
	}
	st.Restore(decls, states)
	if err := st.RegisterBackend("postgres", db); err != nil {
		return nil, err
	}

	// the remote has one selected network; polls and commands take turns.
	scope := &sync.Mutex{}
	p := poller.New(remote, reconcile.New(st, reconcile.WithLogger(logger)), cfg.BlinkCfg.PollInterval,
		poller.WithLogger(logger), poller.WithScopeLock(scope))

	rl := relay.New(remote, relay.WithLogger(logger), relay.WithScopeLock(scope))
	st.Subscribe(rl.Enqueue)
	hub := server.NewHub(logger)
	st.Subscribe(hub.HandleStateChange)

	api, err := server.New(st, db, p, hub, cfg.ServerCfg, server.WithLogger(logger)).Handler()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  st,
		poller: p,
		relay:  rl,
		hub:    hub,
		api:    api,
	}, nil
}

func (a *app) command(from string) mqtt.CommandHandler {
	return func(path string, val model.Value) {
		if err := a.store.Command(context.Background(), path, val, from); err != nil {
			a.logger.Warn("rejected command", zap.String("path", path), zap.String("from", from), zap.Error(err))
		}
	}
}

func (a *app) run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return a.poller.Run(ctx)
	})

	eg.Go(func() error {
		return a.relay.Run(ctx)
	})

	eg.Go(func() error {
		return a.hub.Run(ctx)
	})

	eg.Go(func() error {
		return cronDbCleanup(ctx, a.db, a.cfg.CleanupSchedule)
	})

	if a.cfg.ServerCfg.Addr != "" {
		srv := &http.Server{
			Handler:      a.api,
			Addr:         a.cfg.ServerCfg.Addr,
			WriteTimeout: 15 * time.Second,
			ReadTimeout:  15 * time.Second,
		}
		eg.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := eg.Wait()
	a.logger.Info("stopped", zap.Error(err))
	return err
}

func cronDbCleanup(ctx context.Context, db Database, schedule string) error {
	if err := db.Cleanup(ctx); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}

	// CRON automation
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := db.Cleanup(context.Background()); err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			return
		}
		zap.L().Info("state history cleaned up")
	}); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
