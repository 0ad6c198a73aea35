package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openfoundry/outreach/internal/config"
	"github.com/openfoundry/outreach/internal/discovery"
	"github.com/openfoundry/outreach/internal/httpserver"
	"github.com/openfoundry/outreach/internal/httpserver/deps"
	"github.com/openfoundry/outreach/internal/index"
	"github.com/openfoundry/outreach/internal/logger"
	"github.com/openfoundry/outreach/internal/mailing"
	"github.com/openfoundry/outreach/internal/redis"
	"github.com/openfoundry/outreach/internal/scheduler"
	"github.com/openfoundry/outreach/internal/store/jsonfile"
	redisstore "github.com/openfoundry/outreach/internal/store/redis"
	"github.com/openfoundry/outreach/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	registry    *index.Registry
	store       *jsonfile.Store
	discoverer  *scheduler.DiscoveryRunner
	outreach    *scheduler.OutreachRunner
	pruner      *scheduler.LogPruner
	summary     *scheduler.SummaryRunner
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Shared counters are optional: no Redis address means single-instance
	// mode with registry-only counting.
	var redisClient *goredis.Client
	var counters scheduler.Counters
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		counters = redisstore.NewStore(redisClient)
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("no Redis address configured, shared counters disabled")
	}

	// Load the data files into the registry before anything can send.
	store := jsonfile.New(cfg.DataDir)
	registry := index.NewRegistry()
	cols, err := store.Load()
	if err != nil {
		loggerClient.Errorf("Failed to load data files from %s: %v", cfg.DataDir, err)
		os.Exit(1)
	}
	registry.Load(cols)
	loggerClient.Info("registry loaded",
		logger.Int("contacts", registry.ContactCount()),
		logger.Int("organizations", registry.OrganizationCount()))

	scraper := discovery.NewScraper(cfg.FetchTimeout, cfg.FetchDelay, loggerClient)

	discoveryTrigger := make(chan struct{}, 1)
	discoverer := scheduler.NewDiscoveryRunner(
		cfg.TargetsFile,
		scraper,
		registry,
		store,
		loggerClient,
		cfg.DiscoveryInterval,
		cfg.ScrapeCooldown,
		discoveryTrigger,
	)

	engine := mailing.NewEngine(cfg.FromName, cfg.OptOutURL)
	mailer := mailing.NewMailer(mailing.MailerOptions{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		ReplyTo:     cfg.ReplyTo,
		BCCAddress:  cfg.BCCAddress,
		DryRun:      cfg.DryRun,
	}, loggerClient)

	outreach := scheduler.NewOutreachRunner(
		registry,
		store,
		counters,
		engine,
		mailer,
		scheduler.Policy{
			CooldownDays: cfg.CooldownDays,
			MaxDaily:     cfg.MaxDaily,
			MaxPerOrg:    cfg.MaxPerOrg,
		},
		cfg.SendDelay,
		loggerClient,
		cfg.OutreachInterval,
	)

	pruner := scheduler.NewLogPruner(
		registry,
		store,
		loggerClient,
		cfg.PruneInterval,
		cfg.LogRetention,
	)

	var summary *scheduler.SummaryRunner
	if cfg.NotifyAddress != "" {
		summary = scheduler.NewSummaryRunner(
			registry,
			mailer,
			cfg.NotifyAddress,
			loggerClient,
			cfg.SummaryInterval,
		)
	} else {
		loggerClient.Info("no notify address configured, operator summary disabled")
	}

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedHosts:     cfg.AllowedHosts,
		AllowedCIDRS:     cfg.AllowedCIDRS,
		TrustProxy:       cfg.TrustProxy,
		Registry:         registry,
		Store:            store,
		DiscoveryTrigger: discoveryTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		registry:    registry,
		store:       store,
		discoverer:  discoverer,
		outreach:    outreach,
		pruner:      pruner,
		summary:     summary,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Outreach v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Outreach %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)
	if a.cfg.DryRun {
		a.logger.Warn("dry-run mode: messages are rendered but never sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.discoverer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start discovery runner: %w", err)
	}
	a.logger.Info("discovery runner started",
		logger.Duration("interval", a.cfg.DiscoveryInterval))

	if err := a.outreach.Start(ctx); err != nil {
		return fmt.Errorf("failed to start outreach runner: %w", err)
	}
	a.logger.Info("outreach runner started",
		logger.Duration("interval", a.cfg.OutreachInterval))

	if err := a.pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start log pruner: %w", err)
	}
	a.logger.Info("log pruner started",
		logger.Duration("interval", a.cfg.PruneInterval))

	if a.summary != nil {
		if err := a.summary.Start(ctx); err != nil {
			return fmt.Errorf("failed to start summary runner: %w", err)
		}
		a.logger.Info("summary runner started",
			logger.Duration("interval", a.cfg.SummaryInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.discoverer.Stop()
	a.outreach.Stop()
	a.pruner.Stop()
	if a.summary != nil {
		a.summary.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Final persist so nothing recorded mid-cycle is lost.
	if err := a.store.Save(a.registry.Export()); err != nil {
		a.logger.Errorf("failed to persist on shutdown: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Outreach stopped cleanly")
	return nil
}
