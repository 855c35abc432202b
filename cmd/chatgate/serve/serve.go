// Package servecmder provides the serve command that runs the gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatgate/gateway"
	"github.com/papercomputeco/chatgate/pkg/chat"
	"github.com/papercomputeco/chatgate/pkg/config"
	"github.com/papercomputeco/chatgate/pkg/credentials"
	"github.com/papercomputeco/chatgate/pkg/llm/provider"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/telemetry"
)

type serveCommander struct {
	configDir string
	debug     bool
	cfg       *config.Config

	// Flag targets. Values are read back through viper.
	listen       string
	provider     string
	authToken    string
	heartbeat    time.Duration
	workers      uint
	sqlitePath   string
	postgresDSN  string
	kafkaBrokers string
	kafkaTopic   string
	otlpEndpoint string

	logFile string

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagAuthToken,
	config.FlagHeartbeat,
	config.FlagWorkers,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagOTLPEndpoint,
}

const serveLongDesc string = `Run the chatgate gateway.

The gateway accepts chat requests on POST /v1/chat/stream, routes each one to
the provider that serves the requested model, and relays the reply as
server-sent events. Completed turns are stored and optionally published to
Kafka.

API keys come from credentials.toml (see "chatgate auth") or the provider
environment variables, and are reloaded when credentials.toml changes.

Every flag can also be set in config.toml or as a CHATGATE_* environment
variable, e.g. CHATGATE_GATEWAY_LISTEN.

Examples:
  chatgate serve
  chatgate serve --log-file ./chatgate.log
  chatgate serve --provider anthropic --sqlite ./turns.db
  chatgate serve --kafka-brokers localhost:9092 --heartbeat 15s`

const serveShortDesc string = "Run the chatgate gateway"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.cfg, err = config.Resolve(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagAuthToken, &cmder.authToken)
	config.AddDurationFlag(cmd, config.Flags, config.FlagHeartbeat, &cmder.heartbeat)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddStringFlag(cmd, config.Flags, config.FlagOTLPEndpoint, &cmder.otlpEndpoint)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(c.debug),
			logger.WithWriter(f),
		))
	}

	heartbeat, err := c.cfg.Gateway.HeartbeatInterval()
	if err != nil {
		return err
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	store, err := credentials.NewStore(mgr, c.logger)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	go func() {
		if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("credentials watcher stopped", "error", err)
		}
	}()

	registry, err := provider.NewRegistry(
		c.cfg.Gateway.DefaultProvider,
		c.logger,
		buildAdapters(c.cfg.Providers, store, c.logger)...,
	)
	if err != nil {
		return fmt.Errorf("creating provider registry: %w", err)
	}
	probeProviders(ctx, os.Stderr, registry)

	tp, shutdownTracing, err := telemetry.Setup(ctx, c.cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			c.logger.Warn("flushing traces", "error", err)
		}
	}()

	driver, err := newStorageDriver(ctx, c.cfg.Storage, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := newPublisher(c.cfg.Events, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	orchestrator := chat.New(registry, c.logger, chat.WithTracerProvider(tp))

	server, err := gateway.New(gateway.Config{
		ListenAddr: c.cfg.Gateway.Listen,
		AuthToken:  c.cfg.Gateway.AuthToken,
		Heartbeat:  heartbeat,
		Publisher:  publisher,
		Workers:    c.cfg.Gateway.Workers,
	}, orchestrator, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		_ = server.Close()
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down gateway")
		return server.Close()
	}
}
