package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/adapters/db/sqldb"
	httpadapter "github.com/atvirokodosprendimai/accessdesk/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/accessdesk/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/accessdesk/internal/application"
	"github.com/atvirokodosprendimai/accessdesk/internal/config"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/atvirokodosprendimai/accessdesk/internal/events"
	"github.com/atvirokodosprendimai/accessdesk/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "accessdesk",
		Usage: "Software access request server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			softwareCommand(),
			requestCommand(),
			auditCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML config file", Sources: cli.EnvVars("ACCESSDESK_CONFIG")},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address", Sources: cli.EnvVars("ACCESSDESK_ADDR")},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("ACCESSDESK_RPC_SOCKET")},
			&cli.StringFlag{Name: "db-driver", Usage: "sqlite or postgres", Sources: cli.EnvVars("ACCESSDESK_DB_DRIVER")},
			&cli.StringFlag{Name: "db-dsn", Usage: "database path or connection string", Sources: cli.EnvVars("ACCESSDESK_DB_DSN")},
			&cli.StringFlag{Name: "jwt-secret", Usage: "HMAC secret for access tokens", Sources: cli.EnvVars("ACCESSDESK_JWT_SECRET", "JWT_SECRET")},
			&cli.DurationFlag{Name: "token-ttl", Usage: "access token lifetime", Sources: cli.EnvVars("ACCESSDESK_TOKEN_TTL")},
			&cli.StringFlag{Name: "bootstrap-admin-username", Usage: "initial admin when no users exist", Sources: cli.EnvVars("ACCESSDESK_BOOTSTRAP_USERNAME")},
			&cli.StringFlag{Name: "bootstrap-admin-password", Usage: "initial admin password", Sources: cli.EnvVars("ACCESSDESK_BOOTSTRAP_PASSWORD")},
			&cli.StringFlag{Name: "policy", Usage: "permissive or strict", Sources: cli.EnvVars("ACCESSDESK_POLICY")},
			&cli.BoolFlag{Name: "enforce-transitions", Usage: "reject status changes out of Approved or Rejected", Sources: cli.EnvVars("ACCESSDESK_ENFORCE_TRANSITIONS")},
			&cli.StringSliceFlag{Name: "cors-origin", Usage: "allowed CORS origin, repeatable", Sources: cli.EnvVars("ACCESSDESK_CORS_ORIGINS")},
			&cli.BoolFlag{Name: "secure-cookies", Usage: "mark dashboard session cookies Secure (serve over TLS)", Sources: cli.EnvVars("ACCESSDESK_SECURE_COOKIES")},
			&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for shared login throttling", Sources: cli.EnvVars("ACCESSDESK_REDIS_ADDR")},
			&cli.IntFlag{Name: "login-rate-limit", Usage: "login attempts per window, 0 disables", Sources: cli.EnvVars("ACCESSDESK_LOGIN_RATE_LIMIT")},
			&cli.DurationFlag{Name: "login-rate-window", Usage: "login throttling window", Sources: cli.EnvVars("ACCESSDESK_LOGIN_RATE_WINDOW")},
			&cli.StringSliceFlag{Name: "kafka-broker", Usage: "Kafka broker for request events, repeatable", Sources: cli.EnvVars("ACCESSDESK_KAFKA_BROKERS")},
			&cli.StringFlag{Name: "kafka-topic", Usage: "Kafka topic for request events", Sources: cli.EnvVars("ACCESSDESK_KAFKA_TOPIC")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			applyServerFlags(c, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServer(ctx, cfg)
		},
	}
}

// applyServerFlags overrides file values with flags and environment variables
// that were explicitly set.
func applyServerFlags(c *cli.Command, cfg *config.Config) {
	if c.IsSet("addr") {
		cfg.HTTP.Addr = c.String("addr")
	}
	if c.IsSet("rpc-socket") {
		cfg.RPC.Socket = c.String("rpc-socket")
	}
	if c.IsSet("db-driver") {
		cfg.Database.Driver = c.String("db-driver")
	}
	if c.IsSet("db-dsn") {
		cfg.Database.DSN = c.String("db-dsn")
	}
	if c.IsSet("jwt-secret") {
		cfg.Auth.JWTSecret = c.String("jwt-secret")
	}
	if c.IsSet("token-ttl") {
		cfg.Auth.TokenTTL = c.Duration("token-ttl")
	}
	if c.IsSet("bootstrap-admin-username") {
		cfg.Auth.BootstrapUsername = c.String("bootstrap-admin-username")
	}
	if c.IsSet("bootstrap-admin-password") {
		cfg.Auth.BootstrapPassword = c.String("bootstrap-admin-password")
	}
	if c.IsSet("policy") {
		cfg.Policy.Mode = c.String("policy")
	}
	if c.IsSet("enforce-transitions") {
		cfg.Policy.EnforceTransitions = c.Bool("enforce-transitions")
	}
	if c.IsSet("cors-origin") {
		cfg.HTTP.CORSOrigins = c.StringSlice("cors-origin")
	}
	if c.IsSet("secure-cookies") {
		cfg.HTTP.SecureCookies = c.Bool("secure-cookies")
	}
	if c.IsSet("redis-addr") {
		cfg.Redis.Addr = c.String("redis-addr")
	}
	if c.IsSet("login-rate-limit") {
		cfg.Auth.LoginRateLimit = c.Int("login-rate-limit")
	}
	if c.IsSet("login-rate-window") {
		cfg.Auth.LoginRateWindow = c.Duration("login-rate-window")
	}
	if c.IsSet("kafka-broker") {
		cfg.Kafka.Brokers = c.StringSlice("kafka-broker")
	}
	if c.IsSet("kafka-topic") {
		cfg.Kafka.Topic = c.String("kafka-topic")
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	db, err := sqldb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := sqldb.RunMigrations(ctx, db, cfg.Database.Driver); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	policy, err := cfg.PolicyValue()
	if err != nil {
		return err
	}

	hub := events.NewHub()
	publishers := events.Multi{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return err
		}
		defer func() { _ = kp.Close() }()
		publishers = append(publishers, kp)
		log.Printf("publishing request events to kafka topic %s", cfg.Kafka.Topic)
	}

	repo := sqldb.NewRepository(db)
	service := application.NewService(repo, []byte(cfg.Auth.JWTSecret),
		application.WithPolicy(policy),
		application.WithTokenTTL(cfg.Auth.TokenTTL),
		application.WithPublisher(publishers),
	)
	if cfg.Auth.BootstrapUsername != "" {
		if err := service.BootstrapAdmin(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword); err != nil {
			return err
		}
	}

	var limiter domain.Limiter = ratelimit.NewMemory(cfg.Auth.LoginRateWindow)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = client.Close() }()
		limiter = ratelimit.NewRedis(client, cfg.Auth.LoginRateWindow)
		log.Printf("login throttling backed by redis at %s", cfg.Redis.Addr)
	}

	router := httpadapter.NewRouter(service, httpadapter.Options{
		Limiter:        limiter,
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		Hub:            hub,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		SecureCookies:  cfg.HTTP.SecureCookies,
	})
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPC.Socket, service)
	if err != nil {
		return err
	}

	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.RPC.Socket)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s (policy %s)", srv.Addr, policy.Mode)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
