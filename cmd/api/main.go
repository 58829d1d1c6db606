package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/presswire-api/internal/application/admin"
	"github.com/presswire-api/internal/application/generate"
	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/infrastructure/dns"
	"github.com/presswire-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/presswire-api/internal/infrastructure/jwt"
	"github.com/presswire-api/internal/infrastructure/openrouter"
	redisstore "github.com/presswire-api/internal/infrastructure/redis"
	s3infra "github.com/presswire-api/internal/infrastructure/s3"
	"github.com/presswire-api/internal/infrastructure/smtp"
	"github.com/presswire-api/internal/infrastructure/sns"
	stripeinfra "github.com/presswire-api/internal/infrastructure/stripe"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/presswire-api/internal/pkg/logger"
	"github.com/presswire-api/internal/pkg/ratelimit"
	transporthttp "github.com/presswire-api/internal/transport/http"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cmd := &cli.Command{
		Name:           "presswire-api",
		Usage:          "Domain-verified press release API",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: serve,
			},
			{
				Name:   "admin-token",
				Usage:  "Print a one-hour admin publish grant",
				Action: adminToken,
			},
			{
				Name:      "hash-secret",
				Usage:     "Print the bcrypt hash to set as ADMIN_TOKEN_HASH",
				ArgsUsage: "<secret>",
				Action:    hashSecret,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	content, err := openContentStore(ctx, cfg)
	if err != nil {
		return err
	}

	notifier, err := sns.NewNotifier(ctx, cfg)
	if err != nil {
		slog.Warn("sns notifier not available, logging instead", "err", err)
		notifier = sns.LogNotifier{}
	}

	disp := dispatch.New(dispatch.Options{
		Workers:     cfg.Dispatch.Workers,
		QueueSize:   cfg.Dispatch.QueueSize,
		Rate:        cfg.Dispatch.Rate,
		TaskTimeout: cfg.Timeouts.Email,
	})
	// Workers outlive ctx so Shutdown can drain queued email.
	disp.Start(context.Background())

	deps := &transporthttp.Deps{
		Store:      store,
		MX:         dns.NewMXChecker(nil, cfg.Timeouts.DNS),
		Mailer:     smtp.NewMailer(cfg),
		Notifier:   notifier,
		Content:    content,
		LLM:        openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterURL, cfg.PublicBaseURL, cfg.Timeouts.LLM),
		Webhooks:   stripeinfra.NewVerifier(cfg.StripeWebhookSecret),
		Grants:     grantProvider(cfg),
		Dispatcher: disp,
	}
	services := transporthttp.NewServices(cfg, deps)
	if err := services.Discounts.Seed(ctx); err != nil {
		slog.Warn("built-in discount codes not seeded", "err", err)
	}

	limiter := ratelimit.New(cfg.RateLimits, cfg.PermanentBlocklist)
	router := transporthttp.NewRouter(cfg, services, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Timeouts.LLM + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.Mode, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := disp.Shutdown(10 * time.Second); err != nil {
		slog.Warn("background tasks abandoned", "err", err)
	}
	slog.Info("server stopped")
	return nil
}

// openStore selects the key-value backend. Every call is bounded by the
// storage timeout.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	var (
		store   kv.Store
		closeFn = func() {}
	)
	switch cfg.StoreBackend {
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTableKV)
		store = dynamo.NewStore(client, cfg.DynamoTableKV)
	case "redis":
		rdb, err := redisstore.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store = redisstore.NewStore(rdb)
		closeFn = func() { _ = rdb.Close() }
	case "memory", "":
		if cfg.Mode.IsProduction() {
			slog.Warn("memory store in production: state is per-process and lost on restart")
		}
		store = kv.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return kv.WithTimeout(store, cfg.Timeouts.Storage), closeFn, nil
}

func openContentStore(ctx context.Context, cfg *config.Config) (generate.ContentStore, error) {
	if cfg.S3BucketName == "" {
		slog.Warn("S3_BUCKET_NAME not set, release pages are not stored")
		return s3infra.NopStore{}, nil
	}
	client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s3infra.NewStore(client, cfg.S3BucketName), nil
}

func grantProvider(cfg *config.Config) *jwtinfra.Provider {
	if cfg.GrantSigningSecret == "" {
		slog.Warn("GRANT_SIGNING_SECRET not set, admin and payment bearers disabled")
		return nil
	}
	p, err := jwtinfra.NewProvider(cfg.GrantSigningSecret)
	if err != nil {
		slog.Warn("grant provider not available", "err", err)
		return nil
	}
	return p
}

func adminToken(ctx context.Context, _ *cli.Command) error {
	cfg := config.Load()
	p := grantProvider(cfg)
	if p == nil {
		return errors.New("GRANT_SIGNING_SECRET must be set to at least 32 bytes")
	}
	g, err := admin.NewService(admin.ServiceDeps{Signer: p}).IssueReleaseGrant(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s\nexpires %s\n", g.Token, g.ExpiresAt.Format(time.RFC3339))
	return nil
}

func hashSecret(_ context.Context, cmd *cli.Command) error {
	secret := cmd.Args().First()
	if secret == "" {
		return errors.New("usage: presswire-api hash-secret <secret>")
	}
	h, err := admin.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}
