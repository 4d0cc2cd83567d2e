package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MyNameIsWhaaat/bachub/internal/config"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/auth"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/blob"
	forumhttp "github.com/MyNameIsWhaaat/bachub/internal/forum/handler/http"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/ratelimit"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/service"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage/inmemory"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage/postgres"
	"github.com/MyNameIsWhaaat/bachub/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("BACHUB_CONFIG"), "path to YAML config")
	tokenUser := flag.Int64("issue-token", 0, "print a token for this user id and exit")
	tokenStaff := flag.Bool("staff", false, "mark the issued token as staff")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if *tokenUser > 0 {
		tok, err := auth.NewProvider(cfg.JWT.Secret, false).Sign(*tokenUser, *tokenStaff, 24*time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("sign token")
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	repo, closeRepo, err := openRepo(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, closeStore, err := openLimiterStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, mediaDir, err := openBlobs(cfg.Storage)
	if err != nil {
		return err
	}

	mod := cfg.Moderation
	limiter := ratelimit.New(store, map[model.Kind]time.Duration{
		model.KindResource: mod.Cooldowns.Resource,
		model.KindQuestion: mod.Cooldowns.Question,
		model.KindReply:    mod.Cooldowns.Reply,
	})
	svc := service.New(repo, limiter, blobs,
		service.WithLogger(log.With().Str("component", "forum").Logger()),
		service.WithPolicy(service.Policy{
			Threshold: mod.Threshold,
			AnonymousReports: map[model.Kind]bool{
				model.KindResource: mod.AnonymousReports.Resource,
				model.KindQuestion: mod.AnonymousReports.Question,
				model.KindReply:    mod.AnonymousReports.Reply,
			},
		}),
	)

	opts := []forumhttp.Option{forumhttp.WithLogger(log.With().Str("component", "http").Logger())}
	if mediaDir != "" {
		opts = append(opts, forumhttp.WithMedia(mediaDir))
	}
	h := forumhttp.New(svc, auth.NewProvider(cfg.JWT.Secret, cfg.HTTP.TrustProxy), opts...)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepo(ctx context.Context, cfg config.Postgres, log zerolog.Logger) (storage.Repository, func(), error) {
	if cfg.DSN == "" {
		log.Warn().Msg("postgres dsn not set, using in-memory store")
		return inmemory.New(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}

func openLimiterStore(ctx context.Context, cfg config.Redis, log zerolog.Logger) (ratelimit.Store, func(), error) {
	if cfg.Addr == "" {
		log.Warn().Msg("redis addr not set, report cooldowns are kept in process")
		return ratelimit.NewMemoryStore(), func() {}, nil
	}
	client, err := ratelimit.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return ratelimit.NewRedisStore(client), func() { _ = client.Close() }, nil
}

// openBlobs returns the blob store and, for the local driver, the directory
// to serve under /media/.
func openBlobs(cfg config.Storage) (blob.Store, string, error) {
	if cfg.Driver == "s3" {
		s, err := blob.NewS3Store(blob.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Bucket:          cfg.Bucket,
			PublicURL:       cfg.BaseURL,
			ForcePathStyle:  cfg.PathStyle,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	}
	base := cfg.BaseURL
	if base == "" {
		base = "/media"
	}
	s, err := blob.NewLocalStore(cfg.Dir, base)
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}
