package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-board/pkg/board"
	"github.com/tendant/simple-board/pkg/board/api"
	"github.com/tendant/simple-board/pkg/board/auth"
	"github.com/tendant/simple-board/pkg/board/media"
	"github.com/tendant/simple-board/pkg/board/repo/memory"
	repopg "github.com/tendant/simple-board/pkg/board/repo/postgres"
	reporedis "github.com/tendant/simple-board/pkg/board/repo/redis"
	fsstorage "github.com/tendant/simple-board/pkg/board/storage/fs"
	memorystorage "github.com/tendant/simple-board/pkg/board/storage/memory"
	s3storage "github.com/tendant/simple-board/pkg/board/storage/s3"
)

// Stores holds the opened persistence backends
type Stores struct {
	Repository board.Repository
	Sequences  board.SequenceStore

	closers []func()
}

// Close releases pools and clients in reverse order of creation
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects the document repository and the sequence store.
// On error everything opened so far is closed.
func (c *Config) OpenStores(ctx context.Context) (_ *Stores, err error) {
	stores := &Stores{}
	defer func() {
		if err != nil {
			stores.Close()
		}
	}()

	repo, pool, err := c.buildRepository(ctx, stores)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	stores.Repository = repo

	sequences, err := c.buildSequenceStore(ctx, stores, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to build sequence store: %w", err)
	}
	stores.Sequences = sequences
	return stores, nil
}

// App is a fully wired server
type App struct {
	Handler  http.Handler
	Contents board.Service
	Auth     auth.Service
	Logger   *slog.Logger

	stores *Stores
}

// Close releases the stores behind the app
func (a *App) Close() {
	if a.stores != nil {
		a.stores.Close()
	}
}

// Build wires stores, services and the HTTP router from the configuration.
func (c *Config) Build(ctx context.Context) (_ *App, err error) {
	stores, err := c.OpenStores(ctx)
	if err != nil {
		return nil, err
	}
	app := &App{Logger: c.NewLogger(), stores: stores}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()
	logger := app.Logger
	location := c.Location()
	repo := stores.Repository

	blobs, static, err := c.buildBlobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}

	uploader := media.NewUploader(blobs, media.Config{
		AllowedTypes: c.Image.AllowedTypes,
		MaxSize:      c.Image.MaxSize,
		MaxDimension: c.Image.MaxDimension,
		Quality:      c.Image.Quality,
	}, media.WithLogger(logger))

	contents, err := board.New(
		board.WithRepository(repo),
		board.WithSequenceStore(stores.Sequences),
		board.WithRetryPolicy(board.RetryPolicy{
			MaxAttempts:    c.Sequence.MaxAttempts,
			BaseDelay:      c.Sequence.BaseDelay,
			AttemptTimeout: board.DefaultRetryPolicy.AttemptTimeout,
		}),
		board.WithImageUploader(uploader),
		board.WithLogger(logger),
		board.WithLocation(location),
	)
	if err != nil {
		return nil, err
	}

	identity, err := c.buildIdentityProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to build identity provider: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(c.Auth.JWTSecret,
		time.Duration(c.Auth.AccessTokenMinutes)*time.Minute,
		time.Duration(c.Auth.RefreshTokenDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.New(repo, identity, tokens, auth.WithLogger(logger), auth.WithLocation(location))
	if err != nil {
		return nil, err
	}

	if c.Auth.BootstrapAdminEmail != "" {
		if _, err := authSvc.EnsureAdmin(ctx, c.Auth.BootstrapAdminEmail, c.Auth.BootstrapAdminPasswd, c.Auth.BootstrapAdminName); err != nil {
			return nil, err
		}
	}

	app.Contents = contents
	app.Auth = authSvc
	app.Handler = api.NewRouter(api.RouterConfig{
		Contents:       contents,
		Auth:           authSvc,
		Tokens:         tokens,
		Uploader:       uploader,
		Logger:         logger,
		AllowedOrigins: c.AllowedOrigins,
		MaxUploadBytes: c.MaxUploadBytes,
		RequestTimeout: c.RequestTimeout,
		Static:         static,
		StaticPrefix:   c.Storage.StaticPrefix,
	})
	return app, nil
}

// buildRepository returns the document store and, for Postgres, the pool
// behind it.
func (c *Config) buildRepository(ctx context.Context, stores *Stores) (board.Repository, *pgxpool.Pool, error) {
	if !c.UsesPostgres() {
		return memory.New(), nil, nil
	}

	cfg, err := pgxpool.ParseConfig(c.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.Database.Schema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	stores.closers = append(stores.closers, pool.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	if c.Database.AutoMigrate {
		if schema != "" {
			if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
				return nil, nil, fmt.Errorf("create schema: %w", err)
			}
		}
		if err := repopg.Migrate(ctx, pool); err != nil {
			return nil, nil, err
		}
	}
	return repopg.NewWithPool(pool), pool, nil
}

func (c *Config) buildSequenceStore(ctx context.Context, stores *Stores, pool *pgxpool.Pool) (board.SequenceStore, error) {
	switch c.Sequence.Backend {
	case "redis":
		store, err := reporedis.New(reporedis.Config{URL: c.Sequence.RedisURL, KeyPrefix: c.Sequence.KeyPrefix})
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, func() { _ = store.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store, nil
	case "database":
		if pool != nil {
			return repopg.NewSequenceStore(pool), nil
		}
		return memory.NewSequenceStore(), nil
	default:
		return nil, fmt.Errorf("unsupported sequence backend: %s", c.Sequence.Backend)
	}
}

// buildBlobStore returns the store and, for fs, the handler serving it
func (c *Config) buildBlobStore(ctx context.Context) (board.BlobStore, http.Handler, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(c.Storage.PublicURL), nil, nil
	case "fs":
		prefix := c.Storage.PublicURL
		if prefix == "" {
			prefix = c.Storage.StaticPrefix
		}
		store, err := fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir, URLPrefix: prefix})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Handler(), nil
	case "s3":
		s3 := c.Storage.S3
		store, err := s3storage.New(ctx, s3storage.Config{
			Region:                 s3.Region,
			Bucket:                 s3.Bucket,
			AccessKeyID:            s3.AccessKeyID,
			SecretAccessKey:        s3.SecretAccessKey,
			Endpoint:               s3.Endpoint,
			UsePathStyle:           s3.UsePathStyle,
			PublicBaseURL:          c.Storage.PublicURL,
			EnableSSE:              s3.EnableSSE,
			SSEAlgorithm:           s3.SSEAlgorithm,
			CreateBucketIfNotExist: s3.CreateBucketIfNotExist,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

func (c *Config) buildIdentityProvider() (auth.IdentityProvider, error) {
	switch c.Auth.IdentityProvider {
	case "firebase":
		return auth.NewFirebaseProvider(auth.FirebaseConfig{
			APIKey:   c.Auth.FirebaseWebAPIKey,
			Endpoint: c.Auth.FirebaseEndpoint,
		})
	case "memory":
		return auth.NewMemoryProvider(), nil
	default:
		return nil, errors.New("unsupported identity provider: " + c.Auth.IdentityProvider)
	}
}
