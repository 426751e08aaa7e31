package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/cache"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/events"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup releases the broker and cache connections opened here; the
// pool remains owned by the caller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	var closers []func(context.Context) error
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (handlers.Dependencies, func(context.Context) error, error) {
		_ = cleanup(ctx)
		return handlers.Dependencies{}, nil, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	sessions := auth.NewManager(auth.Options{
		AccessSecret:  cfg.Tokens.AccessSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
	}, users)

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Dashboard:     repositories.NewPostgresDashboardRepository(pool),
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.RateLimit),
		Cookies:       cfg.Cookies,
		Staging: handlers.Staging{
			Dir:      cfg.Media.UploadDir,
			MaxBytes: cfg.Media.MaxUploadBytes,
		},
	}
	deps.TrustedProxies = cfg.HTTP.TrustedProxies
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Health = pinger
	}

	var storage media.AssetStorage
	if cfg.ObjectStore.Bucket != "" {
		s3Storage, err := media.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return fail(fmt.Errorf("configure object storage: %w", err))
		}
		storage = s3Storage
	} else {
		disk, err := media.NewDiskStorage(cfg.Media.LocalDir, cfg.Media.LocalBaseURL)
		if err != nil {
			return fail(fmt.Errorf("configure disk storage: %w", err))
		}
		storage = disk
		deps.Media = disk.Handler()
	}
	deps.Uploader = media.NewUploader(storage, media.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.ProbeTimeout))

	if cfg.Cache.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return fail(fmt.Errorf("connect redis: %w", err))
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		deps.StatsCache = cache.NewRedisStatsCache(client, cfg.Cache.StatsTTL)
	} else {
		deps.StatsCache = cache.NewMemoryStatsCache(cfg.Cache.StatsSize, cfg.Cache.StatsTTL)
	}

	if cfg.Events.NATSURL != "" {
		publisher, err := events.ConnectNATS(cfg.Events.NATSURL)
		if err != nil {
			return fail(fmt.Errorf("connect nats: %w", err))
		}
		closers = append(closers, publisher.Close)
		deps.Events = publisher
	} else {
		deps.Events = events.NopPublisher{}
	}

	return deps, cleanup, nil
}
