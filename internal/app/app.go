// Package app connects the board's backing services from configuration.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/hungpv1995/community-board/internal/cache"
	"github.com/hungpv1995/community-board/internal/config"
	"github.com/hungpv1995/community-board/internal/database"
	"github.com/hungpv1995/community-board/internal/search"
	"github.com/redis/go-redis/v9"
)

// App holds the connected services. Redis and Search are nil when their
// address is not configured or unreachable at startup.
type App struct {
	Config *config.Config
	DB     *database.DB
	Redis  *redis.Client
	Cache  *cache.RedisCache
	Search *search.ElasticSearch
}

// Open connects to the database and, when configured, Redis and Elasticsearch.
// Only the database is required.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Storage.Type, cfg.Storage.DSN, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{Config: cfg, DB: db}

	if cfg.Redis.Addr != "" {
		if err := a.initRedis(ctx); err != nil {
			log.Printf("Redis unavailable, caching disabled: %v", err)
		}
	}
	if cfg.Elasticsearch.URL != "" {
		if err := a.initElasticsearch(ctx); err != nil {
			log.Printf("Elasticsearch unavailable, search disabled: %v", err)
		}
	}
	return a, nil
}

func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}
	a.Redis = client
	a.Cache = cache.NewRedisCache(client)
	log.Printf("Connected to Redis at %s", a.Config.Redis.Addr)
	return nil
}

func (a *App) initElasticsearch(ctx context.Context) error {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{a.Config.Elasticsearch.URL},
	})
	if err != nil {
		return err
	}
	es := search.NewElasticSearch(client, a.Config.Elasticsearch.Index)

	// Elasticsearch can take a while to accept connections after a cold start
	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		if pingErr = es.Ping(ctx); pingErr == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if pingErr != nil {
		return pingErr
	}

	if err := es.CreateIndex(ctx); err != nil {
		return err
	}
	a.Search = es
	log.Printf("Connected to Elasticsearch at %s", a.Config.Elasticsearch.URL)
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}
