package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hungpv1995/community-board/internal/models"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func postKey(postID string) string {
	return fmt.Sprintf("post:%s", postID)
}

// GetPost retrieves a post from cache. A miss returns nil, nil.
func (c *RedisCache) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	data, err := c.client.Get(ctx, postKey(postID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var post models.Post
	if err := json.Unmarshal([]byte(data), &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return &post, nil
}

// SetPost stores a post in cache with TTL. Related posts are not cached.
func (c *RedisCache) SetPost(ctx context.Context, post *models.Post, ttl time.Duration) error {
	stored := *post
	stored.RelatedPosts = nil

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	if err := c.client.Set(ctx, postKey(post.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// InvalidatePost removes a post from cache
func (c *RedisCache) InvalidatePost(ctx context.Context, postID string) error {
	if err := c.client.Del(ctx, postKey(postID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	return nil
}

// ShouldCountView reports whether a view of postID from clientIP is the first
// one inside window. Later views inside the window are not counted.
func (c *RedisCache) ShouldCountView(ctx context.Context, postID, clientIP string, window time.Duration) (bool, error) {
	key := fmt.Sprintf("view:%s:%s", postID, clientIP)
	ok, err := c.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record view: %w", err)
	}
	return ok, nil
}

// Ping checks if Redis is available
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
