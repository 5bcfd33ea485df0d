package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/taskbox/taskbox/internal/models"
)

// TodoCache is a read-through cache of per-user todo lists. It is strictly an
// optimization: every failure degrades to a store read, and every write for a
// user drops that user's entry.
type TodoCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewTodoCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *TodoCache {
	return &TodoCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *TodoCache) GetList(ctx context.Context, userID string) ([]models.TodoItem, bool) {
	dataJSON, err := c.client.Get(ctx, listKey(userID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Failed to read todo list from cache")
		return nil, false
	}

	var items []models.TodoItem
	if err := json.Unmarshal([]byte(dataJSON), &items); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal cached todo list")
		return nil, false
	}

	return items, true
}

func (c *TodoCache) SetList(ctx context.Context, userID string, items []models.TodoItem) {
	dataJSON, err := json.Marshal(items)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal todo list for cache")
		return
	}

	if err := c.client.Set(ctx, listKey(userID), dataJSON, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to store todo list in cache")
	}
}

func (c *TodoCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, listKey(userID)).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to invalidate cached todo list")
	}
}

func listKey(userID string) string {
	return fmt.Sprintf("todos:%s", userID)
}
