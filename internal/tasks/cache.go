package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "tasklist:"

// CachedRepo is a read-through redis cache for GetTaskList. Lists are stored
// as TaskListDto JSON. Any write touching a list evicts its entry and bumps
// the list's generation key; a fill only lands if the generation it watched
// is unchanged, so a write racing a fill cannot leave a stale entry behind.
// Redis failures are logged and fall through to the wrapped repository.
type CachedRepo struct {
	Repository
	rdb    *redis.Client
	ttl    time.Duration
	lists  TaskListMapper
	logger *slog.Logger
}

func NewCachedRepo(repo Repository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepo {
	return &CachedRepo{
		Repository: repo,
		rdb:        rdb,
		ttl:        ttl,
		lists:      NewTaskListMapper(NewTaskMapper()),
		logger:     logger,
	}
}

func (c *CachedRepo) GetTaskList(ctx context.Context, id uuid.UUID) (TaskList, error) {
	key := cacheKey(id)
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var dto TaskListDto
		if err := json.Unmarshal(b, &dto); err == nil {
			return c.lists.FromDto(dto), nil
		}
		c.logger.Warn("cache_decode_failed", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache_get_failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	var (
		list    TaskList
		repoErr error
		loaded  bool
	)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		list, repoErr = c.Repository.GetTaskList(ctx, id)
		loaded = true
		if repoErr != nil {
			return nil
		}
		b, err := json.Marshal(c.lists.ToDto(list))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, generationKey(id))

	if !loaded {
		c.logger.Warn("cache_watch_failed", slog.String("key", key), slog.String("error", err.Error()))
		return c.Repository.GetTaskList(ctx, id)
	}
	if repoErr != nil {
		return TaskList{}, repoErr
	}
	switch {
	case errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("cache_fill_skipped", slog.String("key", key))
	case err != nil:
		c.logger.Warn("cache_set_failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return list, nil
}

func (c *CachedRepo) SaveTaskList(ctx context.Context, list TaskList) error {
	if err := c.Repository.SaveTaskList(ctx, list); err != nil {
		return err
	}
	c.evict(ctx, list.ID)
	return nil
}

func (c *CachedRepo) DeleteTaskList(ctx context.Context, id uuid.UUID) error {
	if err := c.Repository.DeleteTaskList(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedRepo) SaveTask(ctx context.Context, task Task) error {
	if err := c.Repository.SaveTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.TaskListID)
	return nil
}

func (c *CachedRepo) DeleteTask(ctx context.Context, listID, taskID uuid.UUID) error {
	if err := c.Repository.DeleteTask(ctx, listID, taskID); err != nil {
		return err
	}
	c.evict(ctx, listID)
	return nil
}

func (c *CachedRepo) evict(ctx context.Context, id uuid.UUID) {
	key, gen := cacheKey(id), generationKey(id)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.Incr(ctx, gen)
		if c.ttl > 0 {
			p.Expire(ctx, gen, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("cache_evict_failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func cacheKey(id uuid.UUID) string { return cacheKeyPrefix + id.String() }

func generationKey(id uuid.UUID) string { return cacheKeyPrefix + id.String() + ":gen" }
