package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"pomodoro-backend/internal/models"
)

const latestFocusTTL = 10 * time.Minute

// CachedSessionStore keeps the latest focus record per user and theme in
// Redis. Appends bump a version key and drop the entry. A miss only fills the
// cache if the version did not move while the store was read. Reads fall
// through to the wrapped store on any Redis failure.
type CachedSessionStore struct {
	SessionStore
	redis *redis.Client
}

func NewCachedSessionStore(store SessionStore, redisClient *redis.Client) *CachedSessionStore {
	return &CachedSessionStore{SessionStore: store, redis: redisClient}
}

func latestFocusKey(userID, theme string) string {
	return "latest_focus:" + userID + ":" + theme
}

func latestFocusVersionKey(userID, theme string) string {
	return "latest_focus_version:" + userID + ":" + theme
}

func (c *CachedSessionStore) Append(ctx context.Context, rec *models.SessionRecord) (int64, error) {
	id, err := c.SessionStore.Append(ctx, rec)
	if err != nil {
		return 0, err
	}

	if rec.IsFocus {
		_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, latestFocusVersionKey(rec.UserID, rec.Theme))
			pipe.Del(ctx, latestFocusKey(rec.UserID, rec.Theme))
			return nil
		})
		if err != nil {
			// Entry expires on its own after latestFocusTTL.
			log.Printf("cache: failed to invalidate %s: %v", latestFocusKey(rec.UserID, rec.Theme), err)
		}
	}
	return id, nil
}

func (c *CachedSessionStore) LatestFocus(ctx context.Context, userID, theme string) (*models.SessionRecord, error) {
	key := latestFocusKey(userID, theme)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec models.SessionRecord
		if jsonErr := json.Unmarshal(data, &rec); jsonErr == nil {
			return &rec, nil
		}
		log.Printf("cache: dropping corrupt entry %s", key)
	case !errors.Is(err, redis.Nil):
		log.Printf("cache: get %s: %v", key, err)
	}

	var (
		rec      *models.SessionRecord
		storeErr error
		loaded   bool
	)
	watchErr := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		rec, storeErr = c.SessionStore.LatestFocus(ctx, userID, theme)
		loaded = true
		if storeErr != nil || rec == nil {
			return nil
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		// EXEC is discarded if an append bumped the version meanwhile.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, latestFocusTTL)
			return nil
		})
		return err
	}, latestFocusVersionKey(userID, theme))

	switch {
	case watchErr == nil:
	case errors.Is(watchErr, redis.TxFailedErr):
		log.Printf("cache: skipped stale fill of %s", key)
	default:
		log.Printf("cache: set %s: %v", key, watchErr)
	}

	if !loaded {
		return c.SessionStore.LatestFocus(ctx, userID, theme)
	}
	return rec, storeErr
}
