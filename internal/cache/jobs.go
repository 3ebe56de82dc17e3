package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "niena:"
	jobsVersionKey = keyPrefix + "jobs:version"
)

// JobCache caches job-match results per user and job search pages.
// Every key embeds the job catalogue version, so bumping the version after an
// ingestion run retires all cached results at once.
type JobCache struct {
	client    redis.Cmdable
	matchTTL  time.Duration
	searchTTL time.Duration
}

// NewJobCache creates a job cache over client
func NewJobCache(client redis.Cmdable, matchTTL, searchTTL time.Duration) *JobCache {
	return &JobCache{client: client, matchTTL: matchTTL, searchTTL: searchTTL}
}

func (c *JobCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, jobsVersionKey).Int64()
	if stderrors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// userSegment hex-encodes the user id so it never carries a separator or a
// SCAN glob character into a key
func userSegment(userID string) string {
	return hex.EncodeToString([]byte(userID))
}

func matchKey(version int64, userID string, limit int) string {
	return fmt.Sprintf("%smatches:%s:v%d:%d", keyPrefix, userSegment(userID), version, limit)
}

func searchKey(version int64, query string, limit, offset int) string {
	return fmt.Sprintf("%ssearch:v%d:%d:%d:%s", keyPrefix, version, limit, offset, query)
}

func userMatchesPattern(userID string) string {
	return fmt.Sprintf("%smatches:%s:v*", keyPrefix, userSegment(userID))
}

func (c *JobCache) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageError(errors.ErrCodeCache, "read cache", err).WithContext("key", key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt entry is a miss; the caller recomputes and overwrites it
		return false, nil
	}
	return true, nil
}

func (c *JobCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeCache, "encode cache entry", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "write cache", err).WithContext("key", key)
	}
	return nil
}

// GetMatches returns cached matches for the user, reporting whether there was a hit
func (c *JobCache) GetMatches(ctx context.Context, userID string, limit int) ([]domain.JobMatch, bool, error) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, false, errors.NewStorageError(errors.ErrCodeCache, "read jobs version", err)
	}
	var matches []domain.JobMatch
	ok, err := c.getJSON(ctx, matchKey(v, userID, limit), &matches)
	return matches, ok, err
}

// SetMatches caches matches for the user
func (c *JobCache) SetMatches(ctx context.Context, userID string, limit int, matches []domain.JobMatch) error {
	v, err := c.version(ctx)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "read jobs version", err)
	}
	return c.setJSON(ctx, matchKey(v, userID, limit), matches, c.matchTTL)
}

// InvalidateMatches drops every cached match list of the user, e.g. after the primary resume changed
func (c *JobCache) InvalidateMatches(ctx context.Context, userID string) error {
	iter := c.client.Scan(ctx, 0, userMatchesPattern(userID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "scan match keys", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "delete match keys", err)
	}
	return nil
}

// GetSearch returns a cached search page
func (c *JobCache) GetSearch(ctx context.Context, query string, limit, offset int) ([]domain.Job, bool, error) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, false, errors.NewStorageError(errors.ErrCodeCache, "read jobs version", err)
	}
	var jobs []domain.Job
	ok, err := c.getJSON(ctx, searchKey(v, query, limit, offset), &jobs)
	return jobs, ok, err
}

// SetSearch caches a search page
func (c *JobCache) SetSearch(ctx context.Context, query string, limit, offset int, jobs []domain.Job) error {
	v, err := c.version(ctx)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeCache, "read jobs version", err)
	}
	return c.setJSON(ctx, searchKey(v, query, limit, offset), jobs, c.searchTTL)
}

// BumpJobsVersion retires every cached match and search result
func (c *JobCache) BumpJobsVersion(ctx context.Context) (int64, error) {
	v, err := c.client.Incr(ctx, jobsVersionKey).Result()
	if err != nil {
		return 0, errors.NewStorageError(errors.ErrCodeCache, "bump jobs version", err)
	}
	return v, nil
}
