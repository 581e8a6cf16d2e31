package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/tracker-central/internal/domain"
	"github.com/spec-kit/tracker-central/internal/observability"
)

const keyPrefix = "tracker-central:"

// CompanyFetcher loads a company from the helpdesk.
type CompanyFetcher interface {
	GetCompany(ctx context.Context, id int64) (*domain.Company, error)
}

type localEntry struct {
	company domain.Company
	expires time.Time
}

// CompanyCache memoizes company lookups in redis, or in process when rdb is
// nil. Concurrent misses for one id share a single fetch. Cache failures are
// logged and never fail a lookup.
type CompanyCache struct {
	rdb     *redis.Client
	fetch   CompanyFetcher
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
	group   singleflight.Group

	mu    sync.Mutex
	local map[int64]localEntry
}

// NewCompanyCache builds a cache in front of fetch.
func NewCompanyCache(rdb *redis.Client, fetch CompanyFetcher, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *CompanyCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyCache{
		rdb:     rdb,
		fetch:   fetch,
		ttl:     ttl,
		logger:  logger.Named("company_cache"),
		metrics: metrics,
		now:     time.Now,
		local:   map[int64]localEntry{},
	}
}

// Get returns company id, from cache when possible.
func (c *CompanyCache) Get(ctx context.Context, id int64) (*domain.Company, error) {
	if co, ok := c.lookup(ctx, id); ok {
		c.metrics.RecordCacheLookup("hit")
		return co, nil
	}
	c.metrics.RecordCacheLookup("miss")

	v, err, _ := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		co, err := c.fetch.GetCompany(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(ctx, co)
		return co, nil
	})
	if err != nil {
		return nil, err
	}
	co := *v.(*domain.Company)
	return &co, nil
}

// Invalidate drops id from the cache.
func (c *CompanyCache) Invalidate(ctx context.Context, id int64) {
	c.mu.Lock()
	delete(c.local, id)
	c.mu.Unlock()
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, companyKey(id)).Err(); err != nil {
			c.logger.Warn("company cache delete failed", zap.Int64("company_id", id), zap.Error(err))
		}
	}
}

func (c *CompanyCache) lookup(ctx context.Context, id int64) (*domain.Company, bool) {
	if c.rdb == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		e, ok := c.local[id]
		if !ok || (c.ttl > 0 && c.now().After(e.expires)) {
			delete(c.local, id)
			return nil, false
		}
		co := e.company
		return &co, true
	}

	raw, err := c.rdb.Get(ctx, companyKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheLookup("error")
			c.logger.Warn("company cache read failed", zap.Int64("company_id", id), zap.Error(err))
		}
		return nil, false
	}
	var co domain.Company
	if err := json.Unmarshal(raw, &co); err != nil {
		c.logger.Warn("company cache entry is corrupt", zap.Int64("company_id", id), zap.Error(err))
		return nil, false
	}
	return &co, true
}

func (c *CompanyCache) store(ctx context.Context, co *domain.Company) {
	if c.rdb == nil {
		c.mu.Lock()
		c.local[co.ID] = localEntry{company: *co, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return
	}
	raw, err := json.Marshal(co)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, companyKey(co.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("company cache write failed", zap.Int64("company_id", co.ID), zap.Error(err))
	}
}

func companyKey(id int64) string {
	return fmt.Sprintf("%scompany:%d", keyPrefix, id)
}
