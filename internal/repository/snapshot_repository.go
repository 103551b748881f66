package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"products-dashboard/internal/models"
)

// Cache constants
const (
	SnapshotCacheKey        = "products-dashboard:snapshot"
	DefaultSnapshotCacheTTL = 5 * time.Minute
	SnapshotFetchTimeout    = 30 * time.Second
)

// SnapshotRepository reads the product snapshot from a file path or an http(s)
// URL. Decoded snapshots are cached in Redis when a client is configured, and
// concurrent fetches of the same source are collapsed into one.
type SnapshotRepository struct {
	source     string
	httpClient *http.Client
	redis      *redis.Client
	ttl        time.Duration
	logger     *logrus.Entry
	sfGroup    singleflight.Group
}

func NewSnapshotRepository(source string, redisClient *redis.Client, ttl time.Duration, httpClient *http.Client, logger *logrus.Logger) *SnapshotRepository {
	if ttl <= 0 {
		ttl = DefaultSnapshotCacheTTL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotRepository{
		source:     source,
		httpClient: httpClient,
		redis:      redisClient,
		ttl:        ttl,
		logger:     logger.WithField("component", "snapshot_repository"),
	}
}

// Source returns the configured file path or URL
func (r *SnapshotRepository) Source() string {
	return r.source
}

// Load returns the snapshot, preferring the cached copy
func (r *SnapshotRepository) Load(ctx context.Context) ([]models.Product, error) {
	if products, ok := r.getCached(ctx); ok {
		r.logger.WithField("count", len(products)).Debug("Snapshot cache hit")
		return products, nil
	}
	return r.fetchShared(ctx)
}

// Refresh bypasses the cache, re-reads the source and overwrites the cached copy
func (r *SnapshotRepository) Refresh(ctx context.Context) ([]models.Product, error) {
	r.invalidate(ctx)
	return r.fetchShared(ctx)
}

func (r *SnapshotRepository) fetchShared(ctx context.Context) ([]models.Product, error) {
	// the fetch outlives any single caller; each caller only waits on its own ctx
	ch := r.sfGroup.DoChan(r.source, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SnapshotFetchTimeout)
		defer cancel()

		products, err := r.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		r.setCached(fetchCtx, products)
		return products, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, &models.DataLoadError{Source: r.source, Err: fmt.Errorf("snapshot load abandoned: %w", ctx.Err())}
	}
	if res.Err != nil {
		r.logger.WithError(res.Err).WithField("source", r.source).Error("Failed to load snapshot")
		return nil, res.Err
	}

	products := res.Val.([]models.Product)
	r.logger.WithFields(logrus.Fields{
		"source": r.source,
		"count":  len(products),
		"shared": res.Shared,
	}).Info("Snapshot loaded")

	// callers sharing one fetch must not share the backing array
	return models.CloneProducts(products), nil
}

func (r *SnapshotRepository) fetch(ctx context.Context) ([]models.Product, error) {
	body, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var products []models.Product
	if err := json.NewDecoder(body).Decode(&products); err != nil {
		return nil, &models.DataLoadError{Source: r.source, Err: fmt.Errorf("failed to decode snapshot: %w", err)}
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (r *SnapshotRepository) open(ctx context.Context) (io.ReadCloser, error) {
	if !isURL(r.source) {
		f, err := os.Open(r.source)
		if err != nil {
			return nil, &models.DataLoadError{Source: r.source, Err: err}
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source, nil)
	if err != nil {
		return nil, &models.DataLoadError{Source: r.source, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &models.DataLoadError{Source: r.source, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &models.DataLoadError{
			Source:     r.source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return resp.Body, nil
}

func isURL(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (r *SnapshotRepository) getCached(ctx context.Context) ([]models.Product, bool) {
	if r.redis == nil {
		return nil, false
	}
	val, err := r.redis.Get(ctx, SnapshotCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WithError(err).Warn("Snapshot cache read failed")
		}
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		r.logger.WithError(err).Warn("Discarding undecodable cached snapshot")
		return nil, false
	}
	return products, true
}

func (r *SnapshotRepository) setCached(ctx context.Context, products []models.Product) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, SnapshotCacheKey, data, r.ttl).Err(); err != nil {
		r.logger.WithError(err).Warn("Snapshot cache write failed")
	}
}

func (r *SnapshotRepository) invalidate(ctx context.Context) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Del(ctx, SnapshotCacheKey).Err(); err != nil {
		r.logger.WithError(err).Warn("Snapshot cache invalidation failed")
	}
}
