package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/server/router"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// BlockObserver is notified for every rejected request.
type BlockObserver interface {
	IncrementBlockedRequests(route string)
}

// Manager owns the limiter and builds the gin middleware.
type Manager struct {
	config   *Config
	limiter  *limiter.Limiter
	observer BlockObserver
	redis    *redis.Client
}

// NewManager creates a manager backed by Redis when cfg.RedisURL is set and by
// an in-memory store otherwise. observer may be nil.
func NewManager(ctx context.Context, cfg *Config, observer BlockObserver) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	m := &Manager{config: cfg, observer: observer}
	opts := limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	var store limiter.Store
	if cfg.RedisURL != "" {
		redisStore, err := m.newRedisStore(ctx, cfg.RedisURL, opts)
		if err != nil {
			return nil, err
		}
		store = redisStore
	} else {
		store = memory.NewStoreWithOptions(opts)
	}
	m.limiter = limiter.New(store, cfg.Rate.ToLimiterRate())
	return m, nil
}

func (m *Manager) newRedisStore(ctx context.Context, rawURL string, opts limiter.StoreOptions) (limiter.Store, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to rate limit redis: %w", err)
	}
	store, err := sredis.NewStoreWithOptions(client, opts)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	m.redis = client
	return store, nil
}

// Driver names the backing store.
func (m *Manager) Driver() string {
	if m.redis != nil {
		return "redis"
	}
	return "memory"
}

// Close releases the Redis connection, if any.
func (m *Manager) Close() error {
	if m.redis == nil {
		return nil
	}
	return m.redis.Close()
}

// Middleware limits requests per client IP, skipping excluded paths.
func (m *Manager) Middleware() gin.HandlerFunc {
	limited := mgin.NewMiddleware(
		m.limiter,
		mgin.WithLimitReachedHandler(m.onLimitReached),
		mgin.WithErrorHandler(m.onError),
	)
	return func(c *gin.Context) {
		if m.isExcluded(c.Request.URL.Path) {
			c.Next()
			return
		}
		limited(c)
	}
}

func (m *Manager) isExcluded(path string) bool {
	for _, excluded := range m.config.ExcludedPaths {
		if path == excluded || strings.HasPrefix(path, strings.TrimSuffix(excluded, "/")+"/") {
			return true
		}
	}
	return false
}

func (m *Manager) onLimitReached(c *gin.Context) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	if m.observer != nil {
		m.observer.IncrementBlockedRequests(route)
	}
	router.RespondWithError(c, router.NewRequestError(http.StatusTooManyRequests, "rate limit exceeded", nil))
}

func (m *Manager) onError(c *gin.Context, err error) {
	// fail open
	logger.FromContext(c.Request.Context()).Error("Rate limiter store failed", "error", err)
	c.Next()
}
