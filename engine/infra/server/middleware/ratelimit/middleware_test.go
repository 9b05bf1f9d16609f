package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockCounter struct {
	routes []string
}

func (b *blockCounter) IncrementBlockedRequests(route string) {
	b.routes = append(b.routes, route)
}

func buildRouterForTest(t *testing.T, cfg *Config, observer BlockObserver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m, err := NewManager(t.Context(), cfg, observer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	r.Use(m.Middleware())
	r.GET("/t", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/api/v1/health", func(c *gin.Context) { c.String(200, "ok") })
	return r
}

func doReq(r *gin.Engine, path, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	r.ServeHTTP(w, req)
	return w
}

func testConfig(limit int64, period time.Duration) *Config {
	return &Config{
		Rate:          RateConfig{Limit: limit, Period: period},
		Prefix:        "test:ratelimit:",
		ExcludedPaths: []string{"/api/v1/health"},
	}
}

func TestInMemoryRateLimit_BlocksSecondRequest(t *testing.T) {
	t.Run("Should answer 429 with the error envelope once the limit is reached", func(t *testing.T) {
		blocks := &blockCounter{}
		r := buildRouterForTest(t, testConfig(1, time.Second), blocks)

		res1 := doReq(r, "/t", "1.2.3.4")
		require.Equal(t, 200, res1.Code)
		res2 := doReq(r, "/t", "1.2.3.4")
		require.Equal(t, 429, res2.Code)
		assert.Contains(t, res2.Body.String(), `"code":"TOO_MANY_REQUESTS"`)
		assert.Equal(t, []string{"/t"}, blocks.routes)
	})
}

func TestInMemoryRateLimit_RefillAfterPeriod(t *testing.T) {
	t.Run("Should allow requests again after the period", func(t *testing.T) {
		r := buildRouterForTest(t, testConfig(1, 100*time.Millisecond), nil)

		require.Equal(t, 200, doReq(r, "/t", "5.6.7.8").Code)
		require.Equal(t, 429, doReq(r, "/t", "5.6.7.8").Code)
		time.Sleep(150 * time.Millisecond)
		require.Equal(t, 200, doReq(r, "/t", "5.6.7.8").Code)
	})
}

func TestInMemoryRateLimit_SetsHeaders(t *testing.T) {
	t.Run("Should report limit and remaining quota", func(t *testing.T) {
		r := buildRouterForTest(t, testConfig(2, time.Minute), nil)

		res := doReq(r, "/t", "9.9.9.9")
		require.Equal(t, 200, res.Code)
		assert.Equal(t, "2", res.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", res.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, res.Header().Get("X-RateLimit-Reset"))
	})
}

func TestInMemoryRateLimit_ExcludedPaths(t *testing.T) {
	t.Run("Should never limit excluded paths", func(t *testing.T) {
		r := buildRouterForTest(t, testConfig(1, time.Minute), nil)

		for range 3 {
			res := doReq(r, "/api/v1/health", "2.2.2.2")
			require.Equal(t, 200, res.Code)
			assert.Empty(t, res.Header().Get("X-RateLimit-Limit"))
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept the default config", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("Should reject non-positive limits and periods", func(t *testing.T) {
		assert.Error(t, testConfig(0, time.Minute).Validate())
		assert.Error(t, testConfig(1, 0).Validate())
		_, err := NewManager(t.Context(), testConfig(0, time.Minute), nil)
		assert.Error(t, err)
	})
}

func TestNewManager_Driver(t *testing.T) {
	t.Run("Should use the memory store when no redis url is set", func(t *testing.T) {
		m, err := NewManager(t.Context(), testConfig(1, time.Minute), nil)
		require.NoError(t, err)
		defer m.Close()
		assert.Equal(t, "memory", m.Driver())
	})
}

func TestRedisRateLimit(t *testing.T) {
	t.Run("Should share the quota between managers on the same store", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(2, time.Minute)
		cfg.RedisURL = "redis://" + mr.Addr()
		first := buildRouterForTest(t, cfg, nil)
		second := buildRouterForTest(t, cfg, nil)

		require.Equal(t, 200, doReq(first, "/t", "3.3.3.3").Code)
		require.Equal(t, 200, doReq(second, "/t", "3.3.3.3").Code)
		assert.Equal(t, 429, doReq(first, "/t", "3.3.3.3").Code)
		assert.Equal(t, 200, doReq(second, "/t", "4.4.4.4").Code)
	})

	t.Run("Should report the redis driver", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(1, time.Minute)
		cfg.RedisURL = "redis://" + mr.Addr()
		m, err := NewManager(t.Context(), cfg, nil)
		require.NoError(t, err)
		defer m.Close()
		assert.Equal(t, "redis", m.Driver())
	})

	t.Run("Should reject an invalid redis url", func(t *testing.T) {
		cfg := testConfig(1, time.Minute)
		cfg.RedisURL = "http://not-redis"
		_, err := NewManager(t.Context(), cfg, nil)
		assert.ErrorContains(t, err, "invalid rate limit redis url")
	})

	t.Run("Should fail when redis is unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := testConfig(1, time.Minute)
		cfg.RedisURL = "redis://" + addr
		_, err := NewManager(t.Context(), cfg, nil)
		assert.ErrorContains(t, err, "failed to connect")
	})
}
