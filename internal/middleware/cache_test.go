package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
)

func TestRedisCacheServesSecondRequestFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.CacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20}

	hits := 0
	e := echo.New()
	e.GET("/tenants", func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusOK, echo.Map{"serial": strconv.Itoa(hits)})
	}, middleware.NewRedisCache(cfg, rdb))

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/tenants", nil))
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: code=%d cache=%q", first.Code, first.Header().Get("X-Cache"))
	}

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/tenants", nil))
	if second.Code != http.StatusOK || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second: code=%d cache=%q", second.Code, second.Header().Get("X-Cache"))
	}
	if hits != 1 {
		t.Fatalf("handler ran %d times, want 1", hits)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", first.Body, second.Body)
	}
}

func TestRedisCacheSkipsNonGet(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.CacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "cache", MaxBodyBytes: 1 << 20}

	hits := 0
	e := echo.New()
	e.POST("/tenants", func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusCreated, echo.Map{})
	}, middleware.NewRedisCache(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tenants", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if hits != 2 {
		t.Fatalf("handler ran %d times, want 2", hits)
	}
}
