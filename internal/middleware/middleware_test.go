package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

const testSecret = "test-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(testSecret), RequireRole("admin"))
	g.GET("/who", func(c echo.Context) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})

	admin, _ := utils.NewAccessToken(testSecret, 9, "admin", 5)
	rider, _ := utils.NewAccessToken(testSecret, 3, "user", 5)
	forged, _ := utils.NewAccessToken("other-secret", 9, "admin", 5)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged.Token, http.StatusUnauthorized},
		{"wrong role", "Bearer " + rider.Token, http.StatusForbidden},
		{"admin", "Bearer " + admin.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if rec := serve(e, req); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUserIDShapes(t *testing.T) {
	e := echo.New()
	for _, v := range []any{uint64(7), 7, int64(7), float64(7), "7"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		if id, err := UserID(c); err != nil || id != 7 {
			t.Errorf("UserID(%T) = %d, %v", v, id, err)
		}
	}
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := UserID(c); err == nil {
		t.Error("UserID without claim succeeded")
	}
	if identityKey(c) != "anon" {
		t.Error("anonymous identity key")
	}
}

func TestViewerSession(t *testing.T) {
	e := echo.New()
	e.Use(ViewerSession("X-Viewer-Session"))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, ViewerID(c)) })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	minted := rec.Header().Get("X-Viewer-Session")
	if _, err := uuid.Parse(minted); err != nil || rec.Body.String() != minted {
		t.Fatalf("minted id %q, body %q", minted, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Viewer-Session", minted)
	if rec := serve(e, req); rec.Body.String() != minted {
		t.Fatalf("id not reused: %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Viewer-Session", "../../etc")
	if rec := serve(e, req); rec.Body.String() == "../../etc" {
		t.Fatal("non-UUID viewer id accepted")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	b, err := encodePayload(200, h, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(b)
	if !ok || status != 200 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Fatal("short payload decoded")
	}
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set - skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return rdb
}

func TestTokenBucketBlocks(t *testing.T) {
	rdb := redisClient(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Minute, KeyStrategy: "route", Prefix: "rl-test-" + uuid.NewString(),
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/limited", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i, want := range []int{200, 200, 429} {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/limited", nil))
		if rec.Code != want {
			t.Fatalf("request %d: status %d, want %d", i, rec.Code, want)
		}
	}
}

func TestRedisCacheHitAndPurge(t *testing.T) {
	rdb := redisClient(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		Prefix: "cache-test-" + uuid.NewString(), MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.GET("/topologies/:class", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"class": c.Param("class")})
	}, NewRedisCache(cfg, rdb))

	get := func(path string) *httptest.ResponseRecorder {
		return serve(e, httptest.NewRequest(http.MethodGet, path, nil))
	}
	if rec := get("/topologies/28-seat"); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if rec := get("/topologies/28-seat"); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request X-Cache = %q", rec.Header().Get("X-Cache"))
	}
	if rec := get("/topologies/45-seat"); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatal("different path parameter served from cache")
	}
	if err := PurgeCache(context.Background(), cfg, rdb); err != nil {
		t.Fatal(err)
	}
	get("/topologies/28-seat")
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}
}
