package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"download-gate/pkg/auth"
	"download-gate/pkg/config"
	"download-gate/pkg/model"
	"download-gate/pkg/redis"
	"download-gate/pkg/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-admin-secret"

type testServer struct {
	handler *gin.Engine
	mr      *miniredis.Miniredis
}

func newTestServer(t *testing.T, consumeMode string, opts ...func(*config.Config)) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &config.Config{
		Port: "0",
		Redis: config.RedisConfig{
			Host:    mr.Host(),
			Port:    mr.Port(),
			Timeout: time.Second,
		},
		Storage: config.StorageConfig{
			Provider:        config.StorageProviderLocal,
			LocalPath:       t.TempDir(),
			LocalSigningKey: "local-signing-key",
		},
		Token: config.TokenConfig{
			TTL:           time.Hour,
			MaxDownloads:  3,
			SignedURLTTL:  time.Minute,
			PublicBaseURL: "http://gate.test",
			ConsumeMode:   consumeMode,
		},
		Admin: config.AdminConfig{JWTSecret: testJWTSecret},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://app.test"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Storage.LocalPath, "files"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.LocalPath, "files", "report.pdf"), []byte("%PDF-1.7 report"), 0644))

	redisClient, err := redis.NewClient(&cfg.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	provider, err := storage.NewStorageProvider(context.Background(), cfg)
	require.NoError(t, err)

	server, err := newAppServer(context.Background(), cfg, redisClient, provider)
	require.NoError(t, err)

	return &testServer{handler: server.RegisterHandlers(), mr: mr}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.NewJWTManager(testJWTSecret).GenerateToken("ops@example.com", role, time.Hour)
	require.NoError(t, err)
	return token
}

func createLinkRequest(t *testing.T, role, ref string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/links", strings.NewReader(`{"storageReference":"`+ref+`"}`))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken(t, role))
	}
	return req
}

func TestDownloadFlow(t *testing.T) {
	for _, mode := range []string{config.ConsumeModeScript, config.ConsumeModeFallback} {
		t.Run(mode, func(t *testing.T) {
			s := newTestServer(t, mode)

			w := s.do(t, createLinkRequest(t, auth.RoleAdmin, "files/report.pdf"))
			require.Equal(t, http.StatusCreated, w.Code)

			var link model.CreateLinkResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &link))
			assert.Equal(t, 60, link.ExpiresInMinutes)
			assert.Equal(t, 3, link.MaxDownloads)
			require.True(t, strings.HasPrefix(link.DownloadLink, "http://gate.test/dl/"))

			linkURL, err := url.Parse(link.DownloadLink)
			require.NoError(t, err)

			for _, remaining := range []string{"2", "1", "0"} {
				w = s.do(t, httptest.NewRequest(http.MethodGet, linkURL.Path, nil))
				require.Equal(t, http.StatusFound, w.Code)
				assert.Equal(t, remaining, w.Header().Get("X-Downloads-Remaining"))

				location, err := url.Parse(w.Header().Get("Location"))
				require.NoError(t, err)
				assert.Equal(t, "gate.test", location.Host)
				assert.Equal(t, "/files/files/report.pdf", location.Path)

				file := s.do(t, httptest.NewRequest(http.MethodGet, location.RequestURI(), nil))
				assert.Equal(t, http.StatusOK, file.Code)
				assert.Equal(t, "%PDF-1.7 report", file.Body.String())
			}

			w = s.do(t, httptest.NewRequest(http.MethodGet, linkURL.Path, nil))
			assert.Equal(t, http.StatusGone, w.Code)

			token := strings.TrimPrefix(linkURL.Path, "/dl/")
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/links/"+token, nil)
			req.Header.Set("Authorization", "Bearer "+adminToken(t, auth.RoleAdmin))
			w = s.do(t, req)
			require.Equal(t, http.StatusOK, w.Code)

			var status model.TokenStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
			assert.True(t, status.Exhausted)
			assert.Equal(t, 3, status.MaxUses)

			s.mr.FastForward(time.Hour)
			w = s.do(t, httptest.NewRequest(http.MethodGet, linkURL.Path, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestRedeem_MalformedAndUnknown(t *testing.T) {
	s := newTestServer(t, config.ConsumeModeAuto)

	before := s.mr.CommandCount()
	w := s.do(t, httptest.NewRequest(http.MethodGet, "/dl/not-a-token", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, s.mr.CommandCount())

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/dl/"+strings.Repeat("0a", 32), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLink_RequiresAdmin(t *testing.T) {
	s := newTestServer(t, config.ConsumeModeAuto)

	w := s.do(t, createLinkRequest(t, "", "files/report.pdf"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, createLinkRequest(t, "viewer", "files/report.pdf"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, config.ConsumeModeFallback)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "fallback", health["consume_mode"])
	assert.Equal(t, true, health["degraded"])
	assert.Equal(t, config.StorageProviderLocal, health["storage"])

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `download_gate_consume_mode{mode="fallback"} 1`)

	s.mr.Close()
	w = s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, config.ConsumeModeAuto)

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimit_ForwardedForHonouredOnlyFromTrustedProxies(t *testing.T) {
	redeem := func(s *testServer, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/dl/not-a-token", nil)
		req.RemoteAddr = "192.0.2.1:41000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		return s.do(t, req).Code
	}

	t.Run("untrusted", func(t *testing.T) {
		s := newTestServer(t, config.ConsumeModeAuto, func(cfg *config.Config) {
			cfg.RateLimit = config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2}
		})

		// rotating the header does not buy a fresh bucket
		codes := []int{redeem(s, "203.0.113.1"), redeem(s, "203.0.113.2"), redeem(s, "203.0.113.3")}
		assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
	})

	t.Run("trusted", func(t *testing.T) {
		s := newTestServer(t, config.ConsumeModeAuto, func(cfg *config.Config) {
			cfg.RateLimit = config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2, TrustedProxies: []string{"192.0.2.0/24"}}
		})

		codes := []int{redeem(s, "203.0.113.1"), redeem(s, "203.0.113.2"), redeem(s, "203.0.113.3")}
		assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest}, codes)
	})
}
