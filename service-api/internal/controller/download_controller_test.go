package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"download-gate/pkg/model"
	"download-gate/pkg/storage"
	downloadService "download-gate/service-api/internal/service/download"
	tokenService "download-gate/service-api/internal/service/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validToken = strings.Repeat("ab", 32)

type fakeDownloadService struct {
	redeemErr error
	createErr error
	grant     *model.DownloadGrant
	lastRef   string
}

func (f *fakeDownloadService) CreateLink(ctx context.Context, storageRef string) (*model.CreateLinkResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.lastRef = storageRef
	return &model.CreateLinkResponse{
		DownloadLink:     "https://downloads.example.com/dl/" + validToken,
		ExpiresInMinutes: 1440,
		MaxDownloads:     3,
	}, nil
}

func (f *fakeDownloadService) Redeem(ctx context.Context, token string) (*model.DownloadGrant, error) {
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.grant, nil
}

func (f *fakeDownloadService) DescribeLink(ctx context.Context, token string) (*model.TokenStatus, error) {
	if token != validToken {
		return nil, tokenService.ErrTokenNotFound
	}
	return &model.TokenStatus{Token: token, StorageReference: "files/report.pdf", RemainingUses: 1, MaxUses: 3}, nil
}

func (f *fakeDownloadService) ConsumeMode() string {
	return "script"
}

var _ downloadService.Service = (*fakeDownloadService)(nil)

func newTestRouter(svc downloadService.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	dc := NewDownloadController(svc)
	router := gin.New()
	router.POST("/api/v1/admin/links", dc.CreateLink)
	router.GET("/api/v1/admin/links/:token", dc.GetLink)
	router.GET("/dl/:token", dc.Redeem)
	return router
}

func TestRedeem_Redirects(t *testing.T) {
	svc := &fakeDownloadService{grant: &model.DownloadGrant{
		SignedURL:        "https://storage.example.com/downloads/files/report.pdf?X-Amz-Signature=abc",
		StorageReference: "files/report.pdf",
		RemainingUses:    2,
	}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dl/"+validToken, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, svc.grant.SignedURL, w.Header().Get("Location"))
	assert.Equal(t, "2", w.Header().Get(RemainingHeader))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRedeem_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "malformed", err: tokenService.ErrInvalidToken, wantStatus: http.StatusBadRequest},
		{name: "not found", err: tokenService.ErrTokenNotFound, wantStatus: http.StatusNotFound},
		{name: "exhausted", err: tokenService.ErrTokenExhausted, wantStatus: http.StatusGone},
		{name: "store down", err: errors.Join(tokenService.ErrStoreUnavailable, errors.New("dial tcp 10.0.0.7:6379: connection refused")), wantStatus: http.StatusInternalServerError},
		{name: "storage down", err: errors.Join(downloadService.ErrStorageUnavailable, errors.New("AccessDenied: bucket secret-bucket")), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeDownloadService{redeemErr: tt.err})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/dl/"+validToken, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, w.Header().Get("Location"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			// internal detail never reaches the caller
			assert.NotContains(t, w.Body.String(), "10.0.0.7")
			assert.NotContains(t, w.Body.String(), "secret-bucket")
		})
	}
}

func TestCreateLink(t *testing.T) {
	svc := &fakeDownloadService{}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/links", strings.NewReader(`{"storageReference":"files/report.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "files/report.pdf", svc.lastRef)

	var resp model.CreateLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://downloads.example.com/dl/"+validToken, resp.DownloadLink)
	assert.Equal(t, 1440, resp.ExpiresInMinutes)
	assert.Equal(t, 3, resp.MaxDownloads)
}

func TestCreateLink_BadRequest(t *testing.T) {
	router := newTestRouter(&fakeDownloadService{})

	for _, body := range []string{``, `{}`, `{"storageReference":""}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/links", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCreateLink_StoreDown(t *testing.T) {
	router := newTestRouter(&fakeDownloadService{createErr: tokenService.ErrStoreUnavailable})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/links", strings.NewReader(`{"storageReference":"files/report.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetLink(t *testing.T) {
	router := newTestRouter(&fakeDownloadService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/links/"+validToken, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status model.TokenStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "files/report.pdf", status.StorageReference)
	assert.Equal(t, 1, status.RemainingUses)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/links/"+strings.Repeat("cd", 32), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "files"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "files", "report.pdf"), []byte("%PDF-1.7"), 0644))

	provider, err := storage.NewLocalProvider(dir, "http://localhost:8080"+storage.LocalFilesRoute, "local-key")
	require.NoError(t, err)

	fc := NewFileController(provider)
	router := gin.New()
	router.GET(storage.LocalFilesRoute+"/*path", fc.ServeFile)

	signed, err := provider.GetSignedURL(context.Background(), "files/report.pdf", time.Minute)
	require.NoError(t, err)
	parsed, err := url.Parse(signed.URL)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.7", w.Body.String())
	assert.Equal(t, `attachment; filename="report.pdf"`, w.Header().Get("Content-Disposition"))

	// signature bound to another object
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/files/other.pdf?"+parsed.RawQuery, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// unsigned
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/files/report.pdf", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
