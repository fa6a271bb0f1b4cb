package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goxa2020/journal-bot/internal/config"
	"github.com/goxa2020/journal-bot/internal/storage"

	"github.com/gin-gonic/gin"
)

type stubStorage struct {
	objects map[string][]byte
}

func (s *stubStorage) Upload(ctx context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = b
	return nil
}

func (s *stubStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.objects[key])), nil
}

func (s *stubStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func newTestRouter(store storage.Storage) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(nil, nil, store, &config.Config{})
	router := gin.New()
	SetupRoutes(router, handler)
	return router
}

func TestDownloadReport(t *testing.T) {
	store := &stubStorage{objects: map[string][]byte{
		"reports/7/20251125T120000.xlsx": []byte("workbook-bytes"),
	}}
	router := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7/reports/20251125T120000.xlsx", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "workbook-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="20251125T120000.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestDownloadReportMissing(t *testing.T) {
	router := newTestRouter(&stubStorage{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7/reports/nope.xlsx", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDownloadReportScopedToUser(t *testing.T) {
	// User 8 must not reach user 7's report even with the right file name.
	store := &stubStorage{objects: map[string][]byte{
		"reports/7/20251125T120000.xlsx": []byte("workbook-bytes"),
	}}
	router := newTestRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/8/reports/20251125T120000.xlsx", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
