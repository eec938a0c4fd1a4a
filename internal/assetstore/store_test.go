package assetstore

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func newLocal(t *testing.T, maxBytes int64, timeout time.Duration) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "/assets", maxBytes, timeout)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestPutStoresUnderRandomName(t *testing.T) {
	l := newLocal(t, 1<<20, time.Second)

	url, err := l.Put(context.Background(), "bike_rent_taxi_cities", "Pune Photo.PNG", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(url, "/assets/bike_rent_taxi_cities/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("url = %q", url)
	}
	name := filepath.Base(url)
	data, err := os.ReadFile(filepath.Join(l.Dir(), "bike_rent_taxi_cities", name))
	if err != nil || !bytes.Equal(data, pngBytes) {
		t.Errorf("stored file mismatch: %v", err)
	}

	other, _ := l.Put(context.Background(), "bike_rent_taxi_cities", "pune.png", bytes.NewReader(pngBytes))
	if other == url {
		t.Error("two uploads share a name")
	}
}

func TestPutRejectsInvalidFiles(t *testing.T) {
	l := newLocal(t, 64, time.Second)
	cases := []struct {
		name, folder, file string
		data               []byte
	}{
		{"extension", "f", "doc.pdf", pngBytes},
		{"content mismatch", "f", "photo.jpg", pngBytes},
		{"too large", "f", "big.png", append(append([]byte{}, pngBytes...), make([]byte, 64)...)},
		{"folder traversal", "../etc", "x.png", pngBytes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Put(context.Background(), tc.folder, tc.file, bytes.NewReader(tc.data))
			if !errors.Is(err, ErrInvalidFile) {
				t.Errorf("err = %v, want ErrInvalidFile", err)
			}
		})
	}
}

type slowReader struct{ delay time.Duration }

func (s slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.delay)
	p[0] = 0
	return 1, nil
}

func TestPutTimesOut(t *testing.T) {
	l := newLocal(t, 1<<20, 50*time.Millisecond)
	_, err := l.Put(context.Background(), "f", "slow.png", slowReader{delay: 10 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestHandlerServesAssets(t *testing.T) {
	l := newLocal(t, 1<<20, time.Second)
	url, err := l.Put(context.Background(), "tour", "agra.png", bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	r.Get("/assets/{folder}/{file}", NewHandler(l).ServeFile)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Errorf("GET %s = %d", url, rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/tour/missing.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing asset = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/tour/.upload-x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("hidden file = %d, want 400", rec.Code)
	}
}
