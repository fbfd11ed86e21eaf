package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logc/scorecard-ocr/internal/models"
)

type fakeRecognizer struct {
	text    string
	err     error
	delay   time.Duration
	active  int32
	overlap int32
	seen    []models.ImageRef
	mu      sync.Mutex
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(_ context.Context, ref models.ImageRef) (models.Recognition, error) {
	if atomic.AddInt32(&f.active, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.active, -1)

	_, statErr := os.Stat(ref.Path)
	f.mu.Lock()
	f.seen = append(f.seen, ref)
	f.mu.Unlock()
	if statErr != nil {
		return models.Recognition{}, statErr
	}

	time.Sleep(f.delay)
	if f.err != nil {
		return models.Recognition{}, f.err
	}
	return models.Recognition{Text: f.text}, nil
}

func upload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/recognize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestRecognizeUpload(t *testing.T) {
	fake := &fakeRecognizer{text: "Kevin Harvey 2 3"}
	dir := t.TempDir()
	h := NewHandler(fake, ServiceStatus{Available: true}, dir, nil)

	rec := serve(h, upload(t, "file", "card_01.jpg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "card_01.jpg", result.Filename)
	assert.Equal(t, "Kevin Harvey 2 3", result.Text)

	require.Len(t, fake.seen, 1)
	assert.Equal(t, "card_01.jpg", fake.seen[0].Name)
	assert.Equal(t, "jpg", fake.seen[0].Ext())

	// staged upload is removed afterwards
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecognizeAcceptsImageField(t *testing.T) {
	h := NewHandler(&fakeRecognizer{text: "ok"}, ServiceStatus{Available: true}, t.TempDir(), nil)

	rec := serve(h, upload(t, "image", "card.png", []byte("png")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecognizeMissingFile(t *testing.T) {
	h := NewHandler(&fakeRecognizer{}, ServiceStatus{Available: true}, t.TempDir(), nil)

	rec := serve(h, upload(t, "attachment", "card.png", []byte("png")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file provided")
}

func TestRecognizeUnsupportedType(t *testing.T) {
	fake := &fakeRecognizer{}
	h := NewHandler(fake, ServiceStatus{Available: true}, t.TempDir(), nil)

	rec := serve(h, upload(t, "file", "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "jpg, jpeg, png")
	assert.Empty(t, fake.seen)
}

func TestRecognizeFailureIsErrorRow(t *testing.T) {
	fake := &fakeRecognizer{err: models.RemoteServiceError("sidecar unreachable", errors.New("refused"))}
	h := NewHandler(fake, ServiceStatus{Available: true}, t.TempDir(), nil)

	rec := serve(h, upload(t, "file", "card.jpg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Text, models.ErrorPrefix+": ")
	assert.Contains(t, result.Error, "sidecar unreachable")
}

func TestRecognizeIsSerialized(t *testing.T) {
	fake := &fakeRecognizer{text: "ok", delay: 20 * time.Millisecond}
	h := NewHandler(fake, ServiceStatus{Available: true}, t.TempDir(), nil)
	router := h.SetupRoutes()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		req := upload(t, "file", "card.jpg", []byte("jpeg"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			router.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	assert.Len(t, fake.seen, 4)
	assert.Zero(t, atomic.LoadInt32(&fake.overlap))
}

func TestHealth(t *testing.T) {
	h := NewHandler(&fakeRecognizer{}, ServiceStatus{Available: true, Path: "/usr/bin/tesseract", Version: "tesseract 5.3.0"}, "", nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "fake", resp.Backend)
	assert.Equal(t, "tesseract 5.3.0", resp.Engine.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestHealthDegraded(t *testing.T) {
	h := NewHandler(&fakeRecognizer{}, ServiceStatus{Error: "sidecar down"}, "", nil)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

type panicOnceRecognizer struct {
	calls int32
}

func (p *panicOnceRecognizer) Name() string { return "flaky" }

func (p *panicOnceRecognizer) Recognize(_ context.Context, ref models.ImageRef) (models.Recognition, error) {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		panic("engine crashed")
	}
	return models.Recognition{Text: "recovered " + ref.Name}, nil
}

func TestRecognizePanicReleasesLock(t *testing.T) {
	fake := &panicOnceRecognizer{}
	h := NewHandler(fake, ServiceStatus{Available: true}, t.TempDir(), nil)
	router := h.SetupRoutes()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, upload(t, "file", "card_01.jpg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, first.Code)

	var failed models.ExtractionResult
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &failed))
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Error, "recognizer panicked")

	req := upload(t, "file", "card_02.jpg", []byte("jpeg"))
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case second := <-done:
		require.Equal(t, http.StatusOK, second.Code)
		var result models.ExtractionResult
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "recovered card_02.jpg", result.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("second request blocked after recognizer panic")
	}
}
