package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logc/scorecard-ocr/internal/models"
)

func writeImage(t *testing.T, name string, data []byte) models.ImageRef {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return models.NewImageRef(path)
}

func TestOCRSpaceParseSuccess(t *testing.T) {
	var form map[string]string
	var upload []byte
	var uploadType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		upload, _ = io.ReadAll(f)
		uploadType = hdr.Header.Get("Content-Type")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"OCRExitCode":1,"IsErroredOnProcessing":false,"ParsedResults":[{"ParsedText":"Kevin Harvey 3\r\n"},{"ParsedText":"ignored"}]}`))
	}))
	defer srv.Close()

	ref := writeImage(t, "card.png", []byte("png-bytes"))
	client := NewOCRSpaceClient(OCRSpaceConfig{Endpoint: srv.URL, DetectOrientation: true, Scale: true})

	text, err := client.Parse(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Kevin Harvey 3\r\n", text)

	assert.Equal(t, "png-bytes", string(upload))
	assert.Equal(t, "image/png", uploadType)
	assert.Equal(t, map[string]string{
		"apikey":            OCRSpacePublicKey,
		"language":          "eng",
		"isOverlayRequired": "false",
		"detectOrientation": "true",
		"scale":             "true",
		"OCREngine":         "2",
	}, form)
}

func TestOCRSpaceNoParsedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[]}`))
	}))
	defer srv.Close()

	text, err := NewOCRSpaceClient(OCRSpaceConfig{Endpoint: srv.URL}).
		ParseBytes(context.Background(), "a.jpg", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestOCRSpaceErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error list", 200, `{"OCRExitCode":3,"IsErroredOnProcessing":true,"ErrorMessage":["File failed validation","Too large"]}`, "File failed validation; Too large"},
		{"error string", 200, `{"OCRExitCode":4,"ErrorMessage":"Timed out waiting for results"}`, "Timed out waiting for results"},
		{"missing message", 200, `{"OCRExitCode":2}`, "Unknown error"},
		{"http status", 403, `{"error":"rate limited"}`, "403"},
		{"bad json", 200, `<html>`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOCRSpaceClient(OCRSpaceConfig{Endpoint: srv.URL}).
				ParseBytes(context.Background(), "a.jpg", []byte("x"))
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.KindRemoteService))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestOCRSpaceNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	rec := NewRemoteRecognizer(NewOCRSpaceClient(OCRSpaceConfig{Endpoint: url, Timeout: time.Second}))
	_, err := rec.Recognize(context.Background(), writeImage(t, "a.jpg", []byte("x")))
	assert.True(t, models.IsKind(err, models.KindRemoteService))
	assert.Equal(t, "ocrspace", rec.Name())
}

func sidecar(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SidecarStatus{Status: "ok", Languages: []string{"en"}})
	})
	mux.HandleFunc("/readtext", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "en,es", r.FormValue("languages"))
		assert.Equal(t, "false", r.FormValue("gpu"))

		if r.FormValue("detail") == "0" {
			w.Write([]byte(`{"paragraphs":["Duck Club","Kevin Harvey 3"]}`))
			return
		}
		w.Write([]byte(`{"fragments":[
			{"box":[[0,5],[30,5],[30,15],[0,15]],"text":"Kevin","confidence":0.9},
			{"box":[[35,7],[80,7],[80,17],[35,17]],"text":"Harvey","confidence":0.8},
			{"box":[[0,50],[10,50],[10,60],[0,60]],"text":"3","confidence":0.7}
		]}`))
	})
	return httptest.NewServer(mux)
}

func TestNeuralRecognizerDetailMode(t *testing.T) {
	srv := sidecar(t, true)
	defer srv.Close()

	rec, err := NewNeuralRecognizer(context.Background(), NewEasyOCRClient(srv.URL, 0), NeuralConfig{
		ReadOptions: ReadOptions{Languages: []string{"en", "es"}, Detail: true},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "easyocr", rec.Name())

	out, err := rec.Recognize(context.Background(), writeImage(t, "a.jpg", []byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "Kevin Harvey\n3", out.Text)
	require.Len(t, out.Lines, 2)
	assert.InDelta(t, 0.85, out.Lines[0].Confidence, 1e-9)
}

func TestNeuralRecognizerPlainMode(t *testing.T) {
	srv := sidecar(t, true)
	defer srv.Close()

	rec, err := NewNeuralRecognizer(context.Background(), NewEasyOCRClient(srv.URL+"/", 0), NeuralConfig{
		ReadOptions: ReadOptions{Languages: []string{"en", "es"}},
	}, nil)
	require.NoError(t, err)

	out, err := rec.Recognize(context.Background(), writeImage(t, "a.jpg", []byte("jpeg")))
	require.NoError(t, err)
	assert.Equal(t, "Duck Club\nKevin Harvey 3", out.Text)
	assert.Empty(t, out.Lines)
}

func TestNeuralRecognizerUnhealthySidecar(t *testing.T) {
	srv := sidecar(t, false)
	defer srv.Close()

	_, err := NewNeuralRecognizer(context.Background(), NewEasyOCRClient(srv.URL, 0), NeuralConfig{}, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindBackendInit))
	assert.Equal(t, EasyOCRHint, models.HintOf(err))
}

func TestEasyOCRSidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"CUDA out of memory"}`))
	}))
	defer srv.Close()

	_, err := NewEasyOCRClient(srv.URL, 0).ReadText(context.Background(), "a.jpg", []byte("x"), ReadOptions{})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindRecognition))
	assert.Contains(t, err.Error(), "CUDA out of memory")
}

func TestSidecarServerMatchesClient(t *testing.T) {
	const script = "tools/easyocr-sidecar/server.py"
	src, err := os.ReadFile(filepath.Join("..", "..", script))
	require.NoError(t, err)
	assert.Contains(t, EasyOCRHint, script)

	server := string(src)
	for _, want := range []string{
		`"/health"`, `"/readtext"`, `"file"`,
		`"languages"`, `"gpu"`, `"detail"`, `"paragraph"`,
		`fragments=`, `paragraphs=`, `"box"`, `"confidence"`, `error=`,
		`"8866"`,
	} {
		assert.Contains(t, server, want)
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("é", 150)

	got := snippet(body, 199)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, body, got)

	got = snippet(body+"ü", 150)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, body+"...", got)

	assert.Equal(t, "Bad Gateway", snippet("  Bad Gateway\n", 200))
}
