package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/logc/scorecard-ocr/internal/imageset"
	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Recognizer is the backend a server runs uploads through.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error)
}

// Handler serves single-image recognition over HTTP
type Handler struct {
	recognizer Recognizer
	engine     ServiceStatus
	uploadDir  string
	log        *logging.Logger
	started    time.Time

	// one recognition at a time
	mu sync.Mutex
}

// NewHandler creates a new API handler. engine describes the executable
// behind the recognizer, if any. Uploads are staged in uploadDir, or the
// system temp dir when empty.
func NewHandler(recognizer Recognizer, engine ServiceStatus, uploadDir string, log *logging.Logger) *Handler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		recognizer: recognizer,
		engine:     engine,
		uploadDir:  uploadDir,
		log:        log.WithComponent("api").WithBackend(recognizer.Name()),
		started:    time.Now(),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/recognize", h.Recognize).Methods("POST")
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Backend   string        `json:"backend"`
	Memory    MemoryStats   `json:"memory"`
	Engine    ServiceStatus `json:"engine"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of the recognition engine
type ServiceStatus struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health reports the backend, its engine and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Backend:   h.recognizer.Name(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Engine: h.engine,
	}

	if !h.engine.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// Recognize runs the backend on one uploaded image and returns the
// ExtractionResult. Recognition failures are reported in the body with
// status 200, like a batch row.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// accept both "file" and "image" field names
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = storage.GetFileExtension(header.Header.Get("Content-Type"))
	}
	if !imageset.Supported("upload" + ext) {
		h.sendError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported image type %q (supported: %s)", ext, imageset.SupportedList()))
		return
	}

	staged := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s%s",
		time.Now().Format("20060102_150405"), uuid.New().String()[:8], ext))
	if err := saveUpload(staged, file); err != nil {
		h.log.Error().Err(err).Msg("failed to stage upload")
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer os.Remove(staged)

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = filepath.Base(staged)
	}

	start := time.Now()
	rec, err := h.recognize(r.Context(), models.ImageRef{Path: staged, Name: name})
	if err != nil {
		h.log.Warn().Err(err).Str("file", name).Msg("recognition failed")
		json.NewEncoder(w).Encode(models.FailedResult(name, err))
		return
	}

	h.log.Info().Str("file", name).Dur("took", time.Since(start)).Msg("recognized upload")
	json.NewEncoder(w).Encode(models.ExtractionResult{
		Filename: name,
		Text:     rec.Text,
		Table:    rec.Table,
		Success:  true,
	})
}

// recognize runs one recognition at a time. A panicking recognizer becomes a
// recognition error and leaves the lock free for the next request.
func (h *Handler) recognize(ctx context.Context, ref models.ImageRef) (rec models.Recognition, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			err = models.RecognitionError("recognizer panicked", fmt.Errorf("%v", p))
		}
	}()
	return h.recognizer.Recognize(ctx, ref)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
