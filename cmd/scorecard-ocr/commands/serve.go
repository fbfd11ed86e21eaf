package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/api"
)

var (
	serveHost    string
	servePort    int
	serveBackend string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve single-image recognition over HTTP",
	Long: `Start an HTTP server with one configured backend.

  POST /api/recognize   multipart upload (field "file" or "image")
  GET  /health          backend, engine and uptime`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("host") {
			cfg.Server.Host = serveHost
		}
		if flags.Changed("port") {
			cfg.Server.Port = servePort
		}
		if flags.Changed("backend") {
			cfg.Server.Backend = serveBackend
		}
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "listen port (default $PORT)")
	serveCmd.Flags().StringVar(&serveBackend, "backend", BackendTesseract, "tesseract, easyocr, ocrspace or vision")
	rootCmd.AddCommand(serveCmd)
}

func runServer(ctx context.Context) error {
	b, err := newBackend(ctx, cfg.Server.Backend)
	if err != nil {
		return err
	}
	defer b.Close()

	handler := api.NewHandler(b.recognizer, b.status, "", logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", addr).Str("backend", b.recognizer.Name()).Msgf("Starting scorecard-ocr %s", api.Version)
	console.Info("Endpoints:")
	console.Info("  POST http://%s/api/recognize  - Recognise one image", addr)
	console.Info("  GET  http://%s/health         - Health check", addr)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
