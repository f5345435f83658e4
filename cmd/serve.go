package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aashish23092/isic-card-ocr/handler"
	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/Aashish23092/isic-card-ocr/service"
	"github.com/Aashish23092/isic-card-ocr/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ISIC card HTTP service",
	Long: `Run the HTTP service used by the wallet app.

Examples:
  # Listen on the configured port (default 8080)
  isic-ocr serve

  # Use Google Cloud Vision instead of Tesseract
  GOOGLE_APPLICATION_CREDENTIALS=sa.json isic-ocr serve --engine vision`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "port to listen on (overrides server_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	extractor := utils.NewISICExtractor()
	preprocessor := service.NewImagePreprocessor()
	factory := newEngineFactory(cfg)

	store := service.NewSessionStore(service.SessionConfig{
		EngineFactory:          factory,
		RecognitionTimeout:     cfg.RecognitionTimeout,
		Preprocessor:           preprocessor,
		Extractor:              extractor,
		Uploader:               newUploader(cfg),
		MaxFileSize:            cfg.MaxFileSize,
		LowConfidenceThreshold: cfg.LowConfidenceThreshold,
		CompleteDelay:          cfg.CompleteDelay,
	})
	defer store.CloseAll()

	extraction := service.NewExtractionService(factory, cfg.RecognitionTimeout, preprocessor, extractor, cfg.MaxFileSize, cfg.LowConfidenceThreshold)
	router := handler.NewRouter(handler.NewISICHandler(extraction, store, cfg.MaxFileSize), cfg.MaxMultipartMemory)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting ISIC Card OCR service on port %s (engine %s)", cfg.ServerPort, cfg.OCREngine)
		if cfg.BackendURL == "" {
			logger.Warn("backend_url is not set; consented submissions will fail")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
