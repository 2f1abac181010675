package api

import (
	"context"
	"fmt"
	"net/http"

	"credit-feature-pipeline/internal/api/handler"
	"credit-feature-pipeline/internal/config"
	"credit-feature-pipeline/internal/pipeline"
	"credit-feature-pipeline/internal/store"
	"credit-feature-pipeline/pkg/router"
	"credit-feature-pipeline/pkg/utils"

	_ "credit-feature-pipeline/docs"

	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.POST("/api/v1/extractions", h.CreateExtraction)
	r.GET("/api/v1/extractions", h.ListExtractions)
	// More specific routes first
	r.GET("/api/v1/extractions/*/rows", h.GetExtractionRows)
	r.GET("/api/v1/extractions/*/errors", h.GetExtractionErrors)
	r.GET("/api/v1/extractions/*/logs", h.GetExtractionLogs)
	r.GET("/api/v1/extractions/*/download", h.GetExtractionDownload)
	// Generic extraction routes last
	r.GET("/api/v1/extractions/*", h.GetExtraction)
	r.DELETE("/api/v1/extractions/*", h.DeleteExtraction)

	r.GET("/api/v1/schema", h.GetSchema)
	r.Handle("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// Serve registers the API on a new router and serves it until ctx is cancelled
func Serve(ctx context.Context, cfg *config.Config, h *handler.Handler, logger zerolog.Logger) error {
	r := router.New(logger)
	RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return r.Start(ctx, srv, cfg.Server.ShutdownTimeout)
}

// Run opens the run store, wires the extraction handler and serves the API
// until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer st.Close()

	runner := pipeline.NewRunner(pipeline.CreditBureauSchema(), st, logger)
	h := handler.New(st, runner, utils.NewOutputManager(cfg.Output.Dir), logger, handler.Options{
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		FailurePolicy: cfg.FailurePolicy(),
		Timeout:       cfg.Extraction.Timeout,
		SourceDir:     cfg.Server.SourceDir,
		BaseContext:   ctx,
	})

	logger.Info().Str("database", cfg.Database.Path).Str("output_dir", cfg.Output.Dir).Msg("Extraction API ready")
	err = Serve(ctx, cfg, h, logger)
	// background runs write to the store until they return
	h.Wait()
	return err
}
