package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"venue-backend/controllers"
	"venue-backend/routes"
	"venue-backend/services"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// runServe blocks until ctx is cancelled (SIGINT/SIGTERM) and then drains
// the server.
func runServe(ctx context.Context, opts *rootOptions) error {
	log := opts.log
	if opts.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := opts.database()
	if err != nil {
		return err
	}
	log.Info("database connection established and migrations applied")

	docSvc := opts.documentService(db)
	seqSvc := services.NewSequenceService(db, log)

	router := routes.SetupRouter(routes.Deps{
		DB:          db,
		Log:         log,
		CORSOrigins: opts.cfg.CORSOrigins,
		State:       controllers.NewStateController(docSvc),
		Sequences:   controllers.NewSequenceController(seqSvc),
		Groups:      controllers.NewGroupController(docSvc),
	})

	addr := ":" + opts.cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutdown signal received, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped gracefully")
	return nil
}
