// Package server wires the sharepad service together: configuration,
// logging, the document store (in-memory or PostgreSQL), the upload
// session manager, and the HTTP endpoint, with graceful shutdown on
// SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sharepad/sharepad/internal/logging"
	"github.com/sharepad/sharepad/internal/server/config"
	"github.com/sharepad/sharepad/internal/server/document"
	"github.com/sharepad/sharepad/internal/server/httpapi"
	docrepo "github.com/sharepad/sharepad/internal/server/repositories/document"
	syncr "github.com/sharepad/sharepad/internal/server/sync"
	"github.com/sharepad/sharepad/internal/server/uploads"
)

type App struct {
	config *config.Config
	logger logging.Logger
	http   *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSON()

	var repo docrepo.Repository
	if cfg.DatabaseDSN != "" {
		pg, err := docrepo.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repo = pg
	} else {
		repo = docrepo.NewMemoryRepository()
	}

	docs := document.NewService(repo, logger)
	reconciler := syncr.NewReconciler(docs)

	uploadSvc, err := uploads.NewService(cfg.UploadsRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("uploads init error: %w", err)
	}
	mirror := uploads.NewArchiveMirror(uploadSvc, uploads.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	httpSrv := httpapi.NewServer(cfg.EndpointAddr, docs, reconciler, uploadSvc, mirror, cfg.MaxUploadSizeMB, logger)

	return &App{config: cfg, logger: logger, http: httpSrv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.http.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
