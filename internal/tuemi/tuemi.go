package tuemi

import (
	"context"

	"github.com/tuemi-io/tuemi/internal/tuemi/core/service"
	"github.com/tuemi-io/tuemi/internal/tuemi/server"
	"github.com/tuemi-io/tuemi/internal/tuemi/store/sqlite"
	"github.com/tuemi-io/tuemi/pkg/log"
)

// TuemiServer is the main application struct of tuemi-server.
type TuemiServer struct {
	serverManager *server.Manager
	svc           *service.Service
	store         *sqlite.Store
}

// Run blocks until ctx is cancelled or a sub-server fails, then lets in-flight
// incident alerts finish and closes the store.
func (a *TuemiServer) Run(ctx context.Context) error {
	log.Info("Starting TUEMI Application...")
	defer func() {
		if err := a.store.Close(); err != nil {
			log.Error(err, "Failed to close database")
		}
	}()
	defer a.svc.Wait()

	return a.serverManager.Start(ctx)
}
