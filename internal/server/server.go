// Package server exposes the warehouse over HTTP: fact CRUD, dimension
// listings, reports, the OLTP staging table, and pipeline triggers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"salesdw/internal/etl"
	"salesdw/internal/logging"
	"salesdw/internal/storage"
)

// Server routes API requests to a repository and a pipeline engine.
type Server struct {
	repo    storage.Repository
	engine  *etl.Engine
	router  *mux.Router
	handler http.Handler
}

// New builds a Server and registers all routes.
func New(repo storage.Repository, engine *etl.Engine) *Server {
	s := &Server{
		repo:   repo,
		engine: engine,
		router: mux.NewRouter(),
	}
	s.routes()
	// CORS wraps outermost so preflight requests are answered before
	// route matching can 405 them.
	s.handler = requestLogging(cors(s.router))
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/etl/load", s.handleETLLoad).Methods(http.MethodPost)
	r.HandleFunc("/upload/sales", s.handleUploadSales).Methods(http.MethodPost)

	r.HandleFunc("/sales", s.handleCreateSale).Methods(http.MethodPost)
	r.HandleFunc("/sales", s.handleListSales).Methods(http.MethodGet)
	r.HandleFunc("/sales/count", s.handleCountSales).Methods(http.MethodGet)
	r.HandleFunc("/sales/{id:[0-9]+}", s.handleGetSale).Methods(http.MethodGet)
	r.HandleFunc("/sales/{id:[0-9]+}", s.handleUpdateSale).Methods(http.MethodPut)
	r.HandleFunc("/sales/{id:[0-9]+}", s.handleDeleteSale).Methods(http.MethodDelete)

	r.HandleFunc("/dims/{dim}", s.handleListDimension).Methods(http.MethodGet)
	r.HandleFunc("/rankings/{entity}", s.handleRankings).Methods(http.MethodGet)
	r.HandleFunc("/reports/aggregate", s.handleAggregate).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/metrics", s.handleDashboard).Methods(http.MethodGet)

	r.HandleFunc("/oltp/sales", s.handleCreateStaged).Methods(http.MethodPost)
	r.HandleFunc("/oltp/sales", s.handleListStaged).Methods(http.MethodGet)
	r.HandleFunc("/oltp/sales/count", s.handleCountStaged).Methods(http.MethodGet)
	r.HandleFunc("/oltp/sales/{id:[0-9]+}", s.handleGetStaged).Methods(http.MethodGet)
	r.HandleFunc("/oltp/sales/{id:[0-9]+}", s.handleUpdateStaged).Methods(http.MethodPut)
	r.HandleFunc("/oltp/sales/{id:[0-9]+}", s.handleDeleteStaged).Methods(http.MethodDelete)
	r.HandleFunc("/oltp/transfer", s.handleTransfer).Methods(http.MethodPost)
}

// Handler returns the root HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves the API on addr until ctx is canceled, then shuts down
// gracefully with a short drain window.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // file loads can be slow
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logging.Info().Msg("api server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
