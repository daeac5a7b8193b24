package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/archive"
	"github.com/voterlookup/epic-extractor/internal/config"
	handlers "github.com/voterlookup/epic-extractor/internal/handlers/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/orchestrator"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/util"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"github.com/voterlookup/epic-extractor/pkg/metrics"
	"github.com/voterlookup/epic-extractor/pkg/middleware"
	"go.uber.org/zap"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
	// running bulk jobs stop at the next identifier once this expires
	jobShutdownTimeout = 30 * time.Second
)

// Launcher starts bulk jobs in the background and waits for them on shutdown.
type Launcher interface {
	service.JobLauncher
	Shutdown(ctx context.Context) error
}

type Server struct {
	cfg       *config.Config
	store     store.Store
	listener  net.Listener
	extractor orchestrator.Extractor
	launcher  Launcher
	portal    service.PortalPinger
	archiver  archive.Archiver
	metrics   *metrics.Middleware
}

type Option func(*Server)

// WithArchiver keeps uploaded spreadsheets in object storage.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Server) {
		s.archiver = a
	}
}

// New returns a new instance of the extraction API server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
	extractor orchestrator.Extractor,
	launcher Launcher,
	portal service.PortalPinger,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		listener:  listener,
		extractor: extractor,
		launcher:  launcher,
		portal:    portal,
		metrics:   metrics.NewMiddleware("api_server"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func oapiErrorHandler(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.Error{Message: fmt.Sprintf("API Error: %s", message)})
}

// Handler builds the router with every middleware and route mounted.
func (s *Server) Handler() (http.Handler, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load swagger spec: %w", err)
	}
	// Skip server name validation
	swagger.Servers = nil

	oapiOpts := oapimiddleware.Options{
		// bodies are bounded and decoded by the handlers; uploads must not be
		// buffered here
		Options:      openapi3filter.Options{ExcludeRequestBody: true},
		ErrorHandler: oapiErrorHandler,
	}

	router := chi.NewRouter()

	router.Use(
		util.LegacyApiRewrite,
		s.metrics.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Service.AllowedOrigins,
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		log.AccessLogger(zap.L(), "http"),
		chiMiddleware.Recoverer,
		oapimiddleware.OapiRequestValidatorWithOptions(swagger, &oapiOpts),
	)

	extractionOpts := []service.ExtractionOption{
		service.WithMaxAttempts(s.cfg.Extraction.MaxAttempts),
		service.WithDefaultRegion(s.cfg.Extraction.DefaultRegion),
	}
	if s.archiver != nil {
		extractionOpts = append(extractionOpts, service.WithArchiver(s.archiver))
	}

	h := handlers.NewServiceHandler(
		service.NewExtractionService(s.store, s.extractor, s.launcher, extractionOpts...),
		service.NewJobService(s.store),
		service.NewVoterService(s.store),
		service.NewHealthService(s.store, s.portal),
		handlers.WithMaxUploadSize(s.cfg.Service.MaxUploadSize),
	)
	h.RegisterRoutes(router)

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.metrics.MustRegisterDefault()
	srv := http.Server{Addr: s.cfg.Service.Address, Handler: handler}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	jobsCtx, cancel := context.WithTimeout(context.Background(), jobShutdownTimeout)
	defer cancel()
	if err := s.launcher.Shutdown(jobsCtx); err != nil {
		zap.S().Named("api_server").Warnw("bulk jobs interrupted on shutdown", "error", err)
	}

	return nil
}
