package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

func NewServer(cfg config.HTTPServerConfig, handler *Handler, log logger.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/listings", func(r chi.Router) {
			r.Post("/", handler.CreateListing)
			r.Get("/", handler.GetListings)
			r.Get("/collection/{wallet}", handler.GetCollection)
			r.Route("/{listingId}", func(r chi.Router) {
				r.Get("/", handler.GetListing)
				r.Delete("/", handler.DeleteListing)
				r.Get("/purchasable", handler.GetPurchasable)
				r.Post("/purchase", handler.Purchase)
				r.Post("/relist", handler.Relist)
				r.Post("/redeem", handler.Redeem)
			})
		})
		r.Delete("/records/{recordId}", handler.CancelIntent)
		r.Post("/images", handler.UploadImage)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      otelhttp.NewHandler(r, "marketplace-http"),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server starting on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
