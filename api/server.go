package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloudhut/klag/lag"
)

type lagService interface {
	GetGroupLag(ctx context.Context, clusterID string, groupID string) (lag.GroupLag, bool)
	ListPartitionLags(ctx context.Context, clusterID string, groupID string) []lag.PartitionLag
	GetPartitionLag(ctx context.Context, clusterID string, topicName string, partitionID int32, groupID string) (lag.PartitionLag, bool)
}

type healthChecker interface {
	IsConnected() bool
}

// Server serves the lag REST API together with the /metrics and /healthz endpoints.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	lags    lagService
	health  healthChecker
	links   linkFactory
	handler http.Handler

	httpServer *http.Server
}

// NewServer builds the HTTP handler. Request metrics are registered with registry, which is also served
// on /metrics.
func NewServer(cfg Config, logger *zap.Logger, metricsNamespace string, registry *prometheus.Registry, lags lagService, health healthChecker) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("api"),
		lags:   lags,
		health: health,
		links:  newLinkFactory(cfg),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = s.handleNotFound()

	v3 := router.PathPrefix("/v3").Subrouter()
	v3.NotFoundHandler = s.handleNotFound()
	v3.Use(requestTimeout(cfg.RequestTimeout))
	v3.HandleFunc("/clusters/{clusterId}/consumer-groups/{consumerGroupId}/lag-summary", s.handleGetGroupLag()).
		Methods(http.MethodGet)
	v3.HandleFunc("/clusters/{clusterId}/consumer-groups/{consumerGroupId}/lags", s.handleListPartitionLags()).
		Methods(http.MethodGet)
	v3.HandleFunc("/clusters/{clusterId}/topics/{topicName}/partitions/{partitionId}/lags/{consumerGroupId}", s.handleGetPartitionLag()).
		Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth()).Methods(http.MethodGet)

	metrics := newRequestMetrics(metricsNamespace, registry)
	router.Use(accessLog(s.logger), metrics.Middleware)

	var handler http.Handler = router
	if cfg.CORS.Enabled {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead}),
		)(handler)
	}
	handler = headerCopy(cfg.HeaderCopy, s.logger)(handler)
	handler = requestID(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(true),
	)(handler)
	s.handler = handler

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start listens on the configured address and blocks until the server fails or ctx is done. Once ctx is done
// in flight requests get the configured shutdown timeout to complete.
func (s *Server) Start(ctx context.Context) error {
	listenAddress := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.httpServer = &http.Server{
		Addr:    listenAddress,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on address", zap.String("listen_address", listenAddress))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}
