// Package restserver serves the live dive state and the logbook over HTTP,
// with a gRPC health service multiplexed onto the same listener.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/log"
	"github.com/chrissnell/haldane/internal/storage/sqlite"
	"github.com/chrissnell/haldane/internal/types"
	"github.com/chrissnell/haldane/pkg/config"
	"github.com/gorilla/mux"
	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// StorageHealthService is the gRPC health service name carrying the state of
// the storage backends. The empty name tracks the dive loop.
const StorageHealthService = "haldane.storage"

const healthInterval = 10 * time.Second

// StatusReader exposes the live state of the dive loop.
type StatusReader interface {
	Latest() (types.Reading, bool)
	Tissues() []deco.Tissue
	Running() bool
}

// Logbook answers queries about past dives.
type Logbook interface {
	ListDives(ctx context.Context) ([]sqlite.Dive, error)
	Samples(ctx context.Context, id string) ([]types.Reading, error)
}

// StorageHealth reports per-backend storage health.
type StorageHealth interface {
	CheckHealth(ctx context.Context) map[string]error
}

// Deps are the parts of the running application the server reads from.
// Logbook and Storage may be nil.
type Deps struct {
	Status    StatusReader
	Logbook   Logbook
	Storage   StorageHealth
	ModelKind deco.Kind
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	deps       Deps
	Server     http.Server
	GRPCServer *grpc.Server
	health     *health.Server
	handlers   *Handlers
	logger     *zap.SugaredLogger
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Status == nil {
		return nil, errors.New("REST server requires a dive status source")
	}
	if deps.ModelKind == 0 {
		deps.ModelKind = deco.KindBuhlmann
	}

	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		deps:       deps,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()

	ctrl.GRPCServer = grpc.NewServer()
	ctrl.health = health.NewServer()
	healthpb.RegisterHealthServer(ctrl.GRPCServer, ctrl.health)
	reflection.Register(ctrl.GRPCServer)
	ctrl.updateHealth()

	return ctrl, nil
}

// Handler returns the HTTP router.
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Info("Starting REST server controller...")

	l, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return fmt.Errorf("REST server could not create listener: %w", err)
	}
	c.logger.Infof("REST server listening on %s", l.Addr())

	m := cmux.New(l)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.HTTP1Fast())

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		if err := c.GRPCServer.Serve(grpcL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
			c.logger.Errorf("gRPC health server error: %v", err)
		}
	}()

	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(httpL); err != nil && err != http.ErrServerClosed && !errors.Is(err, cmux.ErrListenerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		defer c.wg.Done()
		c.monitorHealth()
	}()

	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Debugf("connection multiplexer stopped: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		c.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
		c.GRPCServer.Stop()
		l.Close()
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger))

	router.HandleFunc("/latest", c.handlers.GetLatest).Methods(http.MethodGet)
	router.HandleFunc("/tissues", c.handlers.GetTissues).Methods(http.MethodGet)
	router.HandleFunc("/ndl", c.handlers.GetNDL).Methods(http.MethodGet)

	// The logbook endpoints only exist when SQLite storage is configured.
	if c.deps.Logbook != nil {
		router.HandleFunc("/dives", c.handlers.GetDives).Methods(http.MethodGet)
		router.HandleFunc("/dives/{id}/samples", c.handlers.GetDiveSamples).Methods(http.MethodGet)
	}

	return router
}

func (c *Controller) monitorHealth() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.updateHealth()
		case <-c.ctx.Done():
			return
		}
	}
}

// updateHealth publishes the dive loop and storage state to the gRPC health
// service.
func (c *Controller) updateHealth() {
	loop := healthpb.HealthCheckResponse_NOT_SERVING
	if c.deps.Status.Running() {
		loop = healthpb.HealthCheckResponse_SERVING
	}
	c.health.SetServingStatus("", loop)

	if c.deps.Storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, healthInterval/2)
	defer cancel()

	store := healthpb.HealthCheckResponse_SERVING
	for name, err := range c.deps.Storage.CheckHealth(ctx) {
		if err != nil {
			c.logger.Warnf("storage backend %s unhealthy: %v", name, err)
			store = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	c.health.SetServingStatus(StorageHealthService, store)
}
