package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/brpaz/echozap"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	cachepkg "github.com/fgribreau/img-optimizer/internal/cache"
	"github.com/fgribreau/img-optimizer/internal/cache/noop"
	"github.com/fgribreau/img-optimizer/internal/flight"
	"github.com/fgribreau/img-optimizer/internal/opentelemetry"
	optimizerpkg "github.com/fgribreau/img-optimizer/internal/optimizer"
	"github.com/fgribreau/img-optimizer/internal/optimizer/codec"
	"github.com/fgribreau/img-optimizer/internal/optimizer/fetcher"
	"github.com/fgribreau/img-optimizer/internal/server/rule"
)

const (
	DefaultMaxSourceSize  = 50 * 1024 * 1024
	DefaultFetchTimeout   = 30 * time.Second
	DefaultComputeTimeout = 60 * time.Second
)

type Server struct {
	listener   net.Listener
	httpServer *http.Server
	echo       *echo.Echo
	logger     *zap.SugaredLogger

	cache          cachepkg.Cache
	coordinator    *flight.Coordinator
	optimizer      *optimizerpkg.Optimizer
	fetcher        optimizerpkg.Fetcher
	codec          optimizerpkg.Codec
	rules          rule.Rules
	maxSourceSize  int64
	fetchTimeout   time.Duration
	computeTimeout time.Duration

	// Metrics
	requestsCounter       metric.Int64Counter
	cacheOperationCounter metric.Int64Counter
}

func New(addr string, opts ...Option) (*Server, error) {
	server := &Server{
		maxSourceSize:  DefaultMaxSourceSize,
		fetchTimeout:   DefaultFetchTimeout,
		computeTimeout: DefaultComputeTimeout,
	}

	// Listen on the desired port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	// Apply options
	for _, opt := range opts {
		opt(server)
	}

	// Apply defaults
	if server.cache == nil {
		server.cache = noop.New()
	}

	if server.logger == nil {
		server.logger = zap.NewNop().Sugar()
	}

	if server.fetcher == nil {
		server.fetcher = fetcher.New(server.maxSourceSize, server.fetchTimeout)
	}

	if server.codec == nil {
		server.codec = codec.New()
	}

	server.optimizer = optimizerpkg.New(server.fetcher, server.codec)
	server.coordinator = flight.New(server.cache, server.computeTimeout, server.logger)

	// Configure routes
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echozap.ZapLogger(server.logger.Desugar()))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))

	e.GET("/health", server.handleHealth)
	e.GET("/errors", server.handleErrors)
	e.GET("/img-optimizer/v1/img", server.handleOptimize)
	e.GET("/img-optimizer/v1/img/:id", server.handleDirectImage)

	server.echo = e

	// Configure HTTP server
	server.httpServer = &http.Server{
		Handler:           otelhttp.NewHandler(e, "http.request"),
		ReadHeaderTimeout: 30 * time.Second,
	}

	// Metrics
	server.requestsCounter, err = opentelemetry.DefaultMeter.Int64Counter(
		"com.fgribreau.imgoptimizer.requests.total",
	)
	if err != nil {
		return nil, err
	}

	server.cacheOperationCounter, err = opentelemetry.DefaultMeter.Int64Counter(
		"com.fgribreau.imgoptimizer.cache.operation_count",
	)
	if err != nil {
		return nil, err
	}

	return server, nil
}

func (server *Server) Addr() string {
	return strings.ReplaceAll(server.listener.Addr().String(), "[::]", "127.0.0.1")
}

func (server *Server) Run(ctx context.Context) error {
	server.logger.Infof("listening on %s", server.Addr())

	go func() {
		<-ctx.Done()

		_ = server.httpServer.Close()
	}()

	return server.httpServer.Serve(server.listener)
}
