package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/form-relay/pkg/apiresponses"
	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/metrics"
	"github.com/telekom/form-relay/pkg/version"
)

// DefaultShutdownTimeout bounds how long in-flight submissions may finish after a stop signal.
const DefaultShutdownTimeout = 15 * time.Second

type APIController interface {
	BasePath() string
	Register(rg *gin.RouterGroup) error
	Handlers() []gin.HandlerFunc
}

type Server struct {
	gin             *gin.Engine
	config          config.Config
	log             *zap.Logger
	shutdownTimeout time.Duration
}

func NewServer(log *zap.Logger, cfg config.Config, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(log, time.RFC3339, true),
		ginzap.RecoveryWithZap(log, true),
		CorrelationIDMiddleware(log.Sugar()),
	)

	if err := engine.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Sugar().Warnw("Ignoring invalid trusted proxies", "proxies", cfg.Server.TrustedProxies, "error", err)
		_ = engine.SetTrustedProxies(nil)
	}

	if len(cfg.Server.AllowedOrigins) > 0 {
		engine.Use(
			cors.New(cors.Config{
				AllowOrigins:  cfg.Server.AllowedOrigins,
				AllowMethods:  []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
				ExposeHeaders: []string{RequestIDHeader},
				MaxAge:        12 * time.Hour,
			}),
		)
	}

	engine.NoRoute(func(c *gin.Context) {
		apiresponses.RespondNotFoundSimple(c, "not found")
	})

	s := &Server{
		gin:             engine,
		config:          cfg,
		log:             log,
		shutdownTimeout: DefaultShutdownTimeout,
	}

	engine.GET("healthz", s.getHealth)
	engine.GET("version", s.getVersion)
	if !cfg.Server.DisableMetrics {
		engine.GET("metrics", gin.WrapH(metrics.MetricsHandler()))
	}

	return s
}

// RegisterAll mounts controllers at the root; the form endpoint lives at /submit.
func (s *Server) RegisterAll(controllers []APIController) error {
	r := s.gin.Group("/")
	for _, c := range controllers {
		if err := c.Register(r.Group(c.BasePath(), c.Handlers()...)); err != nil {
			return err
		}
	}
	return nil
}

// WithShutdownTimeout overrides DefaultShutdownTimeout; non-positive values are ignored.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	if d > 0 {
		s.shutdownTimeout = d
	}
	return s
}

// Handler exposes the engine, mostly for httptest.
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Listen serves until ctx is cancelled, then drains in-flight requests.
// TLS is used when both certificate and key are configured.
func (s *Server) Listen(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.ListenAddress,
		Handler:           s.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.config.Server.TLSCertFile != "" && s.config.Server.TLSKeyFile != "" {
			s.log.Sugar().Infof("Listening with TLS on %s", srv.Addr)
			err = srv.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
		} else {
			s.log.Sugar().Infof("Listening on %s", srv.Addr)
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Sugar().Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) getHealth(c *gin.Context) {
	apiresponses.RespondOK(c, HealthResponse{Status: "ok"})
}

func (s *Server) getVersion(c *gin.Context) {
	apiresponses.RespondOK(c, version.GetBuildInfo())
}
