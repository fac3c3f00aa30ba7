package server

import (
	"context"
	"net/http"
	"time"

	"github.com/devhb1/FrappeLms-sub002/internal/commission"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment"
	enrollmentdomain "github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/gateway"
	"github.com/devhb1/FrappeLms-sub002/internal/grant"
	"github.com/devhb1/FrappeLms-sub002/internal/lms"
	"github.com/devhb1/FrappeLms-sub002/internal/observability"
	obsmiddleware "github.com/devhb1/FrappeLms-sub002/internal/observability/logger"
	obsmetrics "github.com/devhb1/FrappeLms-sub002/internal/observability/metrics"
	obstracing "github.com/devhb1/FrappeLms-sub002/internal/observability/tracing"
	"github.com/devhb1/FrappeLms-sub002/internal/providers/email"
	"github.com/devhb1/FrappeLms-sub002/internal/ratelimit"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue"
	retrydomain "github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	enrollment.Module,
	gateway.Module,
	lms.Module,
	grant.Module,
	commission.Module,
	email.Module,
	ratelimit.Module,
	retryqueue.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	db                *gorm.DB
	log               *zap.Logger
	enrollmentSvc     enrollmentdomain.Service
	queueSvc          retrydomain.Service
	completionLimiter *ratelimit.CompletionLimiter
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	DB                *gorm.DB
	Log               *zap.Logger
	EnrollmentSvc     enrollmentdomain.Service
	QueueSvc          retrydomain.Service
	CompletionLimiter *ratelimit.CompletionLimiter `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		db:                p.DB,
		log:               p.Log.Named("server"),
		enrollmentSvc:     p.EnrollmentSvc,
		queueSvc:          p.QueueSvc,
		completionLimiter: p.CompletionLimiter,
		obsMetrics:        p.ObsMetrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.POST("/webhook", s.handleWebhook)
	s.engine.POST("/complete-enrollment", s.requireCompletionBudget(), s.handleCompleteEnrollment)
	s.engine.POST("/retry-worker", s.handleRunRetryBatch)
	s.engine.GET("/retry-worker", s.handleRetryQueueHealth)
}
