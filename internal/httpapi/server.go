package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/punchbridge/internal/metrics"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/service"
	"github.com/BrandonDHaskell/punchbridge/internal/punch/types"
)

// MQTTStatus reports the subscriber state shown on /health.
type MQTTStatus interface {
	URL() string
	Topic() string
	Connected() bool
}

type Dependencies struct {
	Logger   *zap.Logger
	Addr     string
	APIToken string
	DBPath   string

	QueryService *service.QueryService
	MQTT         MQTTStatus

	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer // nil: prometheus.DefaultGatherer
}

type Server struct {
	httpServer   *http.Server
	logger       *zap.Logger
	engine       *gin.Engine
	queryService *service.QueryService
	mqtt         MQTTStatus
	dbPath       string
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(d.Logger, d.Metrics))

	s := &Server{
		logger:       d.Logger,
		engine:       engine,
		queryService: d.QueryService,
		mqtt:         d.MQTT,
		dbPath:       d.DBPath,
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	logs := engine.Group("/logs", bearerAuth(d.APIToken))
	logs.GET("/latest", s.handleLatest)
	logs.GET("", s.handleLogs)
	logs.GET("/employee/:enrollid", s.handleByEmployee)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving HTTP.  It returns nil after Shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		OK:   true,
		DB:   types.HealthDB{SQLite: s.dbPath},
		Time: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if s.mqtt != nil {
		resp.MQTT = types.HealthMQTT{
			URL:       s.mqtt.URL(),
			Topic:     s.mqtt.Topic(),
			Connected: s.mqtt.Connected(),
		}
	}
	render(c, http.StatusOK, resp)
}

func (s *Server) handleLatest(c *gin.Context) {
	resp, err := s.queryService.Latest(c.Request.Context(), service.LatestRequest{
		Limit: c.Query("limit"),
	})
	if err != nil {
		s.internalError(c, "latest", err)
		return
	}
	render(c, http.StatusOK, resp)
}

func (s *Server) handleLogs(c *gin.Context) {
	resp, err := s.queryService.Logs(c.Request.Context(), service.LogsRequest{
		Since:  c.Query("since"),
		Limit:  c.Query("limit"),
		Offset: c.Query("offset"),
	})
	if err != nil {
		s.internalError(c, "logs", err)
		return
	}
	render(c, http.StatusOK, resp)
}

func (s *Server) handleByEmployee(c *gin.Context) {
	resp, err := s.queryService.ByEmployee(c.Request.Context(), service.EmployeeRequest{
		EnrollID: c.Param("enrollid"),
		Limit:    c.Query("limit"),
		Offset:   c.Query("offset"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEnrollID) {
			writeError(c, http.StatusBadRequest, "Invalid enrollid")
			return
		}
		s.internalError(c, "employee logs", err)
		return
	}
	render(c, http.StatusOK, resp)
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	s.logger.Error(op+" query failed", zap.Error(err))
	writeError(c, http.StatusInternalServerError, "internal_error")
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
