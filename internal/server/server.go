// Package server exposes the explorer over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v3"

	"ldexplorer/config"
	"ldexplorer/internal/metrics"
	"ldexplorer/internal/pipeline"
	"ldexplorer/logger"
	"ldexplorer/models"
	"ldexplorer/processor"
	"ldexplorer/writer"
)

// Explorer runs one exploration.
type Explorer interface {
	Run(ctx context.Context, phenotype, population string) (*pipeline.Result, error)
}

type Server struct {
	address         string
	shutdownTimeout time.Duration
	compression     string
	explorer        Explorer
	log             *logger.Log
	events          *eventStore
	logs            *logStore
	metricHandler   metrics.MetricHandlerID
	httpServer      *http.Server
}

// NewServer attaches a log capture hook to log and subscribes to metric
// events. Close releases both.
func NewServer(cfg *config.Config, explorer Explorer, log *logger.Log) *Server {
	events := newEventStore(cfg.Server.History)
	logs := newLogStore(cfg.Server.History)
	log.AddHook(logs)

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Server{
		address:         normalizeAddress(cfg.Server.Address),
		shutdownTimeout: timeout,
		compression:     cfg.Output.Compression,
		explorer:        explorer,
		log:             log,
		events:          events,
		logs:            logs,
		metricHandler:   metrics.RegisterMetricHandler(events.handle),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	s.httpServer = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := s.log.WithComponent("server").WithField("address", s.address)
	log.Info("http server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		log.Info("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logs.close()
}

func (s *Server) Address() string {
	return s.address
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.GET("/report", s.handleReport)
	api.GET("/populations", func(c *gin.Context) {
		codes := models.PopulationCodes()
		payload := make([]gin.H, 0, len(codes))
		for _, code := range codes {
			payload = append(payload, gin.H{"code": code, "name": models.Populations[code]})
		}
		c.JSON(http.StatusOK, gin.H{"populations": payload})
	})
	api.GET("/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logs.snapshot()})
	})
	api.GET("/metrics/events", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"metrics": s.events.snapshot()})
	})

	return router
}

type reportQuery struct {
	Phenotype  string   `form:"phenotype" binding:"required"`
	Population string   `form:"population" binding:"required"`
	MinOdds    *float64 `form:"min_odds"`
	MaxOdds    *float64 `form:"max_odds"`
	WithTrait  bool     `form:"with_trait"`
	Trait      string   `form:"trait"`
	Format     string   `form:"format"`
}

func (q reportQuery) filter() models.FilterOptions {
	return models.FilterOptions{
		MinOdds:      null.FloatFromPtr(q.MinOdds),
		MaxOdds:      null.FloatFromPtr(q.MaxOdds),
		WithTrait:    q.WithTrait,
		TraitKeyword: q.Trait,
	}
}

func (s *Server) handleReport(c *gin.Context) {
	var q reportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	format := strings.ToLower(q.Format)
	switch format {
	case "":
		format = writer.FormatJSON
	case writer.FormatJSON, writer.FormatCSV, writer.FormatParquet:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", q.Format)})
		return
	}

	res, err := s.explorer.Run(c.Request.Context(), q.Phenotype, q.Population)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	report := processor.Filter(res.Report, q.filter())

	if format == writer.FormatJSON {
		c.JSON(http.StatusOK, gin.H{
			"run_id":     res.RunID,
			"match":      res.Match,
			"population": res.Population,
			"stats":      res.Stats,
			"report":     report,
		})
		return
	}

	data, err := writer.Encode(report, format, s.compression)
	if err != nil {
		s.log.WithComponent("server").WithError(err).Error("failed to encode report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.IncrementReportWritten(format, "http")
	filename := writer.Slug(res.Match.MatchedTrait) + "_" + res.Population + "." + format
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, writer.ContentType(format), data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrPhenotypeNotFound), errors.Is(err, models.ErrNoSignificantSNPs):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
