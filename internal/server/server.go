package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/analytics"
	"ecommerce-dashboard/internal/cache"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// Cache is the part of *cache.Memo the handlers use.
type Cache interface {
	Snapshot(ctx context.Context) (*cache.Snapshot, error)
	Invalidate()
}

type Server struct {
	cache   Cache
	metrics *metrics.Registry
	logger  *slog.Logger
}

func New(c Cache, reg *metrics.Registry, logger *slog.Logger) *Server {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cache: c, metrics: reg, logger: logger}
}

// Router registers every route on a fresh engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/options", s.options)
		api.GET("/stats", s.stats)
		api.POST("/refresh", s.refresh)
		// GET /api/top-categories?filter=year&year=2017
		api.GET("/top-categories", s.topCategories)
		// GET /api/revenue?dimension=time&granularity=monthly
		api.GET("/revenue", s.revenue)
	}
	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the error response matching err and returns its metric kind.
func (s *Server) fail(c *gin.Context, err error) string {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, dataset.ErrDataUnavailable):
		status, kind = http.StatusServiceUnavailable, "data_unavailable"
	case errors.Is(err, analytics.ErrInvalidRequest):
		status, kind = http.StatusBadRequest, "invalid_request"
	}
	if status != http.StatusBadRequest {
		s.logger.Error("request failed",
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.String("error", err.Error()),
		)
	}
	c.JSON(status, gin.H{"error": err.Error(), "request_id": c.GetString(ctxRequestID)})
	return kind
}

func (s *Server) options(c *gin.Context) {
	snap, err := s.cache.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"build_id": snap.BuildID,
		"options":  analytics.Options(snap.Lines),
	})
}

func (s *Server) stats(c *gin.Context) {
	snap, err := s.cache.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"build_id":    snap.BuildID,
		"fingerprint": snap.Fingerprint,
		"built_at":    snap.BuiltAt,
		"stats":       snap.Stats,
	})
}

func (s *Server) refresh(c *gin.Context) {
	s.cache.Invalidate()
	snap, err := s.cache.Snapshot(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"build_id": snap.BuildID, "stats": snap.Stats})
}

type topCategoriesQuery struct {
	Filter   string `form:"filter" binding:"omitempty,oneof=none year location min_score"`
	Year     int    `form:"year"`
	Location string `form:"location"`
	MinScore int    `form:"min_score"`
}

func (s *Server) topCategories(c *gin.Context) {
	var q topCategoriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.metrics.ObserveQuery(string(analytics.ModeTopProducts), 0, "invalid_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": c.GetString(ctxRequestID)})
		return
	}
	s.dispatch(c, analytics.Request{
		Mode:           analytics.ModeTopProducts,
		Filter:         analytics.ProductFilter(q.Filter),
		Year:           q.Year,
		Location:       q.Location,
		MinReviewScore: q.MinScore,
	})
}

type revenueQuery struct {
	Dimension   string `form:"dimension" binding:"omitempty,oneof=time location category"`
	Granularity string `form:"granularity" binding:"omitempty,oneof=monthly yearly"`
}

func (s *Server) revenue(c *gin.Context) {
	var q revenueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.metrics.ObserveQuery(string(analytics.ModeRevenueTrend), 0, "invalid_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": c.GetString(ctxRequestID)})
		return
	}
	s.dispatch(c, analytics.Request{
		Mode:        analytics.ModeRevenueTrend,
		Dimension:   analytics.Dimension(q.Dimension),
		Granularity: analytics.Granularity(q.Granularity),
	})
}

type queryResponse struct {
	RequestID string            `json:"request_id"`
	BuildID   string            `json:"build_id"`
	Request   analytics.Request `json:"request"`
	Rows      []analytics.Row   `json:"rows"`
	Chart     []analytics.Row   `json:"chart"`
	Empty     bool              `json:"empty"`
}

func (s *Server) dispatch(c *gin.Context, req analytics.Request) {
	start := time.Now()
	kind := ""
	defer func() { s.metrics.ObserveQuery(string(req.Mode), time.Since(start), kind) }()

	snap, err := s.cache.Snapshot(c.Request.Context())
	if err != nil {
		kind = s.fail(c, err)
		return
	}
	res, err := analytics.Dispatch(snap.Lines, req)
	if err != nil {
		kind = s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, queryResponse{
		RequestID: c.GetString(ctxRequestID),
		BuildID:   snap.BuildID,
		Request:   res.Request,
		Rows:      res.Rows,
		Chart:     res.Chart,
		Empty:     res.Empty(),
	})
}
