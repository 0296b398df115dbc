package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/aescanero/kvarea/internal/application/area"
	eventsredis "github.com/aescanero/kvarea/pkg/adapters/events/redis"
	"github.com/aescanero/kvarea/pkg/ports"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// healthCheckTimeout bounds the checks done by /health
const healthCheckTimeout = 2 * time.Second

// Page sizes for /api/v1/changes
const (
	defaultChangesCount = 100
	maxChangesCount     = 1000
)

// ChangeReader reads relayed ChangeSets in stream order
type ChangeReader interface {
	Read(ctx context.Context, after string, count int64) ([]eventsredis.Record, error)
}

// ChangesResponse is one page of relayed ChangeSets. Next is the stream ID
// to pass as ?after= for the following page.
type ChangesResponse struct {
	Records []eventsredis.Record `json:"records"`
	Next    string               `json:"next,omitempty"`
}

// KeysRequest carries a selector for get, remove and bytes-in-use.
// Keys may be null, a string, an array of strings or an object of defaults.
type KeysRequest struct {
	Keys json.RawMessage `json:"keys"`
}

// SetRequest represents a set request
type SetRequest struct {
	Items map[string]interface{} `json:"items" binding:"required"`
}

// ItemsResponse represents a read result. Items is null when the read failed.
type ItemsResponse struct {
	Area  string      `json:"area"`
	Items ports.Items `json:"items"`
}

// CompletedResponse is returned by mutating operations
type CompletedResponse struct {
	Area   string `json:"area"`
	Status string `json:"status"`
}

// BytesInUseResponse always carries a null count
type BytesInUseResponse struct {
	Area       string `json:"area"`
	BytesInUse *int64 `json:"bytes_in_use"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{"store": "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if pinger, ok := s.store.(ports.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			s.logger.Warn("store health check failed", zap.Error(err))
			checks["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checks[name] = "ok"
		if err := s.checks[name].CheckHealth(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    health,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleListAreas returns the bound area names
func (s *Server) handleListAreas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"areas": s.registry.Names(),
	})
}

// handleReadChanges pages through relayed ChangeSets
func (s *Server) handleReadChanges(c *gin.Context) {
	count := int64(defaultChangesCount)
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || n > maxChangesCount {
			s.badRequest(c, fmt.Errorf("count must be between 1 and %d", maxChangesCount))
			return
		}
		count = n
	}

	records, err := s.changes.Read(c.Request.Context(), c.Query("after"), count)
	if err != nil {
		s.sink.ReportError(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: ErrorDetail{
				Code:    "RELAY_UNAVAILABLE",
				Message: err.Error(),
			},
		})
		return
	}

	resp := ChangesResponse{Records: records}
	if len(records) > 0 {
		resp.Next = records[len(records)-1].StreamID
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetItems reads every item, or the repeated ?key= query values
func (s *Server) handleGetItems(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	var sel area.Selector = area.AllKeys{}
	if keys, ok := c.GetQueryArray("key"); ok {
		sel = area.KeyList(keys)
	}

	c.JSON(http.StatusOK, ItemsResponse{
		Area:  name,
		Items: a.Get(c.Request.Context(), sel),
	})
}

// handleGet reads the items chosen by the request selector
func (s *Server) handleGet(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	sel, ok := s.bindSelector(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ItemsResponse{
		Area:  name,
		Items: a.Get(c.Request.Context(), sel),
	})
}

// handleSet writes items
func (s *Server) handleSet(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	a.Set(c.Request.Context(), ports.Items(req.Items))

	c.JSON(http.StatusOK, CompletedResponse{Area: name, Status: "completed"})
}

// handleRemove removes one key or a list of keys
func (s *Server) handleRemove(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	var req KeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	keys, err := area.ParseKeys(req.Keys)
	if err != nil {
		s.badRequest(c, err)
		return
	}

	a.Remove(c.Request.Context(), keys...)

	c.JSON(http.StatusOK, CompletedResponse{Area: name, Status: "completed"})
}

// handleClear removes every item
func (s *Server) handleClear(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	a.Clear(c.Request.Context())

	c.JSON(http.StatusOK, CompletedResponse{Area: name, Status: "completed"})
}

// handleBytesInUse reports byte usage, which is not supported
func (s *Server) handleBytesInUse(c *gin.Context) {
	a, name, ok := s.resolveArea(c)
	if !ok {
		return
	}

	sel, ok := s.bindSelector(c)
	if !ok {
		return
	}

	var bytesInUse *int64
	if n, ok := a.GetBytesInUse(c.Request.Context(), sel); ok {
		bytesInUse = &n
	}

	c.JSON(http.StatusOK, BytesInUseResponse{Area: name, BytesInUse: bytesInUse})
}

// resolveArea looks up the :area path parameter, answering 404 when unknown
func (s *Server) resolveArea(c *gin.Context) (*area.Area, string, bool) {
	name := c.Param("area")

	a, err := s.registry.Area(name)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: err.Error(),
			},
		})
		return nil, name, false
	}

	return a, name, true
}

// bindSelector decodes an optional KeysRequest body into a selector.
// An empty body selects all keys.
func (s *Server) bindSelector(c *gin.Context) (area.Selector, bool) {
	var req KeysRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.badRequest(c, err)
		return nil, false
	}

	sel, err := area.ParseSelector(req.Keys)
	if err != nil {
		s.badRequest(c, err)
		return nil, false
	}

	return sel, true
}

// badRequest answers 400 and reports err as invalid input
func (s *Server) badRequest(c *gin.Context, err error) {
	if !errors.Is(err, area.ErrInvalidInput) {
		err = fmt.Errorf("%w: %w", area.ErrInvalidInput, err)
	}
	s.logger.Debug("invalid request", zap.Error(err))
	s.sink.ReportError(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}
