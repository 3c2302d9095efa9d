// Package api exposes the safety service over HTTP and a websocket channel.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/UnknownOlympus/paddos/internal/monitor"
	"github.com/UnknownOlympus/paddos/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Service is the part of the safety service used by the handlers.
type Service interface {
	Score(ctx context.Context, req models.SafetyRequest) (models.SafetyReport, error)
	StartMonitoring(ctx context.Context, sessionID string, req models.SafetyRequest, sink monitor.Sink) error
	StopMonitoring(ctx context.Context, sessionID string) bool
	Disconnect(sessionID string)
	Locate(ctx context.Context, clientIP string) (*models.Location, error)
}

// Handler serves the public API.
type Handler struct {
	svc      Service
	log      *slog.Logger
	upgrader websocket.Upgrader
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error messages shown to clients.
const (
	msgInvalidCoordinates = "Invalid coordinates"
	msgOutOfRange         = "Coordinates out of range"
	msgLocationFailed     = "Location detection failed"
)

// NewHandler creates the API handler.
func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
}

// Location detects the caller's position from its address.
func (h *Handler) Location(c *gin.Context) {
	location, err := h.svc.Locate(c.Request.Context(), c.ClientIP())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, response{Error: msgLocationFailed})
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: location})
}

// Safety scores the posted coordinates.
func (h *Handler) Safety(c *gin.Context) {
	var req models.SafetyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.DebugContext(c.Request.Context(), "Malformed safety request", "error", err)
		c.JSON(http.StatusBadRequest, response{Error: msgInvalidCoordinates})
		return
	}

	report, err := h.svc.Score(c.Request.Context(), req)
	if err != nil {
		status, message := requestError(err)
		c.JSON(status, response{Error: message})
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: report})
}

// requestError maps a service error to a status code and a client message.
func requestError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCoordinates):
		return http.StatusBadRequest, msgInvalidCoordinates
	case errors.Is(err, service.ErrCoordinatesOutOfRange):
		return http.StatusBadRequest, msgOutOfRange
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
