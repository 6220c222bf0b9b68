// Package httpapi exposes the collection pipeline over HTTP. The scheduler
// target and the lease-expired subscription both deliver their payloads here.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/diillson/sandbox-cost-collector/internal/application/usecase"
	"github.com/diillson/sandbox-cost-collector/internal/domain/entity"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
)

// Budget do handler de coleta; a paginação observa o deadline e para antes.
const collectionTimeout = 14 * time.Minute

// Server atende as entregas do scheduler e os eventos de expiração de lease.
type Server struct {
	echo       *echo.Echo
	collection *usecase.CollectionUseCase
	schedule   *usecase.ScheduleUseCase
	log        log15.Logger
}

// NewServer cria o servidor HTTP com as rotas registradas.
func NewServer(collection *usecase.CollectionUseCase, schedule *usecase.ScheduleUseCase, logger log15.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, collection: collection, schedule: schedule, log: logger}

	e.POST("/tasks", s.handleTask)
	e.POST("/lease-expired", s.handleLeaseExpired)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type taskResponse struct {
	LeaseID      string  `json:"leaseId"`
	TotalCost    float64 `json:"totalCost"`
	CSVURL       string  `json:"csvUrl"`
	URLExpiresAt string  `json:"urlExpiresAt"`
}

func (s *Server) handleTask(c echo.Context) error {
	var task entity.ScheduledCollectionTask
	if err := c.Bind(&task); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("malformed task payload"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), collectionTimeout)
	defer cancel()

	result, err := s.collection.ProcessTask(ctx, task)
	if err != nil {
		return s.writeError(c, err, "leaseId", task.LeaseID)
	}

	return c.JSON(http.StatusOK, taskResponse{
		LeaseID:      task.LeaseID,
		TotalCost:    result.Report.TotalCost,
		CSVURL:       result.CSVURL,
		URLExpiresAt: result.URLExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleLeaseExpired(c echo.Context) error {
	var event entity.LeaseExpiredEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("malformed event payload"))
	}

	if err := s.schedule.ScheduleCollection(c.Request().Context(), event); err != nil {
		return s.writeError(c, err, "leaseId", event.LeaseID)
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps domain errors onto status codes. Internal failures are
// logged in full but reported generically; their details are not part of the
// API surface.
func (s *Server) writeError(c echo.Context, err error, logCtx ...interface{}) error {
	switch {
	case types.IsValidationError(err):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, types.ErrLeaseNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	default:
		s.log.Error("request failed", append(logCtx, "error", err)...)
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
