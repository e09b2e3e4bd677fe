package api

import (
	"context"
	"errors"
	"net/http"

	models "TrendPulse/internal/domain/models"
	"TrendPulse/internal/usecase"
	xhttp "TrendPulse/pkg/http"
	xlogger "TrendPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PipelineRunner is the orchestrator surface the handler needs.
type PipelineRunner interface {
	Run(ctx context.Context) (models.RunResult, error)
	RunStage(ctx context.Context, stage string) (models.RunResult, error)
	Status(ctx context.Context) (models.PipelineStatus, error)
}

// SnapshotLister serves derived snapshot rows.
type SnapshotLister interface {
	List(ctx context.Context, symbol string) ([]models.StrategySnapshot, error)
}

// PipelineHandler exposes the pipeline trigger, targeted stage reruns,
// status, and the derived snapshot over HTTP.
type PipelineHandler struct {
	logger       *xlogger.Logger
	orchestrator PipelineRunner
	snapshots    SnapshotLister
}

func NewPipelineHandler(logger *xlogger.Logger, orchestrator PipelineRunner, snapshots SnapshotLister) *PipelineHandler {
	return &PipelineHandler{logger: logger, orchestrator: orchestrator, snapshots: snapshots}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/pipeline/run", h.Run)
	g.POST("/pipeline/stages/:stage", h.RunStage)
	g.GET("/pipeline/status", h.Status)
	g.GET("/snapshot", h.Snapshot)
}

// Run triggers a full pipeline run. Responds 409 when a run is already
// in flight.
func (h *PipelineHandler) Run(c echo.Context) error {
	result, err := h.orchestrator.Run(c.Request().Context())
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			return xhttp.DataResponse(c, http.StatusConflict, err.Error())
		}
		h.logger.Error("pipeline run error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !result.Success {
		h.logger.Warn("pipeline run finished with failures")
	}
	return xhttp.SuccessResponse(c, result)
}

// RunStage triggers a single named stage, for reruns after a partial
// failure.
func (h *PipelineHandler) RunStage(c echo.Context) error {
	req := &models.StageRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, err := h.orchestrator.RunStage(c.Request().Context(), req.Stage)
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			return xhttp.DataResponse(c, http.StatusConflict, err.Error())
		}
		var ce *models.ConfigError
		if errors.As(err, &ce) {
			return xhttp.BadRequestResponse(c, ce.Error())
		}
		h.logger.Error("stage run error", xlogger.String("stage", req.Stage), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, result)
}

// Status reports the pipeline-level checkpoint.
func (h *PipelineHandler) Status(c echo.Context) error {
	status, err := h.orchestrator.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("pipeline status error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, status)
}

// Snapshot serves the derived latest-state rows, optionally filtered to
// one symbol.
func (h *PipelineHandler) Snapshot(c echo.Context) error {
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.snapshots.List(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("snapshot read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	total := int64(len(rows))
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, rows, total)
}
