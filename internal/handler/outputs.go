package handler

import (
	"net/http"

	"prodtrace/internal/dto"
	"prodtrace/internal/service"

	"github.com/gin-gonic/gin"
)

type OutputsHandler struct{ svc service.AllocationService }

func NewOutputsHandler(svc service.AllocationService) *OutputsHandler {
	return &OutputsHandler{svc: svc}
}

func (h *OutputsHandler) List(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListOutputs(c.Request.Context(), recordID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Sync godoc
// @Summary     Replace a record's outputs and their source allocations
// @Description Full-state sync. Sources may declare weight or percentage; unconfigured origins are spread proportionally. Rejects sets that overdraw an origin.
// @Tags        outputs
// @Accept      json
// @Produce     json
// @Param       id   path string                true "record id"
// @Param       body body dto.SyncOutputsRequest true "desired output set"
// @Success     200  {object} dto.SyncResponse
// @Failure     409  {object} apierror.APIError "allocation exceeds origin availability"
// @Router      /v1/records/{id}/outputs/sync [post]
func (h *OutputsHandler) Sync(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SyncOutputsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SyncOutputs(c.Request.Context(), recordID, req)
	if err != nil {
		if resp != nil {
			c.JSON(http.StatusMultiStatus, resp)
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NormalizeSource godoc
// @Summary     Clamp an in-flight source edit against origin availability
// @Description Pure computation, persists nothing. Returns the weight clamped to the origin's remaining availability and the percentage recomputed from it.
// @Tags        outputs
// @Accept      json
// @Produce     json
// @Param       body body dto.NormalizeSourceRequest true "edit in progress"
// @Success     200  {object} dto.SourceResponse
// @Router      /v1/sources/normalize [post]
func (h *OutputsHandler) NormalizeSource(c *gin.Context) {
	var req dto.NormalizeSourceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.NormalizeSource(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
