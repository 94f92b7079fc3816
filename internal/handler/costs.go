package handler

import (
	"net/http"

	"prodtrace/internal/service"

	"github.com/gin-gonic/gin"
)

type CostsHandler struct{ svc service.CostService }

func NewCostsHandler(svc service.CostService) *CostsHandler {
	return &CostsHandler{svc: svc}
}

// OutputCost godoc
// @Summary     Cost breakdown of a production output
// @Description Total cost, cost per kg and categorized split derived from the output's sources. Read-only; figures are cached and refreshed asynchronously when allocations change.
// @Tags        costs
// @Produce     json
// @Param       id path string true "output id"
// @Success     200 {object} dto.CostBreakdownResponse
// @Router      /v1/outputs/{id}/cost [get]
func (h *CostsHandler) OutputCost(c *gin.Context) {
	outputID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.OutputCost(c.Request.Context(), outputID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
