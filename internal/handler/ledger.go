package handler

import (
	"net/http"

	"prodtrace/internal/apierror"
	"prodtrace/internal/dto"
	"prodtrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LedgerHandler struct{ svc service.LedgerService }

func NewLedgerHandler(svc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

func (h *LedgerHandler) ListInputs(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListInputs(c.Request.Context(), recordID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SyncInputs godoc
// @Summary     Replace a record's box inputs with the submitted set
// @Description Full-state sync: boxes present in the request are created or updated, boxes absent are released. Each item is reported individually.
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Param       id   path string               true "record id"
// @Param       body body dto.SyncInputsRequest true "desired input set"
// @Success     200  {object} dto.SyncResponse
// @Failure     409  {object} apierror.APIError "box already consumed elsewhere"
// @Router      /v1/records/{id}/inputs/sync [post]
func (h *LedgerHandler) SyncInputs(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SyncInputsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SyncInputs(c.Request.Context(), recordID, req)
	if err != nil {
		if resp != nil {
			// Partial failure still reports per-item results.
			c.JSON(http.StatusMultiStatus, resp)
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LedgerHandler) ListConsumptions(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListConsumptions(c.Request.Context(), recordID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SyncConsumptions godoc
// @Summary     Replace a record's parent-output consumptions with the submitted set
// @Tags        ledger
// @Accept      json
// @Produce     json
// @Param       id   path string                     true "record id"
// @Param       body body dto.SyncConsumptionsRequest true "desired consumption set"
// @Success     200  {object} dto.SyncResponse
// @Router      /v1/records/{id}/consumptions/sync [post]
func (h *LedgerHandler) SyncConsumptions(c *gin.Context) {
	recordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SyncConsumptionsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SyncConsumptions(c.Request.Context(), recordID, req)
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

// OutputAvailability godoc
// @Summary     Remaining consumable weight of a parent output
// @Description Declared weight minus all consumptions. Pass exclude_consumption_id to see headroom while editing an existing consumption.
// @Tags        ledger
// @Produce     json
// @Param       id                     path  string true  "output id"
// @Param       exclude_consumption_id query string false "consumption being edited"
// @Success     200 {object} map[string]interface{}
// @Router      /v1/outputs/{id}/availability [get]
func (h *LedgerHandler) OutputAvailability(c *gin.Context) {
	outputID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var exclude *uuid.UUID
	if raw := c.Query("exclude_consumption_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid exclude_consumption_id"))
			return
		}
		exclude = &id
	}
	available, err := h.svc.OutputAvailableWeight(c.Request.Context(), outputID, exclude)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"output_id":           outputID.String(),
		"available_weight_kg": available,
	})
}
