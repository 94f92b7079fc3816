package handler

import (
	"net/http"

	"prodtrace/internal/apierror"
	"prodtrace/internal/dto"
	"prodtrace/internal/service"

	"github.com/gin-gonic/gin"
)

type PalletsHandler struct{ svc service.SelectionService }

func NewPalletsHandler(svc service.SelectionService) *PalletsHandler {
	return &PalletsHandler{svc: svc}
}

func (h *PalletsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetPallet(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchByLot godoc
// @Summary     Search pallets by lot code
// @Tags        pallets
// @Produce     json
// @Param       lot query string true "lot code (prefix match)"
// @Success     200 {array} dto.PalletResponse
// @Router      /v1/pallets [get]
func (h *PalletsHandler) SearchByLot(c *gin.Context) {
	lot := c.Query("lot")
	if lot == "" {
		c.JSON(http.StatusBadRequest, apierror.New("Query parameter 'lot' is required"))
		return
	}
	resp, err := h.svc.SearchPalletsByLot(c.Request.Context(), lot)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ScanBox godoc
// @Summary     Resolve a scanned GS1-128 barcode to a stock box
// @Tags        pallets
// @Accept      json
// @Produce     json
// @Param       body body dto.ScanRequest true "scan"
// @Success     200 {object} dto.BoxResponse
// @Failure     404 {object} apierror.APIError "no available box matches"
// @Failure     422 {object} apierror.APIError "malformed code or ambiguous match"
// @Router      /v1/pallets/scan [post]
func (h *PalletsHandler) ScanBox(c *gin.Context) {
	var req dto.ScanRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ScanBox(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PalletsHandler) SearchByWeight(c *gin.Context) {
	var req dto.WeightSearchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SearchByWeight(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SelectByTargetWeight godoc
// @Summary     Pick boxes whose combined weight covers a target
// @Tags        pallets
// @Accept      json
// @Produce     json
// @Param       body body dto.TargetWeightRequest true "target"
// @Success     200 {object} dto.SelectionResponse
// @Failure     422 {object} apierror.APIError "no feasible selection"
// @Router      /v1/pallets/select [post]
func (h *PalletsHandler) SelectByTargetWeight(c *gin.Context) {
	var req dto.TargetWeightRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SelectByTargetWeight(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
