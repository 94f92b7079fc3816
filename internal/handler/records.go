package handler

import (
	"net/http"
	"strconv"

	"prodtrace/internal/apierror"
	"prodtrace/internal/dto"
	"prodtrace/internal/repository"
	"prodtrace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecordsHandler struct{ svc service.RecordService }

func NewRecordsHandler(svc service.RecordService) *RecordsHandler {
	return &RecordsHandler{svc: svc}
}

// Create godoc
// @Summary     Create a production record
// @Tags        records
// @Accept      json
// @Produce     json
// @Param       body body dto.CreateRecordRequest true "record"
// @Success     201 {object} dto.RecordResponse
// @Failure     422 {object} apierror.ValidationError
// @Router      /v1/records [post]
func (h *RecordsHandler) Create(c *gin.Context) {
	var req dto.CreateRecordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecordsHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary     List production records
// @Tags        records
// @Produce     json
// @Param       process_id query string false "filter by process"
// @Param       parent_id query string false "filter by parent record"
// @Param       roots_only query bool false "only root records"
// @Success     200 {object} dto.RecordListResponse
// @Router      /v1/records [get]
func (h *RecordsHandler) List(c *gin.Context) {
	var filter repository.RecordFilter

	if raw := c.Query("process_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid process_id"))
			return
		}
		filter.ProcessID = &id
	}
	if raw := c.Query("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid parent_id"))
			return
		}
		filter.ParentID = &id
	}
	filter.RootsOnly = c.Query("roots_only") == "true"
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateRecordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetParent godoc
// @Summary     Link a record to its parent (null unlinks)
// @Tags        records
// @Accept      json
// @Produce     json
// @Param       id path string true "record id"
// @Param       body body dto.SetParentRequest true "parent"
// @Success     200 {object} dto.RecordResponse
// @Failure     409 {object} apierror.APIError "linking would form a cycle"
// @Router      /v1/records/{id}/parent [put]
func (h *RecordsHandler) SetParent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SetParentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var parentID *uuid.UUID
	if req.ParentRecordID != nil {
		parsed, err := uuid.Parse(*req.ParentRecordID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid parent_record_id"))
			return
		}
		parentID = &parsed
	}
	resp, err := h.svc.SetParent(c.Request.Context(), id, parentID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) Ancestors(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Ancestors(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
