package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"restopos/internal/apierror"
	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportsHandler struct {
	xreport service.XReportService
	dayEnd  service.DayEndService
}

func NewReportsHandler(xreport service.XReportService, dayEnd service.DayEndService) *ReportsHandler {
	return &ReportsHandler{xreport: xreport, dayEnd: dayEnd}
}

// XReport godoc
// @Summary      Interim (X) report of the OPEN session
// @Description  Live figures computed on request. Nothing is persisted.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        outlet_id path string true "Outlet ID"
// @Success      200  {object} dto.XReportResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/outlets/{outlet_id}/x-report [get]
func (h *ReportsHandler) XReport(c *gin.Context) {
	outletID, ok := uuidParam(c, "outlet_id")
	if !ok || !outletAllowed(c, outletID) {
		return
	}
	resp, err := h.xreport.Interim(c.Request.Context(), outletID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateZReport godoc
// @Summary      Close the day and generate the Z-Report
// @Description  Closes the outlet's session, force-closes active shifts and persists the report in one transaction.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        outlet_id path string                     true  "Outlet ID"
// @Param        body      body dto.GenerateZReportRequest false "Drawer count and notes"
// @Success      201  {object} dto.DayEndReportResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      412  {object} apierror.APIError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/outlets/{outlet_id}/z-report [post]
func (h *ReportsHandler) GenerateZReport(c *gin.Context) {
	outletID, ok := uuidParam(c, "outlet_id")
	if !ok || !outletAllowed(c, outletID) {
		return
	}
	var req dto.GenerateZReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return
	}
	if err := validate.Struct(&req); err != nil {
		validationFailed(c, err)
		return
	}
	resp, err := h.dayEnd.Generate(c.Request.Context(), outletID, operator(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary      Day-end report by ID
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Report ID"
// @Success      200  {object} dto.DayEndReportResponse
// @Failure      403  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/day-end-reports/{id} [get]
func (h *ReportsHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.dayEnd.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	outletID, _ := uuid.Parse(resp.OutletID)
	if !outletAllowed(c, outletID) {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      Day-end reports
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        outlet_id     query string false "Outlet ID"
// @Param        restaurant_id query string false "Restaurant ID"
// @Param        date          query string false "Business date (YYYY-MM-DD)"
// @Success      200  {array} dto.DayEndReportResponse
// @Router       /v1/day-end-reports [get]
func (h *ReportsHandler) List(c *gin.Context) {
	var filter dto.ReportListFilter
	if !bindQuery(c, &filter) {
		return
	}
	scope, ok := listScope(c, filter.OutletID)
	if !ok {
		return
	}
	filter.OutletIDs = scope
	resp, err := h.dayEnd.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Export godoc
// @Summary      Day-end reports as an Excel workbook
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        outlet_id     query string false "Outlet ID"
// @Param        restaurant_id query string false "Restaurant ID"
// @Param        date          query string false "Business date (YYYY-MM-DD)"
// @Success      200  {file}  file
// @Failure      403  {object} apierror.APIError
// @Router       /v1/day-end-reports/export [get]
func (h *ReportsHandler) Export(c *gin.Context) {
	var filter dto.ReportListFilter
	if !bindQuery(c, &filter) {
		return
	}
	scope, ok := listScope(c, filter.OutletID)
	if !ok {
		return
	}
	filter.OutletIDs = scope
	var buf bytes.Buffer
	if err := h.dayEnd.Export(c.Request.Context(), filter, &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("day-end-reports-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
