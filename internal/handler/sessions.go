package handler

import (
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionsHandler struct{ svc service.SessionService }

func NewSessionsHandler(svc service.SessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// sessionAllowed checks the session's outlet against the token scope.
// Unscoped tokens skip the lookup.
func (h *SessionsHandler) sessionAllowed(c *gin.Context, id uuid.UUID) bool {
	if !scopedToken(c) {
		return true
	}
	s, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return false
	}
	outletID, _ := uuid.Parse(s.OutletID)
	return outletAllowed(c, outletID)
}

// Open godoc
// @Summary      Open a cash drawer session
// @Description  Opens the outlet's session with the counted float. Fails with 409 while another session is OPEN.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.OpenSessionRequest true "Opening float"
// @Success      201  {object} dto.SessionResponse
// @Failure      409  {object} apierror.APIError
// @Failure      412  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/sessions [post]
func (h *SessionsHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if !outletAllowed(c, req.OutletID) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), operator(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary      Close a session without a Z-Report
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "Session ID"
// @Param        body body dto.CloseSessionRequest true "Drawer count"
// @Success      200  {object} dto.SessionResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      412  {object} apierror.APIError
// @Failure      403  {object} apierror.APIError
// @Router       /v1/sessions/{id}/close [post]
func (h *SessionsHandler) Close(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok || !h.sessionAllowed(c, id) {
		return
	}
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), id, operator(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActive godoc
// @Summary      Current OPEN session of an outlet
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        outlet_id path string true "Outlet ID"
// @Success      200  {object} dto.SessionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/outlets/{outlet_id}/session [get]
func (h *SessionsHandler) GetActive(c *gin.Context) {
	outletID, ok := uuidParam(c, "outlet_id")
	if !ok || !outletAllowed(c, outletID) {
		return
	}
	resp, err := h.svc.GetActive(c.Request.Context(), outletID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Session by ID
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200  {object} dto.SessionResponse
// @Failure      403  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id} [get]
func (h *SessionsHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
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
// @Summary      Paginated session history, newest first
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        outlet_id     query string false "Outlet ID"
// @Param        restaurant_id query string false "Restaurant ID"
// @Param        status        query string false "OPEN or CLOSED"
// @Param        page          query int    false "Page"
// @Param        limit         query int    false "Page size"
// @Success      200  {object} dto.SessionListResponse
// @Failure      403  {object} apierror.APIError
// @Router       /v1/sessions [get]
func (h *SessionsHandler) List(c *gin.Context) {
	var filter dto.SessionListFilter
	if !bindQuery(c, &filter) {
		return
	}
	scope, ok := listScope(c, filter.OutletID)
	if !ok {
		return
	}
	filter.OutletIDs = scope
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recalculate godoc
// @Summary      Rebuild running totals from orders and payments
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200  {object} dto.SessionResponse
// @Failure      409  {object} apierror.APIError
// @Failure      403  {object} apierror.APIError
// @Router       /v1/sessions/{id}/recalculate [post]
func (h *SessionsHandler) Recalculate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok || !h.sessionAllowed(c, id) {
		return
	}
	resp, err := h.svc.Recalculate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplySettlement godoc
// @Summary      Push a settlement delta into the live totals
// @Description  Called by the order subsystem. The day-end close recomputes from source records regardless.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "Session ID"
// @Param        body body dto.SettlementRequest true "Settlement delta"
// @Success      200  {object} dto.SessionResponse
// @Failure      409  {object} apierror.APIError
// @Failure      403  {object} apierror.APIError
// @Router       /v1/sessions/{id}/settlements [post]
func (h *SessionsHandler) ApplySettlement(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok || !h.sessionAllowed(c, id) {
		return
	}
	var req dto.SettlementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ApplySettlement(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
