package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edulink/tutor-market-api/internal/models"
	"github.com/edulink/tutor-market-api/internal/service"
	appErrors "github.com/edulink/tutor-market-api/pkg/errors"
	"github.com/edulink/tutor-market-api/pkg/response"
)

// OrderHandler exposes order lifecycle endpoints.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler constructs handler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create godoc
// @Summary Book a course
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateOrderRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.orders.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, order)
}

// Get godoc
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order id"))
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Pay godoc
// @Summary Pay a pending order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /orders/{id}/pay [post]
func (h *OrderHandler) Pay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order id"))
		return
	}
	order, err := h.orders.Pay(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Cancel godoc
// @Summary Cancel an order
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param payload body service.CancelOrderRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order id"))
		return
	}
	var req service.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Complete godoc
// @Summary Complete a paid order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} response.Envelope
// @Router /orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order id"))
		return
	}
	order, err := h.orders.Complete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// List godoc
// @Summary List the caller's orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param keyword query string false "Search in course title"
// @Success 200 {object} response.Envelope
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, pageSize := parsePagination(c)
	filter := models.OrderFilter{
		Status:   models.OrderStatus(c.Query("status")),
		Keyword:  c.Query("keyword"),
		Page:     page,
		PageSize: pageSize,
	}

	var (
		orders     []models.OrderDetail
		pagination *models.Pagination
		err        error
	)
	if claims.Role == models.RoleTeacher {
		orders, pagination, err = h.orders.ListTeacherOrders(c.Request.Context(), claims.UserID, filter)
	} else {
		orders, pagination, err = h.orders.ListStudentOrders(c.Request.Context(), claims.UserID, filter)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orders, pagination)
}
