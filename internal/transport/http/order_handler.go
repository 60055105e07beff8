package http

import (
	"errors"
	"net/http"
	"strconv"

	"jewelry-backend/internal/checkout"
	"jewelry-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   service.OrderService
	checkout *checkout.Service
	log      *zap.Logger
}

func NewOrderHandler(orders service.OrderService, checkoutSvc *checkout.Service, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, checkout: checkoutSvc, log: log}
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid checkout payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}

	method, ok := parseMethod(req.PaymentMethod)
	if !ok {
		c.JSON(http.StatusBadRequest, NewValidationError("payment_method must be one of VIETQR, MOMO, COD", nil))
		return
	}

	res, err := h.checkout.Submit(c.Request.Context(), checkout.SubmitInput{
		SessionID: sid,
		Details: service.ShippingDetails{
			Name:       req.Details.Name,
			Email:      req.Details.Email,
			Phone:      req.Details.Phone,
			Address:    req.Details.Address,
			City:       req.Details.City,
			PostalCode: req.Details.PostalCode,
		},
		PaymentMethod:  method,
		CustomerID:     req.CustomerID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	resp := CheckoutResponse{Order: toOrderResponse(res.Order)}
	if res.QR != nil {
		resp.QR = &QRResponse{
			ReferenceID: res.QR.ReferenceID,
			QRImageURL:  res.QR.QRImageURL,
			ExpiresAt:   res.QR.ExpiresAt,
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	ord, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(ord))
}

func (h *OrderHandler) List(c *gin.Context) {
	var f service.ListFilter

	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewValidationError("invalid customer_id", nil))
			return
		}
		f.CustomerID = &id
	}
	if raw := c.Query("status"); raw != "" {
		st, ok := parseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, NewValidationError("unknown status", nil))
			return
		}
		f.Status = &st
	}
	if raw := c.Query("payment_status"); raw != "" {
		ps, ok := parsePaymentStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, NewValidationError("unknown payment_status", nil))
			return
		}
		f.PaymentStatus = &ps
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	resp := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders)), Total: total}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus is the admin fulfilment transition endpoint.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}
	st, ok := parseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, NewValidationError("unknown status", nil))
		return
	}

	ord, err := h.orders.Transition(c.Request.Context(), id, st)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(ord))
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	var req CancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	ord, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	// cancelling also abandons any active payment wait
	h.checkout.CancelPaymentWait(id)

	c.JSON(http.StatusOK, toOrderResponse(ord))
}

func (h *OrderHandler) respondServiceError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var perr *service.PersistenceError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, NewValidationError("validation failed", verr.Fields))
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrQuantityInvalid),
		errors.Is(err, service.ErrPriceInvalid),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		c.JSON(http.StatusBadRequest, NewValidationError(err.Error(), nil))
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, NewConflictError(err.Error()))
	case errors.As(err, &perr):
		h.log.Error("persistence failure", zap.String("op", perr.Op), zap.Error(perr.Err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
	default:
		h.log.Error("unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
	}
}
