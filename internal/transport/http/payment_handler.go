package http

import (
	"errors"
	"net/http"

	"jewelry-backend/internal/checkout"
	"jewelry-backend/internal/payment"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	orders    service.OrderService
	payments  repository.PaymentRepo
	checkout  *checkout.Service
	simulator *payment.Simulator
	log       *zap.Logger
}

func NewPaymentHandler(
	orders service.OrderService,
	payments repository.PaymentRepo,
	checkoutSvc *checkout.Service,
	simulator *payment.Simulator,
	log *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		orders:    orders,
		payments:  payments,
		checkout:  checkoutSvc,
		simulator: simulator,
		log:       log,
	}
}

// Status is the polling endpoint: the client asks "is this order paid
// yet?". Reading has no side effects, safe to call repeatedly.
func (h *PaymentHandler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	ord, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, NewNotFoundError(err.Error()))
			return
		}
		h.log.Error("failed to load order for payment status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}

	resp := PaymentStatusResponse{
		OrderID:       ord.ID,
		PaymentStatus: shortPaymentStatus(ord.PaymentStatus),
	}
	if state, ok := h.checkout.PaymentWaitState(id); ok {
		resp.WaitState = string(state)
	}
	if pay, err := h.payments.GetByOrderID(c.Request.Context(), id); err == nil && pay != nil {
		resp.QR = &QRResponse{
			ReferenceID: pay.ReferenceID,
			QRImageURL:  pay.QRImageURL,
			ExpiresAt:   pay.ExpiresAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// CheckNow triggers one immediate poll (the "check now" button). Skipped
// if a scheduled poll is already in flight.
func (h *PaymentHandler) CheckNow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	state, err := h.checkout.CheckPaymentNow(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, NewNotFoundError("no active payment wait for this order"))
			return
		}
		h.log.Error("manual payment check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"wait_state": string(state)})
}

// CancelWait stops polling for the order. The order itself stays in
// whatever state the server recorded.
func (h *PaymentHandler) CancelWait(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid order id", nil))
		return
	}

	if !h.checkout.CancelPaymentWait(id) {
		c.JSON(http.StatusNotFound, NewNotFoundError("no active payment wait for this order"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"wait_state": string(payment.StateCancelled)})
}

// SimulateConfirm settles a payment reference at the mock gateway, the
// stand-in for a real QR scan. Polling observes the flip on its next tick.
func (h *PaymentHandler) SimulateConfirm(c *gin.Context) {
	h.simulate(c, true)
}

func (h *PaymentHandler) SimulateFail(c *gin.Context) {
	h.simulate(c, false)
}

func (h *PaymentHandler) simulate(c *gin.Context, confirm bool) {
	ref := c.Param("reference")
	if ref == "" {
		c.JSON(http.StatusBadRequest, NewValidationError("missing payment reference", nil))
		return
	}

	var err error
	if confirm {
		_, err = h.simulator.Confirm(c.Request.Context(), ref)
	} else {
		_, err = h.simulator.Fail(c.Request.Context(), ref)
	}
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, NewNotFoundError("unknown payment reference"))
			return
		}
		h.log.Error("payment simulation failed", zap.String("reference", ref), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference_id": ref, "settled": true})
}
