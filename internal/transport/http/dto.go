package http

import (
	"time"

	"jewelry-backend/internal/basket"
	"jewelry-backend/internal/models"
	"jewelry-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BaseError is the common error envelope.
// Code is machine oriented (snake_case), Message is short human-readable
// text, Fields carries per-field validation problems.
type BaseError struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Fields  []service.FieldError `json:"fields,omitempty"`
}

func NewValidationError(msg string, fields []service.FieldError) BaseError {
	return BaseError{Code: "validation_error", Message: msg, Fields: fields}
}
func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}
func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}
func NewInternalError() BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error"}
}

type AddBasketItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  uint32          `json:"quantity" binding:"required"`
}

type BasketResponse struct {
	Items []basket.Item   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type ShippingDetailsRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type CheckoutRequest struct {
	Details ShippingDetailsRequest `json:"details"`
	// VIETQR | MOMO | COD
	PaymentMethod string `json:"payment_method" binding:"required"`
	// client-generated UUID per checkout attempt; resubmitting with the
	// same key never creates a second order
	IdempotencyKey uuid.UUID  `json:"idempotency_key" binding:"required"`
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
}

type OrderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  uint32          `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderDetailsResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type OrderResponse struct {
	ID            uuid.UUID            `json:"id"`
	OrderNumber   string               `json:"order_number"`
	CustomerID    *uuid.UUID           `json:"customer_id,omitempty"`
	Status        string               `json:"status"`
	PaymentMethod string               `json:"payment_method"`
	PaymentStatus string               `json:"payment_status"`
	Total         decimal.Decimal      `json:"total"`
	Details       OrderDetailsResponse `json:"details"`
	Items         []OrderItemResponse  `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type QRResponse struct {
	ReferenceID string    `json:"reference_id"`
	QRImageURL  string    `json:"qr_image_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type CheckoutResponse struct {
	Order OrderResponse `json:"order"`
	QR    *QRResponse   `json:"qr,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
}

type UpdateStatusRequest struct {
	// pending | processing | shipped | delivered | cancelled
	Status string `json:"status" binding:"required"`
}

type CancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type PaymentStatusResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	PaymentStatus string    `json:"payment_status"`
	// reconciler wait state, present while the order is being watched
	WaitState string      `json:"wait_state,omitempty"`
	QR        *QRResponse `json:"qr,omitempty"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		Status:        shortStatus(o.Status),
		PaymentMethod: shortMethod(o.PaymentMethod),
		PaymentStatus: shortPaymentStatus(o.PaymentStatus),
		Total:         o.Total,
		Details: OrderDetailsResponse{
			Name:       o.Details.Name,
			Email:      o.Details.Email,
			Phone:      o.Details.Phone,
			Address:    o.Details.Address,
			City:       o.Details.City,
			PostalCode: o.Details.PostalCode,
		},
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// wire values are the short client-facing tokens; the storage enums stay
// internal

func shortStatus(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusPending:
		return "pending"
	case models.OrderStatusProcessing:
		return "processing"
	case models.OrderStatusShipped:
		return "shipped"
	case models.OrderStatusDelivered:
		return "delivered"
	case models.OrderStatusCancelled:
		return "cancelled"
	}
	return string(s)
}

func parseStatus(s string) (models.OrderStatus, bool) {
	switch s {
	case "pending":
		return models.OrderStatusPending, true
	case "processing":
		return models.OrderStatusProcessing, true
	case "shipped":
		return models.OrderStatusShipped, true
	case "delivered":
		return models.OrderStatusDelivered, true
	case "cancelled":
		return models.OrderStatusCancelled, true
	}
	return "", false
}

func shortMethod(m models.PaymentMethod) string {
	switch m {
	case models.PaymentMethodVietQR:
		return "VIETQR"
	case models.PaymentMethodMoMo:
		return "MOMO"
	case models.PaymentMethodCOD:
		return "COD"
	}
	return string(m)
}

func parseMethod(s string) (models.PaymentMethod, bool) {
	switch s {
	case "VIETQR":
		return models.PaymentMethodVietQR, true
	case "MOMO":
		return models.PaymentMethodMoMo, true
	case "COD":
		return models.PaymentMethodCOD, true
	}
	return "", false
}

func shortPaymentStatus(s models.PaymentStatus) string {
	switch s {
	case models.PaymentStatusPending:
		return "pending"
	case models.PaymentStatusPaid:
		return "paid"
	case models.PaymentStatusFailed:
		return "failed"
	case models.PaymentStatusOnDelivery:
		return "on_delivery"
	}
	return string(s)
}

func parsePaymentStatus(s string) (models.PaymentStatus, bool) {
	switch s {
	case "pending":
		return models.PaymentStatusPending, true
	case "paid":
		return models.PaymentStatusPaid, true
	case "failed":
		return models.PaymentStatusFailed, true
	case "on_delivery":
		return models.PaymentStatusOnDelivery, true
	}
	return "", false
}
