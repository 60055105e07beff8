package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "ORDER_STATUS_PENDING"
	OrderStatusProcessing OrderStatus = "ORDER_STATUS_PROCESSING"
	OrderStatusShipped    OrderStatus = "ORDER_STATUS_SHIPPED"
	OrderStatusDelivered  OrderStatus = "ORDER_STATUS_DELIVERED"
	OrderStatusCancelled  OrderStatus = "ORDER_STATUS_CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodVietQR PaymentMethod = "PAYMENT_METHOD_VIETQR"
	PaymentMethodMoMo   PaymentMethod = "PAYMENT_METHOD_MOMO"
	PaymentMethodCOD    PaymentMethod = "PAYMENT_METHOD_COD"
)

// AsyncConfirmation reports whether the method settles through an external
// QR confirmation rather than on delivery.
func (m PaymentMethod) AsyncConfirmation() bool {
	return m == PaymentMethodVietQR || m == PaymentMethodMoMo
}

// PaymentStatus is orthogonal to OrderStatus: it tracks money, not
// fulfilment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PAYMENT_STATUS_PENDING"
	PaymentStatusPaid    PaymentStatus = "PAYMENT_STATUS_PAID"
	PaymentStatusFailed  PaymentStatus = "PAYMENT_STATUS_FAILED"
	// PaymentStatusOnDelivery marks COD orders: money is collected at the
	// door, so fulfilment never waits on it.
	PaymentStatusOnDelivery PaymentStatus = "PAYMENT_STATUS_ON_DELIVERY"
)

type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    string          `gorm:"type:text;not null;uniqueIndex"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index"` // nil for guest checkout
	Status         OrderStatus     `gorm:"type:text;not null;default:'ORDER_STATUS_PENDING';index"`
	PaymentMethod  PaymentMethod   `gorm:"type:text;not null"`
	PaymentStatus  PaymentStatus   `gorm:"type:text;not null;index"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IdempotencyKey uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CancelReason   *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Details OrderDetails `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items   []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderDetails holds the shipping/billing record captured at checkout.
type OrderDetails struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Name       string    `gorm:"type:text;not null"`
	Email      string    `gorm:"type:text;not null"`
	Phone      string    `gorm:"type:text;not null"`
	Address    string    `gorm:"type:text;not null"`
	City       string    `gorm:"type:text;not null"`
	PostalCode string    `gorm:"type:text;not null"`
}

func (OrderDetails) TableName() string { return "order_details" }

// OrderItem is a price-at-purchase snapshot line: name and unit price are
// denormalized at creation and never re-read from the live product.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	Name      string          `gorm:"type:text;not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity  uint32          `gorm:"type:int;not null"` // CHECK added in migration
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// Payment keeps the QR handed to the client for async methods. The
// authoritative paid/failed flag lives on the order; this row carries the
// gateway reference and the expiry window.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method      PaymentMethod   `gorm:"type:text;not null"`
	Status      PaymentStatus   `gorm:"type:text;not null;default:'PAYMENT_STATUS_PENDING';index"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ReferenceID string          `gorm:"type:text;not null;uniqueIndex"`
	QRImageURL  string          `gorm:"type:text;not null"`
	ExpiresAt   time.Time       `gorm:"not null"`
	PaidAt      *time.Time

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Payment) TableName() string { return "payments" }
