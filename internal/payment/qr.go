package payment

import (
	"context"
	"fmt"
	"time"

	"jewelry-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QRValidity is the hard expiry window for a generated QR. The client
// compares wall clock against the server-issued ExpiresAt; past it the
// reconciliation loop stops without another poll.
const QRValidity = 30 * time.Minute

type QRCode struct {
	ReferenceID string    `json:"reference_id"`
	QRImageURL  string    `json:"qr_image_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type QRGenerator interface {
	Generate(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod) (QRCode, error)
}

// MockGateway fabricates VietQR/MoMo QR codes. No money ever moves; the
// image URLs point at the public QR renderers and the reference is settled
// only through the simulator endpoint.
type MockGateway struct {
	validity time.Duration
	now      func() time.Time
}

func NewMockGateway() *MockGateway {
	return &MockGateway{validity: QRValidity, now: time.Now}
}

func (g *MockGateway) Generate(_ context.Context, orderID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod) (QRCode, error) {
	ref := uuid.NewString()

	var url string
	switch method {
	case models.PaymentMethodVietQR:
		url = fmt.Sprintf("https://img.vietqr.io/image/970436-113366668888-compact2.png?amount=%s&addInfo=%s",
			amount.StringFixed(2), orderID)
	case models.PaymentMethodMoMo:
		url = fmt.Sprintf("https://payment.momo.vn/qr/%s?amount=%s", ref, amount.StringFixed(2))
	default:
		return QRCode{}, fmt.Errorf("method %s does not use QR payment", method)
	}

	return QRCode{
		ReferenceID: ref,
		QRImageURL:  url,
		ExpiresAt:   g.now().Add(g.validity),
	}, nil
}
