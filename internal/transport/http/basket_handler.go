package http

import (
	"io"
	"net/http"

	"jewelry-backend/internal/basket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const sessionHeader = "X-Session-ID"

type BasketHandler struct {
	basket *basket.Service
	log    *zap.Logger
}

func NewBasketHandler(basketSvc *basket.Service, log *zap.Logger) *BasketHandler {
	return &BasketHandler{basket: basketSvc, log: log}
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.GetHeader(sessionHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, NewValidationError("missing "+sessionHeader+" header", nil))
		return "", false
	}
	return id, true
}

func (h *BasketHandler) Get(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	items, err := h.basket.Items(c.Request.Context(), sid)
	if err != nil {
		h.log.Error("failed to load basket", zap.String("session", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}

	c.JSON(http.StatusOK, basketResponse(items))
}

func (h *BasketHandler) AddItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	var req AddBasketItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid basket item payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, NewValidationError("invalid request body", nil))
		return
	}
	if req.UnitPrice.IsNegative() {
		c.JSON(http.StatusBadRequest, NewValidationError("unit_price must be non-negative", nil))
		return
	}

	err := h.basket.AddItem(c.Request.Context(), sid, basket.Item{
		ProductID: req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		if err == basket.ErrQuantityInvalid {
			c.JSON(http.StatusBadRequest, NewValidationError(err.Error(), nil))
			return
		}
		h.log.Error("failed to add basket item", zap.String("session", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}

	items, err := h.basket.Items(c.Request.Context(), sid)
	if err != nil {
		h.log.Error("failed to reload basket", zap.String("session", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, basketResponse(items))
}

func (h *BasketHandler) RemoveItem(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewValidationError("invalid product id", nil))
		return
	}

	if err := h.basket.RemoveItem(c.Request.Context(), sid, productID); err != nil {
		h.log.Error("failed to remove basket item", zap.String("session", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}

	items, err := h.basket.Items(c.Request.Context(), sid)
	if err != nil {
		h.log.Error("failed to reload basket", zap.String("session", sid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewInternalError())
		return
	}
	c.JSON(http.StatusOK, basketResponse(items))
}

// Events streams a server-sent event each time the session's basket
// changes, so other open tabs can refresh their copy.
func (h *BasketHandler) Events(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	ch, ok := h.basket.Watch(c.Request.Context(), sid)
	if !ok {
		c.JSON(http.StatusNotImplemented, BaseError{Code: "not_supported", Message: "basket store does not support change notifications"})
		return
	}

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(_ io.Writer) bool {
		select {
		case _, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("basket", "changed")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func basketResponse(items []basket.Item) BasketResponse {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if items == nil {
		items = []basket.Item{}
	}
	return BasketResponse{Items: items, Total: total.Round(2)}
}
