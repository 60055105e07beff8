package http

import (
	"jewelry-backend/internal/basket"
	"jewelry-backend/internal/checkout"
	"jewelry-backend/internal/payment"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Router(
	orders service.OrderService,
	basketSvc *basket.Service,
	checkoutSvc *checkout.Service,
	payments repository.PaymentRepo,
	simulator *payment.Simulator,
	log *zap.Logger,
) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", sessionHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	basketHandler := NewBasketHandler(basketSvc, log)
	orderHandler := NewOrderHandler(orders, checkoutSvc, log)
	paymentHandler := NewPaymentHandler(orders, payments, checkoutSvc, simulator, log)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/basket", basketHandler.Get)
		v1.POST("/basket/items", basketHandler.AddItem)
		v1.DELETE("/basket/items/:productID", basketHandler.RemoveItem)
		v1.GET("/basket/events", basketHandler.Events)

		v1.POST("/checkout", orderHandler.Checkout)

		v1.GET("/orders", orderHandler.List)
		v1.GET("/orders/:id", orderHandler.Get)
		v1.POST("/orders/:id/status", orderHandler.UpdateStatus)
		v1.POST("/orders/:id/cancel", orderHandler.Cancel)

		v1.GET("/orders/:id/payment", paymentHandler.Status)
		v1.POST("/orders/:id/payment/check", paymentHandler.CheckNow)
		v1.POST("/orders/:id/payment/cancel", paymentHandler.CancelWait)

		// mock gateway settlement, stands in for a real QR scan
		v1.POST("/payments/:reference/confirm", paymentHandler.SimulateConfirm)
		v1.POST("/payments/:reference/fail", paymentHandler.SimulateFail)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}
