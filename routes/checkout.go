package routes

import (
	"github.com/gin-gonic/gin"

	checkoutControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/checkout"
	orderControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/order"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
)

func SetupCheckoutRoutes(r *gin.Engine, d Deps) {
	checkout := r.Group("/orders")
	checkout.Use(middleware.ValidateToken, checkoutRateLimit(d))
	{
		// Price the cart, create the gateway order, stage the pending order
		checkout.POST("/create-gateway-order", checkoutControllers.CreateGatewayOrderHandler(
			d.Checkout.DB, d.Checkout.Stage, d.Checkout.Gateway))

		// Client-side callback: verify signature, finalize the order
		checkout.POST("/verify-payment", checkoutControllers.VerifyPaymentHandler(d.Checkout))
	}

	// Gateway webhook: signature verified over the raw body
	r.POST("/payments/webhook",
		middleware.PaymentWebhookAuth(),
		checkoutControllers.PaymentWebhookHandler(d.Checkout),
	)

	// Carrier status pushes
	r.POST("/shipping/webhook",
		middleware.CarrierWebhookAuth(),
		orderControllers.CarrierWebhookHandler(d.Checkout.DB, d.Checkout.Events),
	)
}
