package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/order"
	returnControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/returns"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

func SetupOrderRoutes(r *gin.Engine, d Deps) {
	db := d.Checkout.DB

	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Order history for the acting user
		orders.GET("/", orderControllers.GetUserOrdersHandler(db))

		// Live order feed for the admin dashboard
		orders.GET("/ws", middleware.RequireRole(models.RoleAdmin), orderControllers.OrderFeedHandler)

		// Single order by numeric id or order number
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))

		// Tracking, with a live carrier lookup when an AWB exists
		orders.GET("/:orderID/track", orderControllers.TrackOrderHandler(db, d.Checkout.Carrier))

		// Cancel while still cancellable; restores stock exactly once
		orders.PUT("/:orderID/cancel", orderControllers.CancelOrderHandler(db, d.Checkout.Carrier, d.Checkout.Events))
	}

	returns := r.Group("/returns")
	returns.Use(middleware.ValidateToken)
	{
		returns.POST("/", returnControllers.CreateReturnHandler(db))
		returns.GET("/", returnControllers.GetUserReturnsHandler(db))
	}
}
