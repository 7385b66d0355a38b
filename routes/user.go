package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/cart"
	couponControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/coupon"
	productControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/product"
	userControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/user"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
)

// SetupUserRoutes registers all "/user/*" endpoints plus public browsing.
func SetupUserRoutes(r *gin.Engine, d Deps) {
	db := d.Checkout.DB

	// Public catalog browsing
	r.GET("/products", productControllers.ListProductsHandler(db))
	r.GET("/products/:productID", productControllers.GetProductHandler(db))
	r.GET("/categories", productControllers.ListCategoriesHandler(db))

	// Pre-checkout coupon preview
	r.POST("/coupons/validate", middleware.ValidateToken, couponControllers.ValidateCouponHandler(db))

	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// Profile
		userGroup.GET("/", userControllers.GetUser(db))
		userGroup.PUT("/", userControllers.UpdateUser(db))

		// Shopping cart
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetCartHandler(db))
			cartGroup.POST("/", cartControllers.UpdateCartItemHandler(db))
			cartGroup.DELETE("/:itemID", cartControllers.RemoveCartItemHandler(db))
			cartGroup.DELETE("/", cartControllers.ClearCartHandler(db))
		}
	}
}
