package routes

import (
	"github.com/gin-gonic/gin"

	couponControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/coupon"
	orderControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/order"
	productControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/product"
	returnControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/returns"
	userControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/user"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

// SetupAdminRoutes registers the "/admin/*" surface. Everything here requires
// a valid token plus the admin role; coupon management also admits marketers.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	db := d.Checkout.DB

	admin := r.Group("/admin")
	admin.Use(middleware.ValidateToken, middleware.RequireRole(models.RoleAdmin))
	{
		// Orders
		admin.GET("/orders", orderControllers.GetAllOrdersHandler(db))
		admin.PUT("/orders/:orderID/status", orderControllers.UpdateOrderStatusHandler(db, d.Checkout.Events))

		// Returns
		admin.PUT("/returns/:returnID/status", returnControllers.UpdateReturnStatusHandler(db, d.Checkout.Gateway, d.Checkout.Events))

		// Catalog
		admin.POST("/products", productControllers.CreateProductHandler(db))
		admin.PUT("/products/:productID", productControllers.UpdateProductHandler(db))
		admin.DELETE("/products/:productID", productControllers.DeleteProductHandler(db))
		admin.POST("/categories", productControllers.CreateCategoryHandler(db))
		admin.DELETE("/categories/:categoryID", productControllers.DeleteCategoryHandler(db))

		// Users
		admin.GET("/users", userControllers.GetAllUsers(db))
		admin.PUT("/users/:userID/role", userControllers.UpdateUserRole(db))
	}

	// Coupon management is shared with the marketing team.
	coupons := r.Group("/admin/coupons")
	coupons.Use(middleware.ValidateToken, middleware.RequireRole(models.RoleAdmin, models.RoleMarketer))
	{
		coupons.GET("/", couponControllers.ListCouponsHandler(db))
		coupons.POST("/", couponControllers.CreateCouponHandler(db))
		coupons.PUT("/:couponID", couponControllers.UpdateCouponHandler(db))
		coupons.DELETE("/:couponID", couponControllers.DeactivateCouponHandler(db))
	}
}
