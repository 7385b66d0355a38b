package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	checkoutControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/checkout"
	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Checkout checkoutControllers.Deps
	Redis    *redis.Client
}

// SetupRoutes is the single entry-point that wires up every route group.
func SetupRoutes(r *gin.Engine, d Deps) {
	// Checkout + payment/shipping webhooks
	SetupCheckoutRoutes(r, d)

	// User-facing routes (JWT-protected): profile, cart, catalog, orders, returns
	SetupUserRoutes(r, d)

	// Order routes shared between surfaces
	SetupOrderRoutes(r, d)

	// Admin routes (JWT + role-protected)
	SetupAdminRoutes(r, d)
}

// checkoutRateLimit caps checkout initiations per user. Webhooks are never
// rate limited: the gateway retries on non-2xx and a dropped retry loses money.
func checkoutRateLimit(d Deps) gin.HandlerFunc {
	return middleware.RateLimit(d.Redis, "checkout", 20, time.Minute)
}
