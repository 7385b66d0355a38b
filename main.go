package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	checkoutControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/checkout"
	orderControllers "github.com/mayurimulay789/e-commerce21-sub001/controllers/order"
	"github.com/mayurimulay789/e-commerce21-sub001/events"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/notifications"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
	"github.com/mayurimulay789/e-commerce21-sub001/routes"
	"github.com/mayurimulay789/e-commerce21-sub001/shipping"
	"github.com/mayurimulay789/e-commerce21-sub001/staging"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Str("component", "main").Logger()

func main() {
	_ = godotenv.Load()

	db := initDatabase()

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.SizeStock{},
		&models.Category{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Coupon{},
		&models.CouponRedemption{},
		&models.Return{},
		&models.ReturnItem{},
		&models.ReturnImage{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate failed")
	}

	gateway, err := payments.NewRazorpayClient()
	if err != nil {
		log.Fatal().Err(err).Msg("payment gateway init failed")
	}

	var carrier shipping.Carrier
	if sr, err := shipping.NewShiprocketClient(); err != nil {
		log.Warn().Err(err).Msg("shipping carrier not configured, shipments will not be created")
	} else {
		carrier = sr
	}

	rdb := initRedis()

	var stage staging.Store
	var guard staging.ReplayGuard
	if rdb != nil {
		stage = staging.NewRedisStore(rdb)
		guard = staging.NewRedisReplayGuard(rdb)
	} else {
		log.Warn().Msg("redis unavailable, using in-process staging; pending orders will not survive a restart")
		stage = staging.NewMemoryStore()
		guard = staging.NewMemoryReplayGuard()
	}

	deps := routes.Deps{
		Checkout: checkoutControllers.Deps{
			DB:        db,
			Stage:     stage,
			Guard:     guard,
			Gateway:   gateway,
			Carrier:   carrier,
			Events:    events.NewPublisher(),
			Notifier:  notifications.NewLogNotifier(),
			Broadcast: orderControllers.Broadcast,
		},
		Redis: rdb,
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, deps)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("server starting")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal().Err(err).Msg("db connection failed")
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("db connection failed")
	}
	return db
}

// initRedis connects to redis when REDIS_ADDR is set. Returns nil when the
// address is unset or the server is unreachable; callers degrade accordingly.
func initRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis ping failed")
		return nil
	}
	return rdb
}
