package middleware

import (
	"bytes"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mayurimulay789/e-commerce21-sub001/payments"
)

// ContextRawBody carries the raw webhook body from the signature middleware
// to the handler so both hash and parse the same bytes.
const ContextRawBody = "raw_body"

var webhookLogger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "webhook").Logger()

// PaymentWebhookAuth verifies the gateway's HMAC-SHA256 signature over the
// raw request body before any handler runs.
func PaymentWebhookAuth() gin.HandlerFunc {
	secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if secret == "" {
		panic("RAZORPAY_WEBHOOK_SECRET is not set")
	}

	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		signature := c.GetHeader("X-Razorpay-Signature")
		if signature == "" || !payments.VerifyWebhookSignature(body, signature, secret) {
			// Logged with payload context for fraud review.
			webhookLogger.Warn().
				Str("remote", c.ClientIP()).
				Int("body_bytes", len(body)).
				Msg("payment webhook signature mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}

		c.Set(ContextRawBody, body)
		c.Next()
	}
}

// CarrierWebhookAuth verifies the carrier webhook signature when a shared
// secret is configured; the carrier feed is otherwise accepted as-is.
func CarrierWebhookAuth() gin.HandlerFunc {
	secret := os.Getenv("SHIPPING_WEBHOOK_SECRET")

	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		c.Set(ContextRawBody, body)

		if secret == "" {
			c.Next()
			return
		}

		signature := c.GetHeader("X-Carrier-Signature")
		if signature == "" || !payments.VerifyWebhookSignature(body, signature, secret) {
			webhookLogger.Warn().Str("remote", c.ClientIP()).Msg("carrier webhook signature mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			c.Abort()
			return
		}
		c.Next()
	}
}
