package checkoutControllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mayurimulay789/e-commerce21-sub001/middleware"
	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
)

func seedOrder(t *testing.T, db *gorm.DB, order models.Order) *models.Order {
	t.Helper()
	if order.OrderNumber == "" {
		order.OrderNumber = "ORD-20250101120000-" + order.GatewayOrderID
	}
	if order.UserID == "" {
		order.UserID = "user-1"
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func capturedEvent(paymentID, gatewayOrderID string) payments.WebhookEvent {
	var ev payments.WebhookEvent
	ev.Event = payments.EventPaymentCaptured
	ev.Payload.Payment.Entity = payments.PaymentEntity{ID: paymentID, OrderID: gatewayOrderID, Status: "captured"}
	return ev
}

func failedEvent(paymentID, gatewayOrderID, reason string) payments.WebhookEvent {
	var ev payments.WebhookEvent
	ev.Event = payments.EventPaymentFailed
	ev.Payload.Payment.Entity = payments.PaymentEntity{ID: paymentID, OrderID: gatewayOrderID, Status: "failed", ErrorDescription: reason}
	return ev
}

func refundEvent(refundID, paymentID string, amount int64) payments.WebhookEvent {
	var ev payments.WebhookEvent
	ev.Event = payments.EventRefundCreated
	ev.Payload.Refund.Entity = payments.RefundEntity{ID: refundID, PaymentID: paymentID, Amount: amount}
	return ev
}

// webhookRouter wires the handler behind a stand-in for the signature
// middleware: the raw body is captured, verification is assumed done.
func webhookRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/payment", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Set(middleware.ContextRawBody, body)
	}, PaymentWebhookHandler(d))
	return r
}

func deliver(t *testing.T, r *gin.Engine, event payments.WebhookEvent) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentCapturedReconcilesPendingOrder(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	seedOrder(t, db, models.Order{
		GatewayOrderID: "order_cap1",
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
	})

	w := deliver(t, r, capturedEvent("pay_cap1", "order_cap1"))
	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, db.First(&order, "gateway_order_id = ?", "order_cap1").Error)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, "pay_cap1", order.GatewayPaymentID)
}

func TestPaymentCapturedUnknownOrderIsAcknowledged(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	// Capture racing ahead of verify-payment: acknowledge, change nothing.
	w := deliver(t, r, capturedEvent("pay_x", "order_unknown"))
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestPaymentCapturedAlreadyCompletedIsIdempotent(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	seedOrder(t, db, models.Order{
		GatewayOrderID:   "order_done",
		GatewayPaymentID: "pay_done",
		Status:           models.OrderStatusConfirmed,
		PaymentStatus:    models.PaymentStatusCompleted,
	})

	// Different delivery of the same capture must not clobber anything.
	w := deliver(t, r, capturedEvent("pay_other", "order_done"))
	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, db.First(&order, "gateway_order_id = ?", "order_done").Error)
	assert.Equal(t, "pay_done", order.GatewayPaymentID)
}

func TestPaymentFailedRestoresStockExactlyOnce(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	product := seedProduct(t, db, "Belt", 500, 3) // 3 left after 2 sold
	order := seedOrder(t, db, models.Order{
		GatewayOrderID: "order_fail1",
		Status:         models.OrderStatusConfirmed,
		PaymentStatus:  models.PaymentStatusCompleted,
		Items:          []models.OrderItem{{ProductID: product.ID, Quantity: 2, UnitPrice: 500}},
	})

	w := deliver(t, r, failedEvent("pay_f1", "order_fail1", "card declined"))
	assert.Equal(t, http.StatusOK, w.Code)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 5, fresh.Stock, "failed payment must restore stock")

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, "card declined", got.CancelReason)

	// Redelivery with a different payment id bypasses the replay marker but
	// hits the state guard: stock must not be restored twice.
	w = deliver(t, r, failedEvent("pay_f2", "order_fail1", "card declined"))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 5, fresh.Stock)
}

func TestDuplicateDeliveryShortCircuits(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	product := seedProduct(t, db, "Cap", 300, 4)
	seedOrder(t, db, models.Order{
		GatewayOrderID: "order_dup",
		Status:         models.OrderStatusConfirmed,
		PaymentStatus:  models.PaymentStatusCompleted,
		Items:          []models.OrderItem{{ProductID: product.ID, Quantity: 1, UnitPrice: 300}},
	})

	first := deliver(t, r, failedEvent("pay_dup", "order_dup", "timeout"))
	assert.Equal(t, http.StatusOK, first.Code)
	second := deliver(t, r, failedEvent("pay_dup", "order_dup", "timeout"))
	assert.Equal(t, http.StatusOK, second.Code)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 5, fresh.Stock)
}

func TestFailedReconciliationIsRedelivered(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	// Storage briefly unavailable: the delivery is answered with a 500 and
	// must stay unmarked, so the gateway's retry of the exact same delivery
	// is still processed.
	require.NoError(t, db.Migrator().DropTable(&models.Order{}))
	w := deliver(t, r, capturedEvent("pay_retry", "order_retry"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.NoError(t, db.AutoMigrate(&models.Order{}))
	seedOrder(t, db, models.Order{
		GatewayOrderID: "order_retry",
		Status:         models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
	})

	w = deliver(t, r, capturedEvent("pay_retry", "order_retry"))
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, "gateway_order_id = ?", "order_retry").Error)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
}

func TestPaymentFailedIgnoresShippedOrder(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	product := seedProduct(t, db, "Scarf", 450, 6)
	order := seedOrder(t, db, models.Order{
		GatewayOrderID: "order_shipped",
		Status:         models.OrderStatusShipped,
		PaymentStatus:  models.PaymentStatusCompleted,
		Items:          []models.OrderItem{{ProductID: product.ID, Quantity: 2, UnitPrice: 450}},
	})

	// Goods are already with the carrier; a straggling failure event must
	// neither cancel the order nor put stock back.
	w := deliver(t, r, failedEvent("pay_late", "order_shipped", "card declined"))
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)

	var fresh models.Product
	require.NoError(t, db.First(&fresh, product.ID).Error)
	assert.Equal(t, 6, fresh.Stock)
}

func TestRefundCreatedFullAmount(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	order := seedOrder(t, db, models.Order{
		GatewayOrderID:   "order_ref1",
		GatewayPaymentID: "pay_ref1",
		Status:           models.OrderStatusDelivered,
		PaymentStatus:    models.PaymentStatusCompleted,
		Total:            1043,
	})

	w := deliver(t, r, refundEvent("rfnd_1", "pay_ref1", 104300))
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.RefundStatusCompleted, got.RefundStatus)
	assert.Equal(t, models.OrderStatusRefunded, got.Status)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
}

func TestRefundCreatedPartialAmountKeepsStatus(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	order := seedOrder(t, db, models.Order{
		GatewayOrderID:   "order_ref2",
		GatewayPaymentID: "pay_ref2",
		Status:           models.OrderStatusDelivered,
		PaymentStatus:    models.PaymentStatusCompleted,
		Total:            1043,
	})

	w := deliver(t, r, refundEvent("rfnd_2", "pay_ref2", 50000))
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.RefundStatusCompleted, got.RefundStatus)
	assert.Equal(t, models.OrderStatusDelivered, got.Status, "partial refund keeps the order delivered")
}

func TestMalformedWebhookBody(t *testing.T) {
	db := testDB(t)
	d := testDeps(t, db)
	r := webhookRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader([]byte("{not json")))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
