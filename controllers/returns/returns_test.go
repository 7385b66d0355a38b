package returnControllers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
	"github.com/mayurimulay789/e-commerce21-sub001/payments"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{}, &models.OrderItem{},
		&models.Return{}, &models.ReturnItem{}, &models.ReturnImage{},
	))
	return db
}

type fakeGateway struct {
	refunds     int
	lastAmt     int64
	lastPayment string
	fail        bool
}

func (f *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, _ string, _ map[string]string) (*payments.GatewayOrder, error) {
	return &payments.GatewayOrder{ID: "order_fake", Amount: amountMinor, Currency: currency}, nil
}

func (f *fakeGateway) FetchPayment(_ context.Context, paymentID string) (*payments.Payment, error) {
	return &payments.Payment{ID: paymentID}, nil
}

func (f *fakeGateway) Refund(_ context.Context, paymentID string, amountMinor int64, _ map[string]string) (*payments.Refund, error) {
	if f.fail {
		return nil, payments.ErrGatewayUnavailable
	}
	f.refunds++
	f.lastAmt = amountMinor
	f.lastPayment = paymentID
	return &payments.Refund{ID: "rfnd_test1", Status: "processed"}, nil
}

func seedDeliveredOrder(t *testing.T, db *gorm.DB, deliveredAt time.Time) *models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:      "ORD-20250101120000-RETTEST",
		UserID:           "user-1",
		GatewayOrderID:   "order_ret",
		GatewayPaymentID: "pay_ret",
		Status:           models.OrderStatusDelivered,
		PaymentStatus:    models.PaymentStatusCompleted,
		Total:            1500,
		DeliveredAt:      &deliveredAt,
		Items: []models.OrderItem{
			{ProductID: 1, Name: "Kurta", UnitPrice: 600, Quantity: 2},
			{ProductID: 2, Name: "Stole", UnitPrice: 300, Quantity: 1},
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func TestCreateReturnWithinWindow(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-3*24*time.Hour))

	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1, Reason: "too small"}},
		Reason:  "size issue",
		Images:  []string{"https://cdn.example/defect.jpg"},
	}, now)
	require.NoError(t, err)

	assert.Regexp(t, `^RET-\d{14}-[0-9A-F]{8}$`, ret.ReturnNumber)
	assert.Equal(t, models.ReturnStatusRequested, ret.Status)
	assert.Equal(t, models.ReturnTypeRefund, ret.Type)
	assert.InDelta(t, 600.0, ret.RefundAmount, 0.001)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "Kurta", ret.Items[0].Name)
}

func TestCreateReturnWindowExpired(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-8*24*time.Hour))

	_, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1}},
		Reason:  "late",
	}, now)
	assert.ErrorIs(t, err, ErrReturnWindowExpired)
}

func TestCreateReturnUndeliveredOrder(t *testing.T) {
	db := testDB(t)
	order := models.Order{
		OrderNumber:    "ORD-20250101120000-SHIP",
		UserID:         "user-1",
		GatewayOrderID: "order_ship",
		Status:         models.OrderStatusShipped,
		PaymentStatus:  models.PaymentStatusCompleted,
	}
	require.NoError(t, db.Create(&order).Error)

	_, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1}},
		Reason:  "early",
	}, time.Now())
	assert.ErrorIs(t, err, ErrOrderNotReturnable)
}

func TestCreateReturnRejectsBadItems(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))

	// Product not in the order.
	_, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 99, Quantity: 1}},
		Reason:  "wrong",
	}, now)
	assert.ErrorIs(t, err, ErrInvalidReturnItem)

	// Quantity above what was ordered.
	_, err = CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 2, Quantity: 5}},
		Reason:  "greedy",
	}, now)
	assert.ErrorIs(t, err, ErrInvalidReturnItem)
}

func TestApproveRefundReturnIssuesGatewayRefund(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))
	gw := &fakeGateway{}

	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1}},
		Reason:  "defect",
	}, now)
	require.NoError(t, err)

	updated, err := UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status:     models.ReturnStatusApproved,
		AdminNotes: "verified photos",
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusApproved, updated.Status)
	assert.Equal(t, "rfnd_test1", updated.RefundID)
	assert.Equal(t, models.RefundStatusCompleted, updated.RefundStatus)
	assert.Equal(t, 1, gw.refunds)
	assert.Equal(t, "pay_ret", gw.lastPayment)
	assert.Equal(t, int64(60000), gw.lastAmt)

	// Partial refund: the order itself stays delivered.
	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
}

func TestApproveFullRefundFlipsOrder(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))
	gw := &fakeGateway{}

	// Everything in the order; refund covers the full total.
	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items: []ReturnItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		Reason: "order arrived damaged",
	}, now)
	require.NoError(t, err)
	require.InDelta(t, 1500.0, ret.RefundAmount, 0.001)

	_, err = UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status: models.ReturnStatusApproved,
	}, "admin-1")
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.OrderStatusRefunded, got.Status)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, models.RefundStatusCompleted, got.RefundStatus)
}

func TestApproveRefundGatewayFailureLeavesReturnUntouched(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))
	gw := &fakeGateway{fail: true}

	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1}},
		Reason:  "defect",
	}, now)
	require.NoError(t, err)

	_, err = UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status: models.ReturnStatusApproved,
	}, "admin-1")
	assert.ErrorIs(t, err, payments.ErrGatewayUnavailable)

	// Still requested, so the admin can retry the approval.
	var got models.Return
	require.NoError(t, db.First(&got, ret.ID).Error)
	assert.Equal(t, models.ReturnStatusRequested, got.Status)
	assert.Empty(t, got.RefundID)
}

func TestApproveRetryAfterIssuedRefundSkipsGateway(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))
	gw := &fakeGateway{}

	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 1, Quantity: 1}},
		Reason:  "defect",
	}, now)
	require.NoError(t, err)

	// Earlier approval attempt got as far as issuing the refund before it
	// died; the refund reference is on the row but the transition is not.
	require.NoError(t, db.Model(&models.Return{}).Where("id = ?", ret.ID).Updates(map[string]interface{}{
		"refund_id":     "rfnd_prior",
		"refund_status": models.RefundStatusCompleted,
	}).Error)

	updated, err := UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status: models.ReturnStatusApproved,
	}, "admin-1")
	require.NoError(t, err)

	assert.Zero(t, gw.refunds, "retrying the approval must not issue a second refund")
	assert.Equal(t, models.ReturnStatusApproved, updated.Status)
	assert.Equal(t, "rfnd_prior", updated.RefundID)

	var got models.Return
	require.NoError(t, db.First(&got, ret.ID).Error)
	assert.Equal(t, "rfnd_prior", got.RefundID)
	assert.Equal(t, models.RefundStatusCompleted, got.RefundStatus)
}

func TestReturnStatusTransitions(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	order := seedDeliveredOrder(t, db, now.Add(-time.Hour))
	gw := &fakeGateway{}

	ret, err := CreateReturn(db, "user-1", CreateReturnRequest{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ProductID: 2, Quantity: 1}},
		Reason:  "defect",
		Type:    models.ReturnTypeExchange,
	}, now)
	require.NoError(t, err)

	// requested -> received skips approval and must be rejected.
	_, err = UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status: models.ReturnStatusReceived,
	}, "admin-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Exchange approvals do not touch the gateway.
	_, err = UpdateReturnStatus(context.Background(), db, gw, nil, ret.ID, UpdateReturnStatusRequest{
		Status: models.ReturnStatusApproved,
	}, "admin-1")
	require.NoError(t, err)
	assert.Zero(t, gw.refunds)
}
