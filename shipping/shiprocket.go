package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mayurimulay789/e-commerce21-sub001/models"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "shipping").Logger()

// tokenTTL keeps the cached bearer token a little under the carrier's 24h
// validity so we re-authenticate before it lapses mid-request.
const tokenTTL = 23 * time.Hour

// ShiprocketClient pushes orders to the Shiprocket aggregator API.
type ShiprocketClient struct {
	email    string
	password string
	baseURL  string
	http     *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewShiprocketClient reads SHIPROCKET_EMAIL / SHIPROCKET_PASSWORD and
// optional SHIPROCKET_API_URL from the environment.
func NewShiprocketClient() (*ShiprocketClient, error) {
	email := os.Getenv("SHIPROCKET_EMAIL")
	password := os.Getenv("SHIPROCKET_PASSWORD")
	if email == "" || password == "" {
		return nil, fmt.Errorf("shiprocket configuration missing")
	}
	baseURL := os.Getenv("SHIPROCKET_API_URL")
	if baseURL == "" {
		baseURL = "https://apiv2.shiprocket.in/v1/external"
	}
	return &ShiprocketClient{
		email:    email,
		password: password,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *ShiprocketClient) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	payload := map[string]string{"email": c.email, "password": c.password}
	data, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth: %v", ErrFulfillmentUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: auth returned %d", ErrFulfillmentUnavailable, resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return "", fmt.Errorf("%w: auth returned no token", ErrFulfillmentUnavailable)
	}

	c.token = out.Token
	c.tokenExp = time.Now().Add(tokenTTL)
	return c.token, nil
}

func (c *ShiprocketClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFulfillmentUnavailable, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: carrier returned %d: %s", ErrFulfillmentUnavailable, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: bad response body: %v", ErrFulfillmentUnavailable, err)
		}
	}
	return nil
}

// CreateShipment submits the order to the carrier and returns the assigned
// tracking identifiers.
func (c *ShiprocketClient) CreateShipment(ctx context.Context, order *models.Order) (*Shipment, error) {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"name":          item.Name,
			"sku":           fmt.Sprintf("SKU-%d", item.ProductID),
			"units":         item.Quantity,
			"selling_price": item.UnitPrice,
		})
	}

	payload := map[string]interface{}{
		"order_id":         order.OrderNumber,
		"order_date":       order.CreatedAt.Format("2006-01-02 15:04"),
		"billing_customer_name": order.ShippingAddress.FullName,
		"billing_phone":    order.ShippingAddress.Phone,
		"billing_address":  order.ShippingAddress.Street,
		"billing_city":     order.ShippingAddress.City,
		"billing_state":    order.ShippingAddress.State,
		"billing_country":  order.ShippingAddress.Country,
		"billing_pincode":  order.ShippingAddress.PostalCode,
		"shipping_is_billing": true,
		"order_items":      items,
		"payment_method":   "Prepaid",
		"sub_total":        order.Total,
	}

	var out struct {
		OrderID  json.Number `json:"order_id"`
		AWBCode  string      `json:"awb_code"`
		Courier  string      `json:"courier_name"`
		ETD      string      `json:"etd"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/create/adhoc", payload, &out); err != nil {
		return nil, err
	}
	if out.AWBCode == "" {
		return nil, fmt.Errorf("%w: carrier returned no awb", ErrFulfillmentUnavailable)
	}

	shipment := &Shipment{
		CarrierOrderID: out.OrderID.String(),
		TrackingNumber: out.AWBCode,
		TrackingURL:    "https://shiprocket.co/tracking/" + out.AWBCode,
	}
	if etd, err := time.Parse("2006-01-02 15:04:05", out.ETD); err == nil {
		shipment.EstimatedDelivery = &etd
	}
	return shipment, nil
}

// TrackShipment fetches the carrier's current status text for an AWB.
func (c *ShiprocketClient) TrackShipment(ctx context.Context, trackingNumber string) (string, error) {
	var out struct {
		TrackingData struct {
			ShipmentStatus string `json:"current_status"`
		} `json:"tracking_data"`
	}
	if err := c.do(ctx, http.MethodGet, "/courier/track/awb/"+trackingNumber, nil, &out); err != nil {
		return "", err
	}
	return out.TrackingData.ShipmentStatus, nil
}

// CancelShipment is best-effort; callers log and move on when it fails.
func (c *ShiprocketClient) CancelShipment(ctx context.Context, trackingNumber string) error {
	payload := map[string]interface{}{"awbs": []string{trackingNumber}}
	if err := c.do(ctx, http.MethodPost, "/orders/cancel/shipment/awbs", payload, nil); err != nil {
		logger.Warn().Err(err).Str("awb", trackingNumber).Msg("carrier cancellation failed")
		return err
	}
	return nil
}
