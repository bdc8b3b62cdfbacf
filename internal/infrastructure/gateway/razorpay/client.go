package razorpay

import (
	"context"

	razorpaygo "github.com/razorpay/razorpay-go"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"go.uber.org/zap"
)

// Client wraps the Razorpay SDK behind the provider.Gateway interface.
type Client struct {
	sdk    *razorpaygo.Client
	logger *zap.Logger
}

// NewClient creates a new gateway client. The client is constructed once at
// startup and injected into the components that need it.
func NewClient(keyID, keySecret string, logger *zap.Logger) *Client {
	return &Client{
		sdk:    razorpaygo.NewClient(keyID, keySecret),
		logger: logger,
	}
}

// CreateOrder creates a payment order with the gateway. The order id it
// returns is the key later events are reconciled by.
func (c *Client) CreateOrder(ctx context.Context, amountCents int, currency, receipt string) (*provider.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		c.logger.Error("Gateway order creation failed",
			zap.String("receipt", receipt),
			zap.Int("amount_cents", amountCents),
			zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "ORDER_CREATE_FAILED",
			Message: "gateway order creation failed",
			Details: err.Error(),
		}
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, &provider.ProviderError{
			Code:    "ORDER_MALFORMED",
			Message: "gateway returned an order without an id",
		}
	}

	order := &provider.Order{
		ID:          orderID,
		AmountCents: amountCents,
		Currency:    currency,
	}
	if amount, ok := body["amount"].(float64); ok {
		order.AmountCents = int(amount)
	}
	if cur, ok := body["currency"].(string); ok && cur != "" {
		order.Currency = cur
	}

	c.logger.Info("Gateway order created",
		zap.String("order_id", order.ID),
		zap.String("receipt", receipt),
		zap.Int("amount_cents", order.AmountCents))

	return order, nil
}

var _ provider.Gateway = (*Client)(nil)
