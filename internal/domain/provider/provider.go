package provider

import "context"

// Order is the gateway's order-creation result. The service treats it as
// opaque beyond the fields needed to reconcile later events.
type Order struct {
	ID          string `json:"id"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Gateway creates payment orders with the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int, currency, receipt string) (*Order, error)
}

// SignatureVerifier checks gateway-issued HMAC signatures. Verification never
// panics on malformed input; an unset secret is a configuration error.
type SignatureVerifier interface {
	// VerifyPayment checks the direct-verify signature computed over
	// "<orderID>|<paymentID>".
	VerifyPayment(orderID, paymentID, signature string) (bool, error)

	// VerifyWebhook checks the webhook signature computed over the exact
	// unparsed request body bytes.
	VerifyWebhook(body []byte, signature string) (bool, error)
}

// ProviderError represents an error from the payment gateway
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Message + " (" + e.Details + ")"
	}
	return e.Code + ": " + e.Message
}
