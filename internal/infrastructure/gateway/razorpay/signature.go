package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	domainErrors "github.com/wekeepgrowing/subscription-billing/internal/domain/errors"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
)

// SignatureVerifier recomputes and checks the gateway's HMAC-SHA256
// signatures. The webhook variant signs the exact unparsed request body, so
// callers must pass the raw bytes; any re-serialization before verification
// invalidates the signature.
type SignatureVerifier struct {
	keySecret     string
	webhookSecret string
}

func NewSignatureVerifier(keySecret, webhookSecret string) *SignatureVerifier {
	return &SignatureVerifier{
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// VerifyPayment checks the direct-verify signature over
// "<orderID>|<paymentID>". Malformed input yields false, never an error; an
// unset secret is a configuration error.
func (v *SignatureVerifier) VerifyPayment(orderID, paymentID, signature string) (bool, error) {
	if v.keySecret == "" {
		return false, domainErrors.Internal("gateway key secret is not configured", nil)
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return false, nil
	}
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, v.keySecret), nil
}

// VerifyWebhook checks the webhook signature over the raw body bytes.
func (v *SignatureVerifier) VerifyWebhook(body []byte, signature string) (bool, error) {
	if v.webhookSecret == "" {
		return false, domainErrors.Internal("gateway webhook secret is not configured", nil)
	}
	if len(body) == 0 || signature == "" {
		return false, nil
	}
	return verifyHMAC(body, signature, v.webhookSecret), nil
}

func verifyHMAC(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

var _ provider.SignatureVerifier = (*SignatureVerifier)(nil)
