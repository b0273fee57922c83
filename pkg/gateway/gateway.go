// Package gateway is the boundary to the external payment gateway: order creation
// and verification of the success evidence the client returns after checkout.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

var ErrSignatureMismatch = errors.New("gateway signature mismatch")

// Order is a payable order as acknowledged by the gateway.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
	CreatedAt   time.Time
}

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error
}

// Sandbox is an in-process gateway that signs with HMAC-SHA256 over "orderId|paymentId".
// In non-strict mode a mismatching signature is logged and accepted.
type Sandbox struct {
	keyID  string
	secret []byte
	strict bool
	log    *zap.Logger
}

func NewSandbox(config utils.GatewayConfig, log *zap.Logger) *Sandbox {
	return &Sandbox{
		keyID:  config.KeyID,
		secret: []byte(config.KeySecret),
		strict: config.StrictSignature,
		log:    log.With(zap.String("gateway", "sandbox")),
	}
}

func (g *Sandbox) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("create gateway order: amount must be positive, got %d", amountMinor)
	}

	order := &Order{
		ID:          utils.GenerateGatewayOrderID(),
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		CreatedAt:   time.Now(),
	}

	g.log.Info("Gateway order created",
		zap.String("order_id", order.ID),
		zap.String("key_id", g.keyID),
		zap.Int64("amount_minor", amountMinor),
		zap.String("currency", currency),
	)
	return order, nil
}

func (g *Sandbox) VerifyPayment(_ context.Context, orderID, paymentID, signature string) error {
	expected := Sign(g.secret, orderID, paymentID)
	if hmac.Equal([]byte(expected), []byte(signature)) {
		return nil
	}

	if g.strict {
		return fmt.Errorf("verify order %s: %w", orderID, ErrSignatureMismatch)
	}

	g.log.Warn("Signature mismatch accepted in non-strict mode",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
	)
	return nil
}

// Sign returns the hex HMAC-SHA256 the gateway attaches to a successful payment.
func Sign(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
