package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateReceipt builds the merchant receipt sent with a gateway order.
func GenerateReceipt(now time.Time) string {
	return fmt.Sprintf("receipt_%d", now.UnixMilli())
}

// GenerateGatewayOrderID builds a sandbox gateway order id.
func GenerateGatewayOrderID() string {
	return "order_" + uuid.NewString()
}
