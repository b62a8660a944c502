package payment

import (
	"errors"
	"fmt"
)

// failureReason turns a gateway error into the message shown to the buyer
func failureReason(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrGatewayUnavailable):
		return "payment provider is temporarily unavailable - please try again later"
	case errors.Is(err, ErrGatewayRejected):
		return fmt.Sprintf("%s: %v", fallback, err)
	default:
		return fallback
	}
}
