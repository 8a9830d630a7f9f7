package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidShop           = errors.New("invalid_shop")
	ErrFreePlanCharge        = errors.New("free_plan_charge")
	ErrChargeDeclined        = errors.New("charge_declined")
	ErrProviderNotConfigured = errors.New("provider_not_configured")
	ErrProviderUnavailable   = errors.New("provider_unavailable")
	ErrInvalidReturnURL      = errors.New("invalid_return_url")
)

type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// UserErrors is a non-empty list of provider-reported request errors. Any
// entry fails the whole call.
type UserErrors []UserError

func (e UserErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ue := range e {
		msgs = append(msgs, ue.Message)
	}
	return strings.Join(msgs, ", ")
}

// AsUserErrors extracts provider user errors from err.
func AsUserErrors(err error) (UserErrors, bool) {
	var ue UserErrors
	if errors.As(err, &ue) && len(ue) > 0 {
		return ue, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transport or timeout failure that the
// caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
