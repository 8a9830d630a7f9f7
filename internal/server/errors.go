package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/railzwaylabs/shopfaq/internal/billing/domain"
	entitlementdomain "github.com/railzwaylabs/shopfaq/internal/entitlement/domain"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	webhookdomain "github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
)

// ValidationError rejects a request field before any service runs.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

type errorBody struct {
	Code      string                      `json:"code"`
	Message   string                      `json:"message"`
	Field     string                      `json:"field,omitempty"`
	Retryable bool                        `json:"retryable,omitempty"`
	LimitHit  bool                        `json:"limit_hit,omitempty"`
	Decision  *entitlementdomain.Decision `json:"decision,omitempty"`
	Fields    billingdomain.UserErrors    `json:"user_errors,omitempty"`
}

var invalidRequest = []error{
	billingdomain.ErrInvalidShop,
	billingdomain.ErrInvalidReturnURL,
	faqdomain.ErrInvalidShop,
	faqdomain.ErrInvalidProduct,
	faqdomain.ErrEmptyFAQs,
	settingsdomain.ErrInvalidShop,
	settingsdomain.ErrInvalidProvider,
	settingsdomain.ErrInvalidFAQCount,
	usagedomain.ErrInvalidShop,
	usagedomain.ErrInvalidMetricType,
	usagedomain.ErrInvalidPeriod,
	entitlementdomain.ErrInvalidShop,
	webhookdomain.ErrInvalidPayload,
	webhookdomain.ErrInvalidShop,
	webhookdomain.ErrShopMismatch,
}

var configurationErrors = []error{
	billingdomain.ErrFreePlanCharge,
	billingdomain.ErrProviderNotConfigured,
	billingdomain.ErrChargeDeclined,
	faqdomain.ErrMissingAPIKey,
}

var notFoundErrors = []error{
	ErrNotFound,
	faqdomain.ErrFAQNotFound,
	subscriptiondomain.ErrSubscriptionNotFound,
	webhookdomain.ErrUnhandledTopic,
}

// AbortWithError maps err onto the response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger(c).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func classify(err error) (int, errorBody) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorBody{Code: "invalid_request", Message: ve.Message, Field: ve.Field}
	}

	if denied, ok := entitlementdomain.AsDenied(err); ok {
		decision := denied.Decision
		return http.StatusForbidden, errorBody{
			Code:     "limit_reached",
			Message:  decision.Reason,
			LimitHit: true,
			Decision: &decision,
		}
	}

	if ue, ok := billingdomain.AsUserErrors(err); ok {
		return http.StatusUnprocessableEntity, errorBody{Code: "provider_user_error", Message: ue.Error(), Fields: ue}
	}

	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, webhookdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "unauthorized"}
	case matchAny(err, invalidRequest):
		return http.StatusBadRequest, errorBody{Code: "invalid_request", Message: err.Error()}
	case matchAny(err, configurationErrors):
		return http.StatusBadRequest, errorBody{Code: sentinelCode(err, configurationErrors), Message: err.Error()}
	case matchAny(err, notFoundErrors):
		return http.StatusNotFound, errorBody{Code: sentinelCode(err, notFoundErrors), Message: err.Error()}
	case errors.Is(err, faqdomain.ErrGeneratorAuth):
		return http.StatusBadRequest, errorBody{Code: faqdomain.ErrGeneratorAuth.Error(), Message: "Invalid API key. Please check your settings."}
	case errors.Is(err, faqdomain.ErrGeneratorRateLimited):
		return http.StatusTooManyRequests, errorBody{
			Code:      faqdomain.ErrGeneratorRateLimited.Error(),
			Message:   "API rate limit or quota exceeded. Please try again later.",
			Retryable: true,
		}
	case errors.Is(err, faqdomain.ErrGeneratorInvalidOutput), errors.Is(err, faqdomain.ErrGeneratorRequestRejected):
		return http.StatusBadGateway, errorBody{Code: sentinelCode(err, []error{faqdomain.ErrGeneratorInvalidOutput, faqdomain.ErrGeneratorRequestRejected}), Message: err.Error()}
	case errors.Is(err, billingdomain.ErrProviderUnavailable), errors.Is(err, faqdomain.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, errorBody{
			Code:      sentinelCode(err, []error{billingdomain.ErrProviderUnavailable, faqdomain.ErrGeneratorUnavailable}),
			Message:   err.Error(),
			Retryable: true,
		}
	case errors.Is(err, webhookdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorBody{Code: webhookdomain.ErrNotConfigured.Error(), Message: err.Error()}
	}

	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"}
}

func matchAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func sentinelCode(err error, targets []error) string {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "error"
}
