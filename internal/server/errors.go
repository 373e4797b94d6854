package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	entitlementdomain "github.com/postpulse/postpulse/internal/entitlement/domain"
	organizationdomain "github.com/postpulse/postpulse/internal/organization/domain"
	paymentdomain "github.com/postpulse/postpulse/internal/payment/domain"
	plandomain "github.com/postpulse/postpulse/internal/plan/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts the last error attached to the context
// into a JSON error response. A non-2xx status is the only retry signal the
// payment provider gets.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorPayload{Type: "invalid_signature", Message: "webhook signature verification failed"}
	case errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{Type: "invalid_payload", Message: "event payload could not be parsed"}
	case errors.Is(err, paymentdomain.ErrMissingMetadata):
		return http.StatusBadRequest, errorPayload{Type: "missing_metadata", Message: "event is missing required metadata"}
	case errors.Is(err, paymentdomain.ErrMissingCustomer):
		return http.StatusBadRequest, errorPayload{Type: "missing_customer", Message: "subscription checkout arrived without a customer"}
	case errors.Is(err, paymentdomain.ErrUnknownProvider):
		return http.StatusNotFound, errorPayload{Type: "unknown_provider", Message: "unknown payment provider"}
	case errors.Is(err, plandomain.ErrInvalidLookupKey):
		return http.StatusBadRequest, errorPayload{Type: "invalid_lookup_key", Message: "plan lookup key is invalid"}
	case errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, entitlementdomain.ErrPlanNotFound):
		return http.StatusNotFound, errorPayload{Type: "plan_not_found", Message: "plan not found"}
	case errors.Is(err, organizationdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "organization_not_found", Message: "organization not found"}
	case errors.Is(err, organizationdomain.ErrLimitsNotFound):
		return http.StatusInternalServerError, errorPayload{Type: "limits_not_found", Message: "organization limits row is missing"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
