package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPStatus maps an error code to an HTTP status code.
func ToHTTPStatus(code string) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated, CodeSignature:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes err as the handler response, using the code-derived status.
// Non-billing errors surface as a generic 500 without leaking details.
func JSON(c echo.Context, err error) error {
	var billErr *BillingError
	if As(err, &billErr) {
		return c.JSON(ToHTTPStatus(billErr.Code()), echo.Map{
			"error": billErr.Error(),
			"code":  billErr.Code(),
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "internal error",
		"code":  CodeInternal,
	})
}
