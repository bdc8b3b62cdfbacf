package errors

// Error codes shared across the service.
const (
	CodeInternal        = "INTERNAL"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeSignature       = "SIGNATURE_INVALID"
	CodeGateway         = "GATEWAY_ERROR"
)
