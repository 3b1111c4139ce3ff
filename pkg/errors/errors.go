package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors identifying the error kind. Every AppError wraps exactly one.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrImage         = errors.New("image error")
	ErrPersistence   = errors.New("persistence error")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInternal      = errors.New("internal error")
	ErrRateLimited   = errors.New("rate limited")
)

// Stable machine-readable error codes returned to API callers.
const (
	CodeStoreNotFound            = "STORE_NOT_FOUND"
	CodeProductNotFound          = "PRODUCT_NOT_FOUND"
	CodeNoProductsFound          = "NO_PRODUCTS_FOUND"
	CodeForbidden                = "FORBIDDEN"
	CodeNotProductOwner          = "NOT_PRODUCT_OWNER"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeInvalidInput             = "INVALID_INPUT"
	CodeValidation               = "VALIDATION_ERROR"
	CodeProductNameRequired      = "PRODUCT_NAME_REQUIRED"
	CodeProductCategoryRequired  = "PRODUCT_CATEGORY_REQUIRED"
	CodeTooManyCategories        = "TOO_MANY_CATEGORIES"
	CodeVariationNotAllowed      = "VARIATION_NOT_ALLOWED"
	CodeInvalidCatalogVisibility = "INVALID_CATALOG_VISIBILITY"
	CodeInvalidTaxStatus         = "INVALID_TAX_STATUS"
	CodeInvalidBackorders        = "INVALID_BACKORDERS"
	CodeInvalidPrice             = "INVALID_PRICE"
	CodeInvalidDate              = "INVALID_DATE"
	CodeImageUploadFailed        = "IMAGE_UPLOAD_FAILED"
	CodeInvalidImageID           = "INVALID_IMAGE_ID"
	CodePersistence              = "PERSISTENCE_ERROR"
	CodeAlreadyExists            = "ALREADY_EXISTS"
	CodeInternal                 = "INTERNAL_ERROR"
	CodeRateLimited              = "RATE_LIMITED"
)

// AppError is a terminal, caller-visible error. Only Code and Message are ever
// serialized; Err carries the kind sentinel or the wrapped cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error for a resource looked up by id.
func NotFound(resource, id string) *AppError {
	return NotFoundCode(CodeProductNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// NotFoundCode creates a 404 error with an explicit code.
func NotFoundCode(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error with the generic input code.
func InvalidInput(message string) *AppError {
	return Validation(CodeInvalidInput, message)
}

// Validation creates a 400 validation error with a specific code.
func Validation(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// ImageFailure creates a 400 image error. The cause is kept for logging only.
func ImageFailure(code, message string, cause error) *AppError {
	err := ErrImage
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrImage, cause)
	}
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Persistence creates a 500 error for a failed downstream save or delete.
func Persistence(op string, cause error) *AppError {
	err := ErrPersistence
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrPersistence, cause)
	}
	return &AppError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("the product could not be %s", op),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    CodeAlreadyExists,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Err:     ErrRateLimited,
	}
}

// Internal creates a 500 error that hides the cause.
func Internal(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Code returns the stable code of err, or CodeInternal when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrImage):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
