package errors

import (
	"errors"
	"fmt"
)

// ReadableUserCancelled is the readable code the native SDK reports when
// the user dismisses the store sheet.
const ReadableUserCancelled = "USER_CANCELLED"

// Readable codes used by the native module implementations in this repo.
const (
	ReadableUnknown                  = "UNKNOWN"
	ReadableStoreProblem             = "STORE_PROBLEM"
	ReadableProductNotAvailable      = "PRODUCT_NOT_AVAILABLE_FOR_PURCHASE"
	ReadableProductAlreadyPurchased  = "PRODUCT_ALREADY_PURCHASED"
	ReadableInvalidAppUserID         = "INVALID_APP_USER_ID"
	ReadableNetworkError             = "NETWORK_ERROR"
	ReadableOperationAlreadyInFlight = "OPERATION_ALREADY_IN_PROGRESS"
	ReadablePurchaseInvalid          = "PURCHASE_INVALID"
	ReadableInvalidCredentials       = "INVALID_CREDENTIALS"
	ReadableConfigurationError       = "CONFIGURATION_ERROR"
)

// NativeError is the raw rejection shape produced by the native module.
type NativeError struct {
	Code                   string `json:"code"`
	Message                string `json:"message"`
	ReadableErrorCode      string `json:"readableErrorCode"`
	UnderlyingErrorMessage string `json:"underlyingErrorMessage"`
}

func (e *NativeError) Error() string {
	if e.ReadableErrorCode != "" {
		return fmt.Sprintf("native error %s (%s): %s", e.Code, e.ReadableErrorCode, e.Message)
	}
	return fmt.Sprintf("native error %s: %s", e.Code, e.Message)
}

// PurchasesError is a NativeError from a purchase-initiating call,
// decorated with a cancellation flag.
type PurchasesError struct {
	Code                   string `json:"code"`
	Message                string `json:"message"`
	ReadableErrorCode      string `json:"readableErrorCode"`
	UnderlyingErrorMessage string `json:"underlyingErrorMessage"`
	UserCancelled          bool   `json:"userCancelled"`

	native *NativeError
}

func (e *PurchasesError) Error() string {
	if e.UserCancelled {
		return fmt.Sprintf("purchase cancelled by user: %s", e.Message)
	}
	return fmt.Sprintf("purchase failed %s (%s): %s", e.Code, e.ReadableErrorCode, e.Message)
}

func (e *PurchasesError) Unwrap() error {
	if e.native == nil {
		return nil
	}
	return e.native
}

// Is lets errors.Is(err, ErrUserCancelled) match cancelled purchases.
func (e *PurchasesError) Is(target error) bool {
	return target == ErrUserCancelled && e.UserCancelled
}

// NormalizePurchaseError converts a native rejection into a PurchasesError.
// Errors that carry no NativeError, or whose NativeError has no readable
// code, are returned unchanged.
func NormalizePurchaseError(err error) error {
	if err == nil {
		return nil
	}

	var existing *PurchasesError
	if errors.As(err, &existing) {
		return err
	}

	var native *NativeError
	if !errors.As(err, &native) || native == nil || native.ReadableErrorCode == "" {
		return err
	}

	copied := *native
	return &PurchasesError{
		Code:                   copied.Code,
		Message:                copied.Message,
		ReadableErrorCode:      copied.ReadableErrorCode,
		UnderlyingErrorMessage: copied.UnderlyingErrorMessage,
		UserCancelled:          copied.ReadableErrorCode == ReadableUserCancelled,
		native:                 &copied,
	}
}

// IsUserCancelled reports whether err is a cancelled purchase.
func IsUserCancelled(err error) bool {
	return errors.Is(err, ErrUserCancelled)
}
