// Package errs provides standardized error types for the order coordination service.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes two groups of error types:
//   - Validation: ValueIsRequiredError, ValueIsInvalidError, ValueIsOutOfRangeError
//     and VersionIsInvalidError
//   - Coordination: PermissionDeniedError, InvalidTransitionError, StaleStateError,
//     NetworkFailureError and ObjectNotFoundError
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrStaleState)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method for error wrapping/unwrapping support
//
// Callers classify failures with errors.Is against the sentinels, or with
// IsValidation for the whole validation family. No error in this package is
// fatal: every failure is local to one action.
package errs
