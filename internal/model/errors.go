package model

import (
	"errors"
	"fmt"
)

// ErrorKind tells callers which class of failure they are looking at.
type ErrorKind int

// Error kinds. Anything that is not a *Error is treated as internal.
const (
	KindInternal ErrorKind = iota
	KindValidation
	KindRule
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRule:
		return "rule"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a domain failure that is safe to show to the caller.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Fields maps input field names to a short reason (validation errors only).
	Fields map[string]string
	// Status is the asset status observed when the error was raised, if relevant.
	Status string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code, so errors.Is works against the
// sentinels below even when the returned error carries extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Validation errors.
var (
	ErrDuplicateSerialNumber = &Error{Kind: KindValidation, Code: "duplicate_serial_number",
		Message: "an asset with this serial number already exists", Fields: map[string]string{"serial_number": "unique"}}
	ErrCategoryNotFound = &Error{Kind: KindValidation, Code: "category_not_found",
		Message: "category does not exist", Fields: map[string]string{"category_id": "exists"}}
	ErrInvalidStatus = &Error{Kind: KindValidation, Code: "invalid_status",
		Message: "status must be one of available, assigned, maintenance, broken", Fields: map[string]string{"status": "oneof"}}
	ErrUserNotFound = &Error{Kind: KindValidation, Code: "user_not_found",
		Message: "user does not exist or is inactive", Fields: map[string]string{"user_id": "exists"}}
	ErrDuplicateCategoryName = &Error{Kind: KindValidation, Code: "duplicate_category_name",
		Message: "a category with this name already exists", Fields: map[string]string{"name": "unique"}}
	ErrDuplicateEmail = &Error{Kind: KindValidation, Code: "duplicate_email",
		Message: "a user with this email already exists", Fields: map[string]string{"email": "unique"}}
	ErrIncorrectPassword = &Error{Kind: KindValidation, Code: "incorrect_password",
		Message: "current password is incorrect", Fields: map[string]string{"current_password": "match"}}
	ErrInvalidStatusTransition = &Error{Kind: KindValidation, Code: "invalid_status_transition",
		Message: "assets become assigned or available only by assigning or returning them", Fields: map[string]string{"status": "transition"}}
)

// Business-rule violations.
var (
	ErrAssetNotAvailable = &Error{Kind: KindRule, Code: "asset_not_available",
		Message: "asset is not available for assignment"}
	ErrNoActiveAssignment = &Error{Kind: KindRule, Code: "no_active_assignment",
		Message: "asset is not currently checked out"}
	ErrAssetCurrentlyAssigned = &Error{Kind: KindRule, Code: "asset_currently_assigned",
		Message: "asset is currently assigned; return it first"}
	ErrCategoryHasAssets = &Error{Kind: KindRule, Code: "category_has_assets",
		Message: "category still has assets"}
	ErrUserHasAssignments = &Error{Kind: KindRule, Code: "user_has_assignments",
		Message: "user still holds assets; return them first"}
	ErrCannotDeleteSelf = &Error{Kind: KindRule, Code: "cannot_delete_self",
		Message: "you cannot delete your own account"}
)

// Lookup and permission failures.
var (
	ErrAssetNotFound      = &Error{Kind: KindNotFound, Code: "asset_not_found", Message: "asset not found"}
	ErrAssignmentNotFound = &Error{Kind: KindNotFound, Code: "assignment_not_found", Message: "assignment not found"}
	ErrCategoryMissing    = &Error{Kind: KindNotFound, Code: "category_missing", Message: "category not found"}
	ErrUserMissing        = &Error{Kind: KindNotFound, Code: "user_missing", Message: "user not found"}
	ErrImageNotFound      = &Error{Kind: KindNotFound, Code: "image_not_found", Message: "asset has no image"}
	ErrForbidden          = &Error{Kind: KindForbidden, Code: "forbidden", Message: "insufficient permissions"}
)

// ErrInvalidCredentials is returned for failed sign-ins without saying which
// part was wrong.
var ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "invalid_credentials", Message: "invalid credentials"}

// AssetNotAvailable returns ErrAssetNotAvailable annotated with the status the
// asset was found in.
func AssetNotAvailable(status string) error {
	return &Error{
		Kind:    KindRule,
		Code:    ErrAssetNotAvailable.Code,
		Message: fmt.Sprintf("asset is currently %q and cannot be assigned", status),
		Status:  status,
	}
}

// ValidationFailed builds a validation error from field-level violations.
func ValidationFailed(fields map[string]string) error {
	return &Error{
		Kind:    KindValidation,
		Code:    "validation_failed",
		Message: "the submitted data is invalid",
		Fields:  fields,
	}
}

// KindOf classifies err. Errors that are not domain errors are internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
