package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeBusinessLogic ErrorType = "BUSINESS_LOGIC_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden     ErrorType = "FORBIDDEN"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidCursor    ErrorCode = "INVALID_CURSOR"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodePendingActivation  ErrorCode = "PENDING_ACTIVATION"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailExists        ErrorCode = "EMAIL_EXISTS"
	ErrCodeAlreadyActivated   ErrorCode = "ALREADY_ACTIVATED"
	ErrCodeActivationNotFound ErrorCode = "ACTIVATION_TOKEN_NOT_FOUND"
	ErrCodeCannotDeactivate   ErrorCode = "CANNOT_DEACTIVATE_SELF"

	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeTaxIDExists          ErrorCode = "TAX_ID_EXISTS"
	ErrCodeNotMember            ErrorCode = "NOT_A_MEMBER"
	ErrCodeInsufficientRole     ErrorCode = "INSUFFICIENT_ROLE"
	ErrCodeMemberNotFound       ErrorCode = "MEMBER_NOT_FOUND"
	ErrCodeAlreadyMember        ErrorCode = "ALREADY_MEMBER"
	ErrCodeLastOwner            ErrorCode = "LAST_OWNER"
	ErrCodeOwnerImmutable       ErrorCode = "OWNER_ROLE_IMMUTABLE"

	ErrCodeInvitationNotFound ErrorCode = "INVITATION_NOT_FOUND"
	ErrCodeInvitationExists   ErrorCode = "INVITATION_EXISTS"
	ErrCodeInvitationExpired  ErrorCode = "INVITATION_EXPIRED"
	ErrCodeInvitationEmail    ErrorCode = "INVITATION_EMAIL_MISMATCH"

	ErrCodeDepartmentNotFound ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeHierarchyCycle     ErrorCode = "HIERARCHY_CYCLE"
	ErrCodeHierarchyTooDeep   ErrorCode = "HIERARCHY_TOO_DEEP"
	ErrCodeHasSubDepartments  ErrorCode = "HAS_ACTIVE_SUB_DEPARTMENTS"

	ErrCodeTeamNotFound       ErrorCode = "TEAM_NOT_FOUND"
	ErrCodeTeamMemberNotFound ErrorCode = "TEAM_MEMBER_NOT_FOUND"
	ErrCodeTeamMemberExists   ErrorCode = "TEAM_MEMBER_EXISTS"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy carrying the underlying error, so the shared
// sentinel values above are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewBusinessLogicError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeBusinessLogic,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrPendingActivation  = NewUnauthorizedError("Account is pending activation. Please check your email.", ErrCodePendingActivation)
	ErrUserInactive       = NewUnauthorizedError("Account is inactive. Please contact support.", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrUserNotFound         = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrEmailExists          = NewConflictError("User with this email already exists", ErrCodeEmailExists)
	ErrOrganizationNotFound = NewNotFoundError("Organization not found", ErrCodeOrganizationNotFound)
	ErrTaxIDExists          = NewConflictError("Organization with this tax id already exists", ErrCodeTaxIDExists)
	ErrNotMember            = NewForbiddenError("You don't have access to this organization", ErrCodeNotMember)
	ErrInsufficientRole     = NewForbiddenError("You don't have permission to perform this action", ErrCodeInsufficientRole)
	ErrMemberNotFound       = NewNotFoundError("Member not found", ErrCodeMemberNotFound)
	ErrLastOwner            = NewBusinessLogicError("An organization must keep at least one active owner", ErrCodeLastOwner)

	ErrInvitationNotFound = NewNotFoundError("Invitation not found", ErrCodeInvitationNotFound)
	ErrInvitationExpired  = NewValidationError("Invitation has expired", ErrCodeInvitationExpired)

	ErrDepartmentNotFound = NewNotFoundError("Department not found", ErrCodeDepartmentNotFound)
	ErrHierarchyCycle     = NewBusinessLogicError("Cannot create circular reference in department hierarchy", ErrCodeHierarchyCycle)
	ErrHierarchyTooDeep   = NewBusinessLogicError("Department hierarchy exceeds the maximum supported depth", ErrCodeHierarchyTooDeep)
	ErrHasSubDepartments  = NewBusinessLogicError("Cannot delete department with active sub-departments", ErrCodeHasSubDepartments)

	ErrTeamNotFound       = NewNotFoundError("Team not found", ErrCodeTeamNotFound)
	ErrTeamMemberNotFound = NewNotFoundError("Team member not found", ErrCodeTeamMemberNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, ErrorResponse{Success: false, Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
